package hub_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/domsync/pkg/adapters/memory"
	"github.com/aretw0/domsync/pkg/domain"
	"github.com/aretw0/domsync/pkg/hub"
	"github.com/aretw0/domsync/pkg/ports"
	"github.com/aretw0/domsync/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type faults struct {
	mu     sync.Mutex
	events []*domain.FaultEvent
}

func (f *faults) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFault: func(e *domain.FaultEvent) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, e)
		},
	}
}

func (f *faults) kinds() []domain.FaultKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FaultKind
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

func addBox(t *testing.T, h *hub.Hub, doc *scene.Document, position string) *scene.Element {
	t.Helper()
	var box *scene.Element
	require.NoError(t, h.Mutate(func(ports.Tree) error {
		box = doc.CreateElement("box")
		box.SetAttribute("position", position)
		return doc.Scene().AppendChild(box)
	}))
	return box
}

func TestHub_BroadcastsIdenticalPackets(t *testing.T) {
	doc := scene.New()
	h := hub.New(doc)
	r1, r2 := memory.NewRecorder(), memory.NewRecorder()
	h.Connect(r1)
	h.Connect(r2)
	require.Equal(t, 2, h.Connections())

	box := addBox(t, h, doc, "1 2 3")
	require.NoError(t, h.Flush())

	require.NoError(t, h.Mutate(func(ports.Tree) error {
		box.SetAttribute("position", "4 5 6")
		return nil
	}))
	require.NoError(t, h.Flush())

	require.NoError(t, h.Mutate(func(ports.Tree) error { return box.Remove() }))
	require.NoError(t, h.Flush())

	id := box.ID()
	want := []string{
		fmt.Sprintf(`<packet><box uuid="%s" position="1 2 3"></box></packet>`, id),
		fmt.Sprintf(`<packet><box uuid="%s" position="4 5 6"></box></packet>`, id),
		fmt.Sprintf(`<packet><dead uuid="%s" /></packet>`, id),
	}
	assert.Equal(t, want, r1.Sent())
	assert.Equal(t, want, r2.Sent())
}

func TestHub_FlushWithoutChangesSendsNothing(t *testing.T) {
	doc := scene.New()
	h := hub.New(doc)
	r := memory.NewRecorder()
	h.Connect(r)

	require.NoError(t, h.Flush())
	assert.Empty(t, r.Sent())

	addBox(t, h, doc, "0 0 0")
	require.NoError(t, h.Flush())
	require.NoError(t, h.Flush())
	assert.Len(t, r.Sent(), 1)
}

func TestHub_FlushWithoutChannelsDrains(t *testing.T) {
	doc := scene.New()
	h := hub.New(doc)

	addBox(t, h, doc, "0 0 0")
	require.NoError(t, h.Flush())
	assert.False(t, doc.Pending())

	r := memory.NewRecorder()
	h.Connect(r)
	require.NoError(t, h.Flush())
	assert.Empty(t, r.Sent())
}

func TestHub_Disconnect(t *testing.T) {
	doc := scene.New()
	h := hub.New(doc)
	r1, r2 := memory.NewRecorder(), memory.NewRecorder()
	h1 := h.Connect(r1)
	h.Connect(r2)

	assert.True(t, h.Disconnect(h1))
	assert.False(t, h.Disconnect(h1))
	assert.False(t, h.Disconnect(hub.Handle(999)))
	assert.Equal(t, 1, h.Connections())
	assert.Zero(t, r1.Subscribers())

	addBox(t, h, doc, "1 1 1")
	require.NoError(t, h.Flush())
	assert.Empty(t, r1.Sent())
	assert.Len(t, r2.Sent(), 1)
}

func TestHub_IgnoresMessagesFromDisconnectedHandles(t *testing.T) {
	f := &faults{}
	doc := scene.New()
	h := hub.New(doc, hub.WithHooks(f.hooks()))
	r := memory.NewRecorder()
	handle := h.Connect(r)
	require.True(t, h.Disconnect(handle))

	late := []byte(`<packet><box uuid="late" position="1 2 3"></box></packet>`)
	r.Deliver(late)
	h.OnMessage(handle, late)

	assert.Nil(t, doc.ElementByUUID("late"))
	assert.Equal(t, []domain.FaultKind{domain.FaultUnregistered}, f.kinds())
}

func TestHub_SendFailureIsIsolated(t *testing.T) {
	f := &faults{}
	doc := scene.New()
	h := hub.New(doc, hub.WithHooks(f.hooks()))
	broken, healthy := memory.NewRecorder(), memory.NewRecorder()
	brokenHandle := h.Connect(broken)
	h.Connect(healthy)

	boom := errors.New("connection reset")
	broken.FailWith(boom)

	addBox(t, h, doc, "1 2 3")
	err := h.Flush()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrChannelSend)
	assert.ErrorIs(t, err, boom)

	var failure *domain.ChannelSendFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, uint64(brokenHandle), failure.Handle)

	assert.Len(t, healthy.Sent(), 1)
	assert.Equal(t, []domain.FaultKind{domain.FaultSend}, f.kinds())

	// drained changes are not re-queued for the failed channel
	broken.FailWith(nil)
	require.NoError(t, h.Flush())
	assert.Empty(t, broken.Sent())
	assert.Len(t, healthy.Sent(), 1)
}

type panickingChannel struct{ *memory.Recorder }

func (panickingChannel) Send([]byte) error { panic("boom") }

func TestHub_SendPanicIsIsolated(t *testing.T) {
	doc := scene.New()
	h := hub.New(doc)
	healthy := memory.NewRecorder()
	h.Connect(panickingChannel{memory.NewRecorder()})
	h.Connect(healthy)

	addBox(t, h, doc, "1 2 3")
	err := h.Flush()
	assert.ErrorIs(t, err, domain.ErrChannelSend)
	assert.Len(t, healthy.Sent(), 1)
}

func TestHub_InboundFaults(t *testing.T) {
	f := &faults{}
	var applies []*domain.ApplyEvent
	doc := scene.New()
	h := hub.New(doc,
		hub.WithHooks(f.hooks()),
		hub.WithHooks(domain.LifecycleHooks{
			OnApply: func(e *domain.ApplyEvent) { applies = append(applies, e) },
		}),
	)
	r := memory.NewRecorder()
	handle := h.Connect(r)

	r.Deliver([]byte(`not a packet`))
	assert.Equal(t, []domain.FaultKind{domain.FaultParse}, f.kinds())
	assert.Empty(t, applies)
	assert.Zero(t, doc.Len())

	r.Deliver([]byte("<packet><event uuid=\"e1\" kind=\"click\"></event>\n<box uuid=\"b1\" color=\"red\"></box></packet>"))
	assert.Equal(t, []domain.FaultKind{domain.FaultParse, domain.FaultProtocol}, f.kinds())
	require.Len(t, applies, 1)
	assert.Equal(t, uint64(handle), applies[0].Handle)
	assert.Equal(t, 2, applies[0].Entries)
	assert.Equal(t, 1, applies[0].Applied)
	assert.Equal(t, 1, applies[0].Rejected)

	box := doc.ElementByUUID("b1")
	require.NotNil(t, box)
	color, _ := box.Attribute("color")
	assert.Equal(t, "red", color)
}

func TestHub_Ingest(t *testing.T) {
	doc := scene.New()
	h := hub.New(doc)

	err := h.Ingest([]byte(`<packet><box uuid="b1"></box></packet>`))
	require.NoError(t, err)
	assert.NotNil(t, doc.ElementByUUID("b1"))

	err = h.Ingest([]byte(`<packet><event uuid="e1"></event></packet>`))
	assert.ErrorIs(t, err, domain.ErrProtocolViolation)
	assert.ErrorIs(t, err, domain.ErrUnsupportedOperation)

	err = h.Ingest([]byte(`<scene></scene>`))
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestHub_ReplicatesBetweenHubs(t *testing.T) {
	docA, docB := scene.New(), scene.New()
	hubA := hub.New(docA)
	hubB := hub.New(docB)
	a, b := memory.Pipe()
	hubA.Connect(a)
	hubB.Connect(b)

	box := addBox(t, hubA, docA, "1 2 3")
	require.NoError(t, hubA.Flush())
	assert.Equal(t, docA.String(), docB.String())

	require.NoError(t, hubA.Mutate(func(ports.Tree) error {
		box.SetAttribute("color", "blue")
		return nil
	}))
	require.NoError(t, hubA.Flush())
	assert.Equal(t, docA.String(), docB.String())

	// without echo suppression the replica queues what it applied
	assert.True(t, docB.Pending())

	require.NoError(t, hubA.Mutate(func(ports.Tree) error { return box.Remove() }))
	require.NoError(t, hubA.Flush())
	assert.Equal(t, "<scene></scene>", docB.String())
}

// peers wires two default hubs together, each with a recorder counting its sends.
func peers(t *testing.T) (hubA, hubB *hub.Hub, docA, docB *scene.Document, recA, recB *memory.Recorder) {
	t.Helper()
	docA, docB = scene.New(), scene.New()
	hubA, hubB = hub.New(docA), hub.New(docB)
	a, b := memory.Pipe()
	hubA.Connect(a)
	hubB.Connect(b)
	recA, recB = memory.NewRecorder(), memory.NewRecorder()
	hubA.Connect(recA)
	hubB.Connect(recB)
	return hubA, hubB, docA, docB, recA, recB
}

func flushRounds(t *testing.T, rounds int, hubs ...*hub.Hub) {
	t.Helper()
	for i := 0; i < rounds; i++ {
		for _, h := range hubs {
			require.NoError(t, h.Flush())
		}
	}
}

func TestHub_EchoSettlesAfterOneRound(t *testing.T) {
	hubA, hubB, docA, docB, recA, recB := peers(t)

	addBox(t, hubA, docA, "1 2 3")
	flushRounds(t, 10, hubA, hubB)

	assert.Len(t, recA.Sent(), 1)
	assert.Len(t, recB.Sent(), 1, "the replica echoes once, then goes quiet")
	assert.False(t, docA.Pending())
	assert.False(t, docB.Pending())
	assert.Equal(t, docA.String(), docB.String())
}

func TestHub_RecreateUnderSameIDConverges(t *testing.T) {
	hubA, hubB, docA, docB, recA, recB := peers(t)

	box := addBox(t, hubA, docA, "1 2 3")
	id := box.ID()
	require.NoError(t, hubA.Mutate(func(ports.Tree) error {
		box.SetAttribute("color", "red")
		return nil
	}))
	flushRounds(t, 2, hubA, hubB)
	recA.Pop()
	recB.Pop()

	require.NoError(t, hubA.Mutate(func(tree ports.Tree) error {
		if err := box.Remove(); err != nil {
			return err
		}
		fresh, err := tree.CreateNode("box", id)
		if err != nil {
			return err
		}
		fresh.SetAttribute("size", "2")
		return tree.AttachToRoot(fresh)
	}))
	flushRounds(t, 10, hubA, hubB)

	assert.Equal(t, docA.String(), docB.String())
	hubB.View(func(ports.Tree) {
		_, stale := docB.ElementByUUID(id).Attribute("color")
		assert.False(t, stale, "the replaced node's attributes must not survive on the peer")
	})
	assert.Len(t, recA.Sent(), 1)
	assert.Len(t, recB.Sent(), 1)
	assert.False(t, docA.Pending())
	assert.False(t, docB.Pending())
}

func TestHub_InvalidNamesDoNotPoisonPackets(t *testing.T) {
	docA, docB := scene.New(), scene.New()
	var f faults
	hubA := hub.New(docA)
	hubB := hub.New(docB, hub.WithHooks(f.hooks()))
	a, b := memory.Pipe()
	hubA.Connect(a)
	hubB.Connect(b)

	box := addBox(t, hubA, docA, "1 2 3")
	require.NoError(t, hubA.Mutate(func(ports.Tree) error {
		box.SetAttribute(`bad "name"`, "x")
		return nil
	}))
	require.NoError(t, hubA.Flush())

	assert.Empty(t, f.kinds())
	hubB.View(func(ports.Tree) {
		replica := docB.ElementByUUID(box.ID())
		require.NotNil(t, replica)
		v, _ := replica.Attribute("position")
		assert.Equal(t, "1 2 3", v)
	})
}

func TestHub_EchoSuppression(t *testing.T) {
	docA, docB := scene.New(), scene.New()
	hubA := hub.New(docA)
	hubB := hub.New(docB, hub.WithEchoSuppression(true))
	a, b := memory.Pipe()
	hubA.Connect(a)
	hubB.Connect(b)

	addBox(t, hubA, docA, "1 2 3")
	require.NoError(t, hubA.Flush())

	assert.Equal(t, docA.String(), docB.String())
	assert.False(t, docB.Pending())
}

func TestHub_ConcurrentMutationAndInbound(t *testing.T) {
	doc := scene.New()
	h := hub.New(doc)
	r := memory.NewRecorder()
	h.Connect(r)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			addBox(t, h, doc, fmt.Sprintf("%d 0 0", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			r.Deliver([]byte(fmt.Sprintf(`<packet><sphere uuid="remote-%d"></sphere></packet>`, i)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_ = h.Flush()
		}
	}()
	wg.Wait()
	require.NoError(t, h.Flush())

	var live int
	h.View(func(ports.Tree) { live = doc.Len() })
	assert.Equal(t, 2*n, live)
	assert.False(t, doc.Pending())
}

func TestHub_Run(t *testing.T) {
	doc := scene.New()
	h := hub.New(doc)
	r := memory.NewRecorder()
	h.Connect(r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, 10*time.Millisecond) }()

	addBox(t, h, doc, "1 2 3")
	assert.Eventually(t, func() bool { return len(r.Sent()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestHub_RunFlushesOnShutdown(t *testing.T) {
	doc := scene.New()
	h := hub.New(doc)
	r := memory.NewRecorder()
	h.Connect(r)

	addBox(t, h, doc, "1 2 3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.Run(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, r.Sent(), 1)

	assert.Error(t, h.Run(context.Background(), 0))
}
