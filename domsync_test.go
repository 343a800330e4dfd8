package domsync_test

import (
	"testing"

	"github.com/aretw0/domsync"
	"github.com/aretw0/domsync/pkg/adapters/memory"
	"github.com/aretw0/domsync/pkg/domain"
	"github.com/aretw0/domsync/pkg/scene"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync_ReplicatesBetweenPeers(t *testing.T) {
	var applied int
	a := domsync.New()
	b := domsync.New(
		domsync.WithEchoSuppression(true),
		domsync.WithLifecycleHooks(domain.LifecycleHooks{
			OnApply: func(e *domain.ApplyEvent) { applied += e.Applied },
		}),
	)
	left, right := memory.Pipe()
	a.Connect(left)
	b.Connect(right)

	var id string
	require.NoError(t, a.Update(func(doc *scene.Document) error {
		sphere := doc.CreateElement("sphere")
		id = sphere.ID()
		sphere.SetAttribute("position", "1 2 3")
		sphere.SetAttribute("rotation", "0 0 0")
		return doc.Scene().AppendChild(sphere)
	}))
	require.NoError(t, a.Flush())

	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.Equal(t, 1, applied)
	b.View(func(doc *scene.Document) {
		assert.False(t, doc.Pending())
		require.NotNil(t, doc.ElementByUUID(id))
	})

	require.NoError(t, a.Update(func(doc *scene.Document) error {
		return doc.ElementByUUID(id).Remove()
	}))
	require.NoError(t, a.Flush())
	assert.Equal(t, "<scene></scene>", b.String())
}

func TestSync_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := domsync.New(domsync.WithMetrics(reg))
	require.NotNil(t, s.Metrics())

	r := memory.NewRecorder()
	h := s.Connect(r)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().Connections))

	require.NoError(t, s.Ingest([]byte(`<packet><box uuid="b1"></box></packet>`)))
	require.NoError(t, s.Flush())
	assert.Equal(t, []string{`<packet><box uuid="b1"></box></packet>`}, r.Sent())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().PacketsSent))

	assert.True(t, s.Disconnect(h))
	assert.Nil(t, domsync.New().Metrics())
}
