/*
Package domsync replicates a scene graph between peers.

Every peer owns a local tree of elements. Local changes are recorded by a
change tracker, periodically flushed as one text packet and broadcast to every
connected channel; packets received from peers are merged into the local tree
by a reconciler. There is no authority and no history: each packet carries the
full current attribute set of every changed element and a tombstone for every
removed one, so applying a packet twice is harmless.

# Concept

A packet is a small XML-like document:

	<packet><box uuid="01J..." position="1 2 3"></box>
	<dead uuid="01J..." /></packet>

Elements are identified by their uuid. Changing an element's tag on a peer
replaces the element while keeping its attributes; a dead entry removes it.

# Usage

	s := domsync.New(domsync.WithLogger(logger))

	// connect any ports.Channel: websocket, redis, in-memory pipe
	s.Connect(conn)

	_ = s.Update(func(doc *scene.Document) error {
		box := doc.CreateElement("box")
		box.SetAttribute("position", "1 2 3")
		return doc.Scene().AppendChild(box)
	})

	// flush every 100ms until ctx is cancelled
	_ = s.Run(ctx, 100*time.Millisecond)

The cmd/domsync binary serves the same hub over HTTP, WebSocket, SSE and
optionally a Redis pub/sub bridge.
*/
package domsync
