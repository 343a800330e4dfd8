/*
Package ports defines the driven ports (interfaces) of the replication engine.

These interfaces decouple the hub, the codec and the reconciler from the concrete
tree and transport implementations, so any scene structure and any
message-framed duplex channel can take part in replication.

# Key Interfaces

  - Tree: creates, looks up, attaches and detaches nodes, and drains its own change tracker.
  - Node: a tagged, attributed node addressed by a stable identifier.
  - Channel: a message-framed duplex transport with explicit subscription handles.
  - Muter: optional Tree capability used to suppress change tracking during remote applies.
*/
package ports
