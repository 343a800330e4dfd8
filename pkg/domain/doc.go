/*
Package domain contains the core replication types of domsync.

It defines the wire-level vocabulary shared by the codec, the reconciler and the
hub, and is kept free of I/O and of any concrete tree or transport.

# Key Entities

  - Descriptor: one decoded packet entry, a sealed variant of Element, Tombstone or Event.
  - Attribute: an ordered name/value pair carried by elements.
  - ParseError, ProtocolViolation, ChannelSendFailure: the error taxonomy.
  - LifecycleHooks: callbacks used to observe flushes, applies, connections and faults.
*/
package domain
