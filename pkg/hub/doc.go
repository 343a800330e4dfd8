/*
Package hub implements the replication hub.

A Hub owns a tree and a set of connected channels. Flush drains the tree's
change tracker, encodes one packet and sends the same bytes to every connected
channel; inbound messages are decoded and merged into the tree by the
reconciler. Every failure is confined to one packet, one entry or one channel
and is reported through lifecycle hooks and the logger instead of being
propagated as a crash.

# Concurrency

A single mutex serializes all tree access: local mutations (Mutate, View),
inbound reconciliation and the drain/encode step of Flush. Flushes are
serialized among themselves so packets leave in drain order, but the tree lock
is released before channels are written to. Membership is guarded separately;
a disconnected handle stops receiving broadcasts and its late inbound messages
are ignored.
*/
package hub
