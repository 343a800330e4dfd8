/*
Package scene provides an in-memory scene tree that implements ports.Tree.

A Document owns a root <scene> element and a change tracker. Attaching an
element under the scene makes it (and its subtree) live and marks it created;
attribute writes on live elements mark them dirty; detaching marks them dead.
Detached elements can be mutated freely without being tracked.

A Document is not safe for concurrent use. When it is replicated, every
access goes through the owning hub (hub.Hub.Mutate / View).
*/
package scene
