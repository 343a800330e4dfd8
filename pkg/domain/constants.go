package domain

// Wire vocabulary of the packet format.
const (
	// TagPacket is the envelope element wrapping every packet.
	TagPacket = "packet"

	// TagDead marks a tombstone entry announcing a removed node.
	TagDead = "dead"

	// TagEvent is reserved for future protocol versions and rejected on apply.
	TagEvent = "event"

	// AttrUUID is the identifier attribute carried by every entry.
	AttrUUID = "uuid"

	// TagScene is the container element new replicated nodes are attached to.
	TagScene = "scene"
)
