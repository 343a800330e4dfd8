/*
Package packet implements the differential wire format.

A packet is an envelope element wrapping zero or more childless entries:

	<packet><box uuid="01J..." position="1 2 3"></box>
	<dead uuid="01H..." /></packet>

Each normal entry carries a tag, the uuid identifier attribute and any further
attributes; each tombstone carries only the identifier. Entry order is the
order of encoding and carries no other meaning.
*/
package packet
