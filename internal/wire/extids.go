package wire

// Extension ids shared across the zenoh-body and network message
// families. Each message kind documents which of these it recognizes;
// CheckUnknownMandatory rejects a mandatory extension outside that set.
const (
	ExtTimestamp     uint8 = 0x01
	ExtSourceInfo    uint8 = 0x02
	ExtAttachment    uint8 = 0x03
	ExtConsolidation uint8 = 0x04
	ExtQoS           uint8 = 0x05
	ExtInterestID    uint8 = 0x06
	ExtValue         uint8 = 0x07 // inline value attached to a Query
)
