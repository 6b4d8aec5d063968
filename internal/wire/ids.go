package wire

// Network-layer message ids (low 5 bits of the common header).
const (
	MidScout         uint8 = 0x01
	MidHello         uint8 = 0x02
	MidJoin          uint8 = 0x03
	MidInit          uint8 = 0x04
	MidOpen          uint8 = 0x05
	MidClose         uint8 = 0x06
	MidKeepAlive     uint8 = 0x07
	MidFrame         uint8 = 0x08
	MidFragment      uint8 = 0x09
	MidInterest      uint8 = 0x19
	MidResponseFinal uint8 = 0x1A
	MidResponse      uint8 = 0x1B
	MidRequest       uint8 = 0x1C
	MidPush          uint8 = 0x1D
	MidDeclare       uint8 = 0x1E
	MidOAM           uint8 = 0x1F
)

// Zenoh-body message ids. These occupy their own namespace and are read
// immediately after the enclosing Push/Request/Response header.
type ZMid uint8

const (
	ZMidPut    ZMid = 0x01
	ZMidDelete ZMid = 0x02
	ZMidQuery  ZMid = 0x03
	ZMidReply  ZMid = 0x04
	ZMidErr    ZMid = 0x05
)

// Declaration body ids, carried as the first byte of a Declare message's
// body.
type DeclID uint8

const (
	DeclResourceID         DeclID = 0x01
	DeclSubscriberID       DeclID = 0x02
	UndeclSubscriberID     DeclID = 0x03
	DeclQueryableID        DeclID = 0x04
	UndeclQueryableID      DeclID = 0x05
	DeclTokenID            DeclID = 0x06
	UndeclTokenID          DeclID = 0x07
	DeclKeyexprID          DeclID = 0x08
	UndeclResourceID       DeclID = 0x09
)
