package wire

// This file covers the Transport message family (Join, Init, Open,
// Close, KeepAlive, Frame, Fragment). These are the messages a link
// read loop decodes one at a time; framing of transport messages
// themselves onto a byte stream (length-prefixing for stream links,
// natural packet boundaries for packet links) is the
// internal/transport package's concern, not this package's.

// Scout discovers peers before a session exists.
type Scout struct {
	Version uint8
	What    uint8 // bitmask of desired peer kinds
	ZID     *ZID
}

func EncodeScout(s Scout) []byte {
	h := Header{ID: MidScout, Flag1: s.ZID != nil}
	buf := []byte{h.Encode(), s.Version, s.What}
	if s.ZID != nil {
		buf = AppendZID(buf, *s.ZID)
	}
	return buf
}

func DecodeScout(c *Cursor) (Scout, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return Scout{}, err
	}
	h := DecodeHeader(hb)
	ver, err := c.ReadByte()
	if err != nil {
		return Scout{}, err
	}
	what, err := c.ReadByte()
	if err != nil {
		return Scout{}, err
	}
	s := Scout{Version: ver, What: what}
	if h.Flag1 {
		z, err := ReadZID(c)
		if err != nil {
			return Scout{}, err
		}
		s.ZID = &z
	}
	return s, nil
}

// Hello answers a Scout.
type Hello struct {
	Version  uint8
	What     uint8
	ZID      ZID
	Locators []string
}

func EncodeHello(h Hello) []byte {
	hdr := Header{ID: MidHello}
	buf := []byte{hdr.Encode(), h.Version, h.What}
	buf = AppendZID(buf, h.ZID)
	buf = AppendVarint(buf, uint64(len(h.Locators)))
	for _, l := range h.Locators {
		buf = AppendVarint(buf, uint64(len(l)))
		buf = append(buf, l...)
	}
	return buf
}

func DecodeHello(c *Cursor) (Hello, error) {
	if _, err := c.ReadByte(); err != nil {
		return Hello{}, err
	}
	ver, err := c.ReadByte()
	if err != nil {
		return Hello{}, err
	}
	what, err := c.ReadByte()
	if err != nil {
		return Hello{}, err
	}
	z, err := ReadZID(c)
	if err != nil {
		return Hello{}, err
	}
	n, err := c.ReadVarintLen()
	if err != nil {
		return Hello{}, err
	}
	locs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		raw, err := c.ReadLenPrefixed()
		if err != nil {
			return Hello{}, err
		}
		locs = append(locs, string(raw))
	}
	return Hello{Version: ver, What: what, ZID: z, Locators: locs}, nil
}

// Join is sent periodically on multicast transports to announce
// liveness and negotiate defaults without a full handshake.
type Join struct {
	Version      uint8
	ZID          ZID
	LeaseMs      uint64
	Seconds      bool
	SNResolution uint8
}

func EncodeJoin(j Join) []byte {
	h := Header{ID: MidJoin, Flag1: j.Seconds}
	buf := []byte{h.Encode(), j.Version}
	buf = AppendZID(buf, j.ZID)
	buf = AppendVarint(buf, j.LeaseMs)
	buf = append(buf, j.SNResolution)
	return buf
}

func DecodeJoin(c *Cursor) (Join, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return Join{}, err
	}
	h := DecodeHeader(hb)
	ver, err := c.ReadByte()
	if err != nil {
		return Join{}, err
	}
	z, err := ReadZID(c)
	if err != nil {
		return Join{}, err
	}
	lease, err := ReadVarintAs[uint64](c)
	if err != nil {
		return Join{}, err
	}
	res, err := c.ReadByte()
	if err != nil {
		return Join{}, err
	}
	return Join{Version: ver, ZID: z, LeaseMs: lease, Seconds: h.Flag1, SNResolution: res}, nil
}

// Init is the first handshake leg (client→peer, Ack=false) and its
// reply (peer→client, Ack=true, carrying the opaque Cookie).
type Init struct {
	Ack          bool
	Version      uint8
	ZID          ZID
	SNResolution uint8
	BatchSize    uint16
	Cookie       []byte // present iff Ack
}

func EncodeInit(i Init) []byte {
	h := Header{ID: MidInit, Flag1: i.Ack}
	buf := []byte{h.Encode(), i.Version}
	buf = AppendZID(buf, i.ZID)
	buf = append(buf, i.SNResolution)
	buf = AppendVarint(buf, uint64(i.BatchSize))
	if i.Ack {
		buf = AppendVarint(buf, uint64(len(i.Cookie)))
		buf = append(buf, i.Cookie...)
	}
	return buf
}

func DecodeInit(c *Cursor) (Init, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return Init{}, err
	}
	h := DecodeHeader(hb)
	ver, err := c.ReadByte()
	if err != nil {
		return Init{}, err
	}
	z, err := ReadZID(c)
	if err != nil {
		return Init{}, err
	}
	res, err := c.ReadByte()
	if err != nil {
		return Init{}, err
	}
	bs, err := ReadVarintAs[uint16](c)
	if err != nil {
		return Init{}, err
	}
	in := Init{Ack: h.Flag1, Version: ver, ZID: z, SNResolution: res, BatchSize: bs}
	if h.Flag1 {
		cookie, err := c.ReadLenPrefixed()
		if err != nil {
			return Init{}, err
		}
		in.Cookie = cookie
	}
	return in, nil
}

// Open is the second handshake leg (client→peer, Ack=false, echoing
// Cookie) and its reply (peer→client, Ack=true).
type Open struct {
	Ack       bool
	Seconds   bool // T flag: LeaseMs unit is seconds, else milliseconds
	LeaseMs   uint64
	InitialSN uint64
	Cookie    []byte // present iff !Ack
}

func EncodeOpen(o Open) []byte {
	h := Header{ID: MidOpen, Flag1: o.Ack, Flag2: o.Seconds}
	buf := []byte{h.Encode()}
	buf = AppendVarint(buf, o.LeaseMs)
	buf = AppendVarint(buf, o.InitialSN)
	if !o.Ack {
		buf = AppendVarint(buf, uint64(len(o.Cookie)))
		buf = append(buf, o.Cookie...)
	}
	return buf
}

func DecodeOpen(c *Cursor) (Open, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return Open{}, err
	}
	h := DecodeHeader(hb)
	lease, err := ReadVarintAs[uint64](c)
	if err != nil {
		return Open{}, err
	}
	isn, err := ReadVarintAs[uint64](c)
	if err != nil {
		return Open{}, err
	}
	o := Open{Ack: h.Flag1, Seconds: h.Flag2, LeaseMs: lease, InitialSN: isn}
	if !h.Flag1 {
		cookie, err := c.ReadLenPrefixed()
		if err != nil {
			return Open{}, err
		}
		o.Cookie = cookie
	}
	return o, nil
}

// Close ends a session with a reason code.
type Close struct {
	Reason uint8
}

func EncodeClose(cl Close) []byte {
	h := Header{ID: MidClose}
	return []byte{h.Encode(), cl.Reason}
}

func DecodeClose(c *Cursor) (Close, error) {
	if _, err := c.ReadByte(); err != nil {
		return Close{}, err
	}
	r, err := c.ReadByte()
	if err != nil {
		return Close{}, err
	}
	return Close{Reason: r}, nil
}

// Close reason codes.
const (
	CloseReasonGeneric  uint8 = 0x00
	CloseReasonUnsupported uint8 = 0x01
	CloseReasonInvalid  uint8 = 0x02
	CloseReasonMaxLink  uint8 = 0x03
	CloseReasonExpired  uint8 = 0x04
)

// KeepAlive carries no payload.
type KeepAlive struct{}

func EncodeKeepAlive() []byte {
	h := Header{ID: MidKeepAlive}
	return []byte{h.Encode()}
}

func DecodeKeepAlive(c *Cursor) (KeepAlive, error) {
	_, err := c.ReadByte()
	return KeepAlive{}, err
}

// Frame carries one or more encoded network messages for one
// (reliability, priority) stream at a single sequence number.
type Frame struct {
	Reliable bool
	SN       uint64
	Priority uint8
	Messages [][]byte
}

func EncodeFrame(f Frame) []byte {
	h := Header{ID: MidFrame, Flag1: f.Reliable}
	buf := []byte{h.Encode()}
	buf = AppendVarint(buf, f.SN)
	buf = append(buf, f.Priority)
	for _, m := range f.Messages {
		buf = AppendVarint(buf, uint64(len(m)))
		buf = append(buf, m...)
	}
	return buf
}

func DecodeFrame(c *Cursor) (Frame, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return Frame{}, err
	}
	h := DecodeHeader(hb)
	sn, err := ReadVarintAs[uint64](c)
	if err != nil {
		return Frame{}, err
	}
	pri, err := c.ReadByte()
	if err != nil {
		return Frame{}, err
	}
	f := Frame{Reliable: h.Flag1, SN: sn, Priority: pri}
	for c.Remaining() > 0 {
		raw, err := c.ReadLenPrefixed()
		if err != nil {
			return Frame{}, err
		}
		f.Messages = append(f.Messages, raw)
	}
	return f, nil
}

// Fragment carries one piece of a network message too large to fit in
// a single Frame's remaining MTU budget.
type Fragment struct {
	Reliable bool
	More     bool
	SN       uint64
	Priority uint8
	Payload  []byte
}

func EncodeFragment(f Fragment) []byte {
	h := Header{ID: MidFragment, Flag1: f.Reliable, Flag2: f.More}
	buf := []byte{h.Encode()}
	buf = AppendVarint(buf, f.SN)
	buf = append(buf, f.Priority)
	return append(buf, f.Payload...)
}

func DecodeFragment(c *Cursor) (Fragment, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return Fragment{}, err
	}
	h := DecodeHeader(hb)
	sn, err := ReadVarintAs[uint64](c)
	if err != nil {
		return Fragment{}, err
	}
	pri, err := c.ReadByte()
	if err != nil {
		return Fragment{}, err
	}
	payload, err := c.ReadN(c.Remaining())
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{Reliable: h.Flag1, More: h.Flag2, SN: sn, Priority: pri, Payload: payload}, nil
}
