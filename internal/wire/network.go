package wire

// PeekZMid inspects the low 5 bits of a zenoh-body's leading byte
// without consuming it, letting a caller dispatch to DecodePutBody /
// DecodeDeleteBody / ... before committing a cursor position.
func PeekZMid(body []byte) (ZMid, error) {
	if len(body) == 0 {
		return 0, ErrTruncated
	}
	return ZMid(body[0] & 0x1F), nil
}

var pushExtKnown = map[uint8]bool{ExtQoS: true, ExtTimestamp: true}

// Push is a fire-and-forget network message carrying an embedded
// Put or Delete zenoh-body.
type Push struct {
	Key       WireKey
	QoS       QoS
	Timestamp *Timestamp
	Body      []byte // encoded PutBody or DeleteBody; dispatch via PeekZMid
}

func EncodePush(p Push) []byte {
	exts := []Extension{{ID: ExtQoS, Mandatory: true, Encoding: ExtZInt, IntVal: uint64(p.QoS.Encode())}}
	if p.Timestamp != nil {
		exts = append(exts, Extension{ID: ExtTimestamp, Encoding: ExtZBuf, Buf: AppendTimestamp(nil, *p.Timestamp)})
	}
	h := Header{ID: MidPush, Flag1: p.Key.SuffixPresent, Flag2: p.Key.SenderMapping, Z: true}
	buf := []byte{h.Encode()}
	buf = AppendWireKey(buf, p.Key)
	buf = AppendExtensions(buf, exts)
	return append(buf, p.Body...)
}

func DecodePush(c *Cursor) (Push, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return Push{}, err
	}
	h := DecodeHeader(hb)
	key, err := ReadWireKey(c, h.Flag1, h.Flag2)
	if err != nil {
		return Push{}, err
	}
	p := Push{Key: key, QoS: DefaultQoS}
	if h.Z {
		exts, err := DecodeExtensions(c)
		if err != nil {
			return Push{}, err
		}
		if err := CheckUnknownMandatory(exts, pushExtKnown); err != nil {
			return Push{}, err
		}
		if e, ok := FindExtension(exts, ExtQoS); ok {
			p.QoS = DecodeQoS(byte(e.IntVal))
		}
		if e, ok := FindExtension(exts, ExtTimestamp); ok {
			ts, err := ReadTimestamp(NewCursor(e.Buf, 0))
			if err != nil {
				return Push{}, err
			}
			p.Timestamp = &ts
		}
	}
	body, err := c.ReadN(c.Remaining())
	if err != nil {
		return Push{}, err
	}
	p.Body = body
	return p, nil
}

var requestExtKnown = map[uint8]bool{ExtQoS: true, ExtTimestamp: true}

// Request carries a query or an ack-requiring write, embedding a
// QueryBody or PutBody/DeleteBody.
type Request struct {
	RequestID uint32
	Key       WireKey
	QoS       QoS
	Timestamp *Timestamp
	Body      []byte
}

func EncodeRequest(r Request) []byte {
	exts := []Extension{{ID: ExtQoS, Mandatory: true, Encoding: ExtZInt, IntVal: uint64(r.QoS.Encode())}}
	if r.Timestamp != nil {
		exts = append(exts, Extension{ID: ExtTimestamp, Encoding: ExtZBuf, Buf: AppendTimestamp(nil, *r.Timestamp)})
	}
	h := Header{ID: MidRequest, Flag1: r.Key.SuffixPresent, Flag2: r.Key.SenderMapping, Z: true}
	buf := []byte{h.Encode()}
	buf = AppendVarint(buf, uint64(r.RequestID))
	buf = AppendWireKey(buf, r.Key)
	buf = AppendExtensions(buf, exts)
	return append(buf, r.Body...)
}

func DecodeRequest(c *Cursor) (Request, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return Request{}, err
	}
	h := DecodeHeader(hb)
	rid, err := ReadVarintAs[uint32](c)
	if err != nil {
		return Request{}, err
	}
	key, err := ReadWireKey(c, h.Flag1, h.Flag2)
	if err != nil {
		return Request{}, err
	}
	r := Request{RequestID: rid, Key: key, QoS: DefaultQoS}
	if h.Z {
		exts, err := DecodeExtensions(c)
		if err != nil {
			return Request{}, err
		}
		if err := CheckUnknownMandatory(exts, requestExtKnown); err != nil {
			return Request{}, err
		}
		if e, ok := FindExtension(exts, ExtQoS); ok {
			r.QoS = DecodeQoS(byte(e.IntVal))
		}
		if e, ok := FindExtension(exts, ExtTimestamp); ok {
			ts, err := ReadTimestamp(NewCursor(e.Buf, 0))
			if err != nil {
				return Request{}, err
			}
			r.Timestamp = &ts
		}
	}
	body, err := c.ReadN(c.Remaining())
	if err != nil {
		return Request{}, err
	}
	r.Body = body
	return r, nil
}

var responseExtKnown = map[uint8]bool{ExtQoS: true, ExtTimestamp: true}

// Response answers a Request, embedding a ReplyBody or ErrBody.
type Response struct {
	RequestID uint32
	Key       WireKey
	QoS       QoS
	Timestamp *Timestamp
	Body      []byte
}

func EncodeResponse(r Response) []byte {
	exts := []Extension{{ID: ExtQoS, Mandatory: true, Encoding: ExtZInt, IntVal: uint64(r.QoS.Encode())}}
	if r.Timestamp != nil {
		exts = append(exts, Extension{ID: ExtTimestamp, Encoding: ExtZBuf, Buf: AppendTimestamp(nil, *r.Timestamp)})
	}
	h := Header{ID: MidResponse, Flag1: r.Key.SuffixPresent, Flag2: r.Key.SenderMapping, Z: true}
	buf := []byte{h.Encode()}
	buf = AppendVarint(buf, uint64(r.RequestID))
	buf = AppendWireKey(buf, r.Key)
	buf = AppendExtensions(buf, exts)
	return append(buf, r.Body...)
}

func DecodeResponse(c *Cursor) (Response, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return Response{}, err
	}
	h := DecodeHeader(hb)
	rid, err := ReadVarintAs[uint32](c)
	if err != nil {
		return Response{}, err
	}
	key, err := ReadWireKey(c, h.Flag1, h.Flag2)
	if err != nil {
		return Response{}, err
	}
	r := Response{RequestID: rid, Key: key, QoS: DefaultQoS}
	if h.Z {
		exts, err := DecodeExtensions(c)
		if err != nil {
			return Response{}, err
		}
		if err := CheckUnknownMandatory(exts, responseExtKnown); err != nil {
			return Response{}, err
		}
		if e, ok := FindExtension(exts, ExtQoS); ok {
			r.QoS = DecodeQoS(byte(e.IntVal))
		}
		if e, ok := FindExtension(exts, ExtTimestamp); ok {
			ts, err := ReadTimestamp(NewCursor(e.Buf, 0))
			if err != nil {
				return Response{}, err
			}
			r.Timestamp = &ts
		}
	}
	body, err := c.ReadN(c.Remaining())
	if err != nil {
		return Response{}, err
	}
	r.Body = body
	return r, nil
}

// ResponseFinal closes out a Request's reply stream.
type ResponseFinal struct {
	RequestID uint32
}

func EncodeResponseFinal(f ResponseFinal) []byte {
	h := Header{ID: MidResponseFinal}
	buf := []byte{h.Encode()}
	return AppendVarint(buf, uint64(f.RequestID))
}

func DecodeResponseFinal(c *Cursor) (ResponseFinal, error) {
	if _, err := c.ReadByte(); err != nil {
		return ResponseFinal{}, err
	}
	rid, err := ReadVarintAs[uint32](c)
	if err != nil {
		return ResponseFinal{}, err
	}
	return ResponseFinal{RequestID: rid}, nil
}

// Interest mask bits.
const (
	InterestKeyexpr   uint8 = 1 << 0
	InterestSubscriber uint8 = 1 << 1
	InterestQueryable  uint8 = 1 << 2
	InterestToken      uint8 = 1 << 3
)

// Interest asks the peer to notify of current and/or future
// declarations matching Key and Mask.
type Interest struct {
	ID          uint32
	Mask        uint8
	Key         WireKey
	Restricted  bool
	Current     bool
	Future      bool
	Aggregate   bool
}

func EncodeInterest(i Interest) []byte {
	h := Header{ID: MidInterest, Flag1: i.Key.SuffixPresent, Flag2: i.Key.SenderMapping}
	buf := []byte{h.Encode()}
	buf = AppendVarint(buf, uint64(i.ID))
	var flags uint8
	if i.Restricted {
		flags |= 1 << 0
	}
	if i.Current {
		flags |= 1 << 1
	}
	if i.Future {
		flags |= 1 << 2
	}
	if i.Aggregate {
		flags |= 1 << 3
	}
	buf = append(buf, i.Mask, flags)
	buf = AppendWireKey(buf, i.Key)
	return buf
}

func DecodeInterest(c *Cursor) (Interest, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return Interest{}, err
	}
	h := DecodeHeader(hb)
	id, err := ReadVarintAs[uint32](c)
	if err != nil {
		return Interest{}, err
	}
	mask, err := c.ReadByte()
	if err != nil {
		return Interest{}, err
	}
	flags, err := c.ReadByte()
	if err != nil {
		return Interest{}, err
	}
	key, err := ReadWireKey(c, h.Flag1, h.Flag2)
	if err != nil {
		return Interest{}, err
	}
	return Interest{
		ID:         id,
		Mask:       mask,
		Key:        key,
		Restricted: flags&(1<<0) != 0,
		Current:    flags&(1<<1) != 0,
		Future:     flags&(1<<2) != 0,
		Aggregate:  flags&(1<<3) != 0,
	}, nil
}

var declareExtKnown = map[uint8]bool{ExtTimestamp: true, ExtInterestID: true}

// Declaration is one of the nine DeclXxx/UndeclXxx bodies a Declare
// message carries.
type Declaration struct {
	Kind DeclID
	// EntityID is u32 for subscriber/queryable/token declarations, u16
	// for a keyexpr mapping (stored widened).
	EntityID uint32
	Key      WireKey
}

func encodeDeclaration(buf []byte, d Declaration) []byte {
	buf = append(buf, byte(d.Kind))
	if d.Kind == DeclKeyexprID {
		buf = AppendVarint(buf, uint64(uint16(d.EntityID)))
	} else {
		buf = AppendVarint(buf, uint64(d.EntityID))
	}
	return AppendWireKey(buf, d.Key)
}

func decodeDeclaration(c *Cursor, suffixPresent, senderMapping bool) (Declaration, error) {
	kb, err := c.ReadByte()
	if err != nil {
		return Declaration{}, err
	}
	kind := DeclID(kb)
	var eid uint32
	if kind == DeclKeyexprID {
		v, err := ReadVarintAs[uint16](c)
		if err != nil {
			return Declaration{}, err
		}
		eid = uint32(v)
	} else {
		v, err := ReadVarintAs[uint32](c)
		if err != nil {
			return Declaration{}, err
		}
		eid = v
	}
	key, err := ReadWireKey(c, suffixPresent, senderMapping)
	if err != nil {
		return Declaration{}, err
	}
	return Declaration{Kind: kind, EntityID: eid, Key: key}, nil
}

// Declare carries exactly one declaration body, optionally timestamped
// and optionally correlated to the Interest it answers.
type Declare struct {
	Body        Declaration
	Timestamp   *Timestamp
	InterestID  *uint32
}

func EncodeDeclare(d Declare) []byte {
	var exts []Extension
	if d.Timestamp != nil {
		exts = append(exts, Extension{ID: ExtTimestamp, Encoding: ExtZBuf, Buf: AppendTimestamp(nil, *d.Timestamp)})
	}
	if d.InterestID != nil {
		exts = append(exts, Extension{ID: ExtInterestID, Encoding: ExtZInt, IntVal: uint64(*d.InterestID)})
	}
	h := Header{ID: MidDeclare, Flag1: d.Body.Key.SuffixPresent, Flag2: d.Body.Key.SenderMapping, Z: len(exts) > 0}
	buf := []byte{h.Encode()}
	buf = encodeDeclaration(buf, d.Body)
	if len(exts) > 0 {
		buf = AppendExtensions(buf, exts)
	}
	return buf
}

func DecodeDeclare(c *Cursor) (Declare, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return Declare{}, err
	}
	h := DecodeHeader(hb)
	body, err := decodeDeclaration(c, h.Flag1, h.Flag2)
	if err != nil {
		return Declare{}, err
	}
	d := Declare{Body: body}
	if h.Z {
		exts, err := DecodeExtensions(c)
		if err != nil {
			return Declare{}, err
		}
		if err := CheckUnknownMandatory(exts, declareExtKnown); err != nil {
			return Declare{}, err
		}
		if e, ok := FindExtension(exts, ExtTimestamp); ok {
			ts, err := ReadTimestamp(NewCursor(e.Buf, 0))
			if err != nil {
				return Declare{}, err
			}
			d.Timestamp = &ts
		}
		if e, ok := FindExtension(exts, ExtInterestID); ok {
			v := uint32(e.IntVal)
			d.InterestID = &v
		}
	}
	return d, nil
}
