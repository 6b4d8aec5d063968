package wire

// Consolidation selects reply-deduplication policy at the querier.
// Default is a wire-distinct sentinel that client code treats as Latest
// but which is preserved on the wire so routers can apply their own
// defaults.
type Consolidation uint8

const (
	ConsolidationNone      Consolidation = 0
	ConsolidationMonotonic Consolidation = 1
	ConsolidationLatest    Consolidation = 2
	ConsolidationDefault   Consolidation = 3
)

// AsEffective maps the wire-level Default sentinel to Latest for local
// buffering decisions.
func (c Consolidation) AsEffective() Consolidation {
	if c == ConsolidationDefault {
		return ConsolidationLatest
	}
	return c
}

var putExtKnown = map[uint8]bool{ExtTimestamp: true, ExtSourceInfo: true, ExtAttachment: true}

// PutBody is the zenoh-body carried by a Push or a Request/Response
// signalling a write.
type PutBody struct {
	Encoding   *Encoding
	Timestamp  *Timestamp
	SourceInfo *SourceInfo
	Attachment []byte
	Payload    []byte
}

func EncodePutBody(body PutBody) []byte {
	var exts []Extension
	if body.Timestamp != nil {
		exts = append(exts, Extension{ID: ExtTimestamp, Mandatory: false, Encoding: ExtZBuf, Buf: AppendTimestamp(nil, *body.Timestamp)})
	}
	if body.SourceInfo != nil {
		exts = append(exts, Extension{ID: ExtSourceInfo, Mandatory: false, Encoding: ExtZBuf, Buf: AppendSourceInfo(nil, *body.SourceInfo)})
	}
	if body.Attachment != nil {
		exts = append(exts, Extension{ID: ExtAttachment, Mandatory: false, Encoding: ExtZBuf, Buf: body.Attachment})
	}
	h := Header{ID: uint8(ZMidPut), Flag1: body.Encoding != nil, Z: len(exts) > 0}
	buf := []byte{h.Encode()}
	if body.Encoding != nil {
		buf = AppendEncoding(buf, *body.Encoding)
	}
	if len(exts) > 0 {
		buf = AppendExtensions(buf, exts)
	}
	buf = append(buf, body.Payload...)
	return buf
}

func DecodePutBody(c *Cursor) (PutBody, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return PutBody{}, err
	}
	h := DecodeHeader(hb)
	var body PutBody
	if h.Flag1 {
		enc, err := ReadEncoding(c)
		if err != nil {
			return PutBody{}, err
		}
		body.Encoding = &enc
	}
	if h.Z {
		exts, err := DecodeExtensions(c)
		if err != nil {
			return PutBody{}, err
		}
		if err := CheckUnknownMandatory(exts, putExtKnown); err != nil {
			return PutBody{}, err
		}
		if err := applyPutExtensions(&body, exts); err != nil {
			return PutBody{}, err
		}
	}
	payload, err := c.ReadN(c.Remaining())
	if err != nil {
		return PutBody{}, err
	}
	body.Payload = payload
	return body, nil
}

func applyPutExtensions(body *PutBody, exts []Extension) error {
	if e, ok := FindExtension(exts, ExtTimestamp); ok {
		ts, err := ReadTimestamp(NewCursor(e.Buf, 0))
		if err != nil {
			return err
		}
		body.Timestamp = &ts
	}
	if e, ok := FindExtension(exts, ExtSourceInfo); ok {
		si, err := ReadSourceInfo(NewCursor(e.Buf, 0))
		if err != nil {
			return err
		}
		body.SourceInfo = &si
	}
	if e, ok := FindExtension(exts, ExtAttachment); ok {
		body.Attachment = e.Buf
	}
	return nil
}

var deleteExtKnown = putExtKnown

// DeleteBody is the zenoh-body carried by a Push or Request signalling
// a deletion (no payload).
type DeleteBody struct {
	Timestamp  *Timestamp
	SourceInfo *SourceInfo
	Attachment []byte
}

func EncodeDeleteBody(body DeleteBody) []byte {
	var exts []Extension
	if body.Timestamp != nil {
		exts = append(exts, Extension{ID: ExtTimestamp, Encoding: ExtZBuf, Buf: AppendTimestamp(nil, *body.Timestamp)})
	}
	if body.SourceInfo != nil {
		exts = append(exts, Extension{ID: ExtSourceInfo, Encoding: ExtZBuf, Buf: AppendSourceInfo(nil, *body.SourceInfo)})
	}
	if body.Attachment != nil {
		exts = append(exts, Extension{ID: ExtAttachment, Encoding: ExtZBuf, Buf: body.Attachment})
	}
	h := Header{ID: uint8(ZMidDelete), Z: len(exts) > 0}
	buf := []byte{h.Encode()}
	if len(exts) > 0 {
		buf = AppendExtensions(buf, exts)
	}
	return buf
}

func DecodeDeleteBody(c *Cursor) (DeleteBody, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return DeleteBody{}, err
	}
	h := DecodeHeader(hb)
	var body DeleteBody
	if h.Z {
		exts, err := DecodeExtensions(c)
		if err != nil {
			return DeleteBody{}, err
		}
		if err := CheckUnknownMandatory(exts, deleteExtKnown); err != nil {
			return DeleteBody{}, err
		}
		if e, ok := FindExtension(exts, ExtTimestamp); ok {
			ts, err := ReadTimestamp(NewCursor(e.Buf, 0))
			if err != nil {
				return DeleteBody{}, err
			}
			body.Timestamp = &ts
		}
		if e, ok := FindExtension(exts, ExtSourceInfo); ok {
			si, err := ReadSourceInfo(NewCursor(e.Buf, 0))
			if err != nil {
				return DeleteBody{}, err
			}
			body.SourceInfo = &si
		}
		if e, ok := FindExtension(exts, ExtAttachment); ok {
			body.Attachment = e.Buf
		}
	}
	return body, nil
}

var queryExtKnown = map[uint8]bool{ExtSourceInfo: true, ExtValue: true, ExtAttachment: true}

// QueryValue is the optional inline value a Query may carry (used by
// get() calls that pass a request body rather than only parameters).
type QueryValue struct {
	Encoding Encoding
	Payload  []byte
}

// QueryBody is the zenoh-body carried by a Request performing a query.
type QueryBody struct {
	Consolidation *Consolidation
	Parameters    []byte
	SourceInfo    *SourceInfo
	Value         *QueryValue
	Attachment    []byte
}

func EncodeQueryBody(body QueryBody) []byte {
	var exts []Extension
	if body.SourceInfo != nil {
		exts = append(exts, Extension{ID: ExtSourceInfo, Encoding: ExtZBuf, Buf: AppendSourceInfo(nil, *body.SourceInfo)})
	}
	if body.Value != nil {
		buf := AppendEncoding(nil, body.Value.Encoding)
		buf = append(buf, body.Value.Payload...)
		exts = append(exts, Extension{ID: ExtValue, Encoding: ExtZBuf, Buf: buf})
	}
	if body.Attachment != nil {
		exts = append(exts, Extension{ID: ExtAttachment, Encoding: ExtZBuf, Buf: body.Attachment})
	}
	h := Header{ID: uint8(ZMidQuery), Flag1: body.Consolidation != nil, Flag2: body.Parameters != nil, Z: len(exts) > 0}
	buf := []byte{h.Encode()}
	if body.Consolidation != nil {
		buf = append(buf, byte(*body.Consolidation))
	}
	if body.Parameters != nil {
		buf = AppendVarint(buf, uint64(len(body.Parameters)))
		buf = append(buf, body.Parameters...)
	}
	if len(exts) > 0 {
		buf = AppendExtensions(buf, exts)
	}
	return buf
}

func DecodeQueryBody(c *Cursor) (QueryBody, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return QueryBody{}, err
	}
	h := DecodeHeader(hb)
	var body QueryBody
	if h.Flag1 {
		cb, err := c.ReadByte()
		if err != nil {
			return QueryBody{}, err
		}
		cons := Consolidation(cb)
		body.Consolidation = &cons
	}
	if h.Flag2 {
		raw, err := c.ReadLenPrefixed()
		if err != nil {
			return QueryBody{}, err
		}
		body.Parameters = raw
	}
	if h.Z {
		exts, err := DecodeExtensions(c)
		if err != nil {
			return QueryBody{}, err
		}
		if err := CheckUnknownMandatory(exts, queryExtKnown); err != nil {
			return QueryBody{}, err
		}
		if e, ok := FindExtension(exts, ExtSourceInfo); ok {
			si, err := ReadSourceInfo(NewCursor(e.Buf, 0))
			if err != nil {
				return QueryBody{}, err
			}
			body.SourceInfo = &si
		}
		if e, ok := FindExtension(exts, ExtValue); ok {
			vc := NewCursor(e.Buf, 0)
			enc, err := ReadEncoding(vc)
			if err != nil {
				return QueryBody{}, err
			}
			payload, err := vc.ReadN(vc.Remaining())
			if err != nil {
				return QueryBody{}, err
			}
			body.Value = &QueryValue{Encoding: enc, Payload: payload}
		}
		if e, ok := FindExtension(exts, ExtAttachment); ok {
			body.Attachment = e.Buf
		}
	}
	return body, nil
}

// ReplyKind distinguishes a Reply body that carries a Put from one that
// carries a Delete.
type ReplyKind uint8

const (
	ReplyPut    ReplyKind = 0
	ReplyDelete ReplyKind = 1
)

// ReplyBody is a Put or Delete body, with an optional consolidation
// override.
type ReplyBody struct {
	Kind          ReplyKind
	Put           PutBody
	Delete        DeleteBody
	Consolidation *Consolidation
}

func EncodeReplyBody(body ReplyBody) []byte {
	h := Header{ID: uint8(ZMidReply), Flag1: body.Consolidation != nil, Flag2: body.Kind == ReplyDelete}
	buf := []byte{h.Encode()}
	if body.Consolidation != nil {
		buf = append(buf, byte(*body.Consolidation))
	}
	if body.Kind == ReplyDelete {
		buf = append(buf, EncodeDeleteBody(body.Delete)...)
	} else {
		buf = append(buf, EncodePutBody(body.Put)...)
	}
	return buf
}

func DecodeReplyBody(c *Cursor) (ReplyBody, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return ReplyBody{}, err
	}
	h := DecodeHeader(hb)
	var body ReplyBody
	if h.Flag1 {
		cb, err := c.ReadByte()
		if err != nil {
			return ReplyBody{}, err
		}
		cons := Consolidation(cb)
		body.Consolidation = &cons
	}
	if h.Flag2 {
		body.Kind = ReplyDelete
		d, err := DecodeDeleteBody(c)
		if err != nil {
			return ReplyBody{}, err
		}
		body.Delete = d
	} else {
		body.Kind = ReplyPut
		p, err := DecodePutBody(c)
		if err != nil {
			return ReplyBody{}, err
		}
		body.Put = p
	}
	return body, nil
}

var errExtKnown = map[uint8]bool{ExtSourceInfo: true}

// ErrBody answers a Request with a failure.
type ErrBody struct {
	Encoding   *Encoding
	Payload    []byte
	SourceInfo *SourceInfo
}

func EncodeErrBody(body ErrBody) []byte {
	var exts []Extension
	if body.SourceInfo != nil {
		exts = append(exts, Extension{ID: ExtSourceInfo, Encoding: ExtZBuf, Buf: AppendSourceInfo(nil, *body.SourceInfo)})
	}
	h := Header{ID: uint8(ZMidErr), Flag1: body.Encoding != nil, Z: len(exts) > 0}
	buf := []byte{h.Encode()}
	if body.Encoding != nil {
		buf = AppendEncoding(buf, *body.Encoding)
	}
	if len(exts) > 0 {
		buf = AppendExtensions(buf, exts)
	}
	buf = append(buf, body.Payload...)
	return buf
}

func DecodeErrBody(c *Cursor) (ErrBody, error) {
	hb, err := c.ReadByte()
	if err != nil {
		return ErrBody{}, err
	}
	h := DecodeHeader(hb)
	var body ErrBody
	if h.Flag1 {
		enc, err := ReadEncoding(c)
		if err != nil {
			return ErrBody{}, err
		}
		body.Encoding = &enc
	}
	if h.Z {
		exts, err := DecodeExtensions(c)
		if err != nil {
			return ErrBody{}, err
		}
		if err := CheckUnknownMandatory(exts, errExtKnown); err != nil {
			return ErrBody{}, err
		}
		if e, ok := FindExtension(exts, ExtSourceInfo); ok {
			si, err := ReadSourceInfo(NewCursor(e.Buf, 0))
			if err != nil {
				return ErrBody{}, err
			}
			body.SourceInfo = &si
		}
	}
	payload, err := c.ReadN(c.Remaining())
	if err != nil {
		return ErrBody{}, err
	}
	body.Payload = payload
	return body, nil
}
