package wire

import "errors"

// ErrUnknownMandatoryExt is returned when decoding encounters an
// extension marked mandatory whose id the decoder does not recognize:
// an unknown mandatory extension is a decode error.
var ErrUnknownMandatoryExt = errors.New("wire: unknown mandatory extension")

// Header is the one-byte common header every message starts with: the
// low 5 bits select the message id, the upper 3 bits are flags, and the
// top bit (Z) signals that an extension chain follows.
type Header struct {
	ID    uint8
	Flag1 bool // bit 5, message-specific meaning (e.g. "suffix present")
	Flag2 bool // bit 6, message-specific meaning (e.g. "sender-defined mapping")
	Z     bool // bit 7: extensions follow
}

// Encode packs the header into its single wire byte.
func (h Header) Encode() byte {
	b := h.ID & 0x1F
	if h.Flag1 {
		b |= 0x20
	}
	if h.Flag2 {
		b |= 0x40
	}
	if h.Z {
		b |= 0x80
	}
	return b
}

// DecodeHeader unpacks the common header byte.
func DecodeHeader(b byte) Header {
	return Header{
		ID:    b & 0x1F,
		Flag1: b&0x20 != 0,
		Flag2: b&0x40 != 0,
		Z:     b&0x80 != 0,
	}
}

// ExtEncoding is the 2-bit encoding tag on an extension header byte.
type ExtEncoding uint8

const (
	ExtUnit ExtEncoding = 0
	ExtZInt ExtEncoding = 1
	ExtZBuf ExtEncoding = 2
)

// Extension is one (header, body) tuple in an extension chain. Buf is
// aliased into the decode buffer, not copied.
type Extension struct {
	ID        uint8
	Mandatory bool
	Encoding  ExtEncoding
	IntVal    uint64
	Buf       []byte
}

func (e Extension) headerByte(hasNext bool) byte {
	b := e.ID & 0x0F
	b |= uint8(e.Encoding&0x3) << 4
	if e.Mandatory {
		b |= 0x40
	}
	if hasNext {
		b |= 0x80
	}
	return b
}

// AppendExtensions encodes a chain of extensions, chaining each to the
// next via bit 7 of its header byte.
func AppendExtensions(buf []byte, exts []Extension) []byte {
	for i, e := range exts {
		hasNext := i+1 < len(exts)
		buf = append(buf, e.headerByte(hasNext))
		switch e.Encoding {
		case ExtUnit:
		case ExtZInt:
			buf = AppendVarint(buf, e.IntVal)
		case ExtZBuf:
			buf = AppendVarint(buf, uint64(len(e.Buf)))
			buf = append(buf, e.Buf...)
		}
	}
	return buf
}

// DecodeExtensions parses a chain of extensions from c, stopping after
// the first header byte whose chain bit (0x80) is unset.
func DecodeExtensions(c *Cursor) ([]Extension, error) {
	var out []Extension
	for {
		hb, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		ext := Extension{
			ID:        hb & 0x0F,
			Encoding:  ExtEncoding((hb >> 4) & 0x3),
			Mandatory: hb&0x40 != 0,
		}
		hasNext := hb&0x80 != 0
		switch ext.Encoding {
		case ExtUnit:
		case ExtZInt:
			v, err := ReadVarintAs[uint64](c)
			if err != nil {
				return nil, err
			}
			ext.IntVal = v
		case ExtZBuf:
			buf, err := c.ReadLenPrefixed()
			if err != nil {
				return nil, err
			}
			ext.Buf = buf
		default:
			return nil, errors.New("wire: unknown extension encoding")
		}
		out = append(out, ext)
		if !hasNext {
			break
		}
	}
	return out, nil
}

// FindExtension returns the first extension with the given id.
func FindExtension(exts []Extension, id uint8) (Extension, bool) {
	for _, e := range exts {
		if e.ID == id {
			return e, true
		}
	}
	return Extension{}, false
}

// CheckUnknownMandatory rejects any extension whose id is not in known.
func CheckUnknownMandatory(exts []Extension, known map[uint8]bool) error {
	for _, e := range exts {
		if e.Mandatory && !known[e.ID] {
			return ErrUnknownMandatoryExt
		}
	}
	return nil
}
