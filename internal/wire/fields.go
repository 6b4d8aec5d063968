package wire

// ZID is a 1..16-byte little-endian node identifier. Zero is reserved.
type ZID struct {
	b []byte
}

// NewZID copies b (1..16 bytes) into a ZID.
func NewZID(b []byte) (ZID, error) {
	if len(b) < 1 || len(b) > 16 {
		return ZID{}, ErrTruncated
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return ZID{b: cp}, nil
}

func (z ZID) Bytes() []byte { return z.b }
func (z ZID) Len() int      { return len(z.b) }

// String renders the ZID as lowercase hex.
func (z ZID) String() string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(z.b)*2)
	for i, b := range z.b {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0xf]
	}
	return string(out)
}

func (z ZID) Equal(other ZID) bool {
	if len(z.b) != len(other.b) {
		return false
	}
	for i := range z.b {
		if z.b[i] != other.b[i] {
			return false
		}
	}
	return true
}

// AppendZID writes the ZID length byte "(len-1)<<4" followed by the raw
// bytes, the wire convention for session ids.
func AppendZID(buf []byte, z ZID) []byte {
	lenByte := byte(z.Len()-1) << 4
	buf = append(buf, lenByte)
	return append(buf, z.b...)
}

// ReadZID reads a length-prefixed ZID as encoded by AppendZID.
func ReadZID(c *Cursor) (ZID, error) {
	lb, err := c.ReadByte()
	if err != nil {
		return ZID{}, err
	}
	n := int(lb>>4) + 1
	raw, err := c.ReadN(n)
	if err != nil {
		return ZID{}, err
	}
	return NewZID(raw)
}

// Encoding is a 16-bit numeric id plus an optional UTF-8 schema suffix.
type Encoding struct {
	ID     uint16
	Schema string
}

func AppendEncoding(buf []byte, e Encoding) []byte {
	buf = AppendVarint(buf, uint64(e.ID))
	buf = AppendVarint(buf, uint64(len(e.Schema)))
	return append(buf, e.Schema...)
}

func ReadEncoding(c *Cursor) (Encoding, error) {
	id, err := ReadVarintAs[uint16](c)
	if err != nil {
		return Encoding{}, err
	}
	n, err := c.ReadVarintLen()
	if err != nil {
		return Encoding{}, err
	}
	raw, err := c.ReadN(n)
	if err != nil {
		return Encoding{}, err
	}
	return Encoding{ID: id, Schema: string(raw)}, nil
}

// Timestamp is a 64-bit time value plus the ZID of the hybrid logical
// clock that stamped it. Equality is by (Time, ZID).
type Timestamp struct {
	Time uint64
	ZID  ZID
}

func (t Timestamp) Equal(o Timestamp) bool {
	return t.Time == o.Time && t.ZID.Equal(o.ZID)
}

// Before reports whether t sorts strictly before o by (Time, ZID) —
// ZID bytes break ties so two timestamps with equal Time but different
// clocks still order deterministically.
func (t Timestamp) Before(o Timestamp) bool {
	if t.Time != o.Time {
		return t.Time < o.Time
	}
	a, b := t.ZID.Bytes(), o.ZID.Bytes()
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func AppendTimestamp(buf []byte, t Timestamp) []byte {
	buf = AppendVarint(buf, t.Time)
	return AppendZID(buf, t.ZID)
}

func ReadTimestamp(c *Cursor) (Timestamp, error) {
	tm, err := ReadVarintAs[uint64](c)
	if err != nil {
		return Timestamp{}, err
	}
	z, err := ReadZID(c)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Time: tm, ZID: z}, nil
}

// QoS packs express/nodrop/priority into one byte.
type QoS struct {
	Express  bool
	NoDrop   bool
	Priority uint8 // 0..7
}

// DefaultQoS is (express=false, nodrop=false, priority=5).
var DefaultQoS = QoS{Priority: 5}

func (q QoS) Encode() byte {
	b := q.Priority & 0x07
	if q.NoDrop {
		b |= 0x08
	}
	if q.Express {
		b |= 0x10
	}
	return b
}

func DecodeQoS(b byte) QoS {
	return QoS{
		Priority: b & 0x07,
		NoDrop:   b&0x08 != 0,
		Express:  b&0x10 != 0,
	}
}

// SourceInfo identifies the originating publisher of a sample. The zero
// value is the "absent" sentinel.
type SourceInfo struct {
	SourceZID ZID
	EntityID  uint32
	SourceSN  uint32
}

func (s SourceInfo) IsZero() bool {
	return s.SourceZID.Len() == 0 && s.EntityID == 0 && s.SourceSN == 0
}

func AppendSourceInfo(buf []byte, s SourceInfo) []byte {
	buf = AppendZID(buf, s.SourceZID)
	buf = AppendVarint(buf, uint64(s.EntityID))
	return AppendVarint(buf, uint64(s.SourceSN))
}

func ReadSourceInfo(c *Cursor) (SourceInfo, error) {
	z, err := ReadZID(c)
	if err != nil {
		return SourceInfo{}, err
	}
	eid, err := ReadVarintAs[uint32](c)
	if err != nil {
		return SourceInfo{}, err
	}
	sn, err := ReadVarintAs[uint32](c)
	if err != nil {
		return SourceInfo{}, err
	}
	return SourceInfo{SourceZID: z, EntityID: eid, SourceSN: sn}, nil
}

// WireKey is a key expression as carried on the wire: a resource scope
// id plus an optional string suffix, with a flag recording which side
// assigned the scope mapping.
type WireKey struct {
	ScopeID       uint16
	Suffix        string
	SuffixPresent bool
	SenderMapping bool
}

func AppendWireKey(buf []byte, k WireKey) []byte {
	buf = AppendVarint(buf, uint64(k.ScopeID))
	if k.SuffixPresent {
		buf = AppendVarint(buf, uint64(len(k.Suffix)))
		buf = append(buf, k.Suffix...)
	}
	return buf
}

func ReadWireKey(c *Cursor, suffixPresent, senderMapping bool) (WireKey, error) {
	id, err := ReadVarintAs[uint16](c)
	if err != nil {
		return WireKey{}, err
	}
	k := WireKey{ScopeID: id, SuffixPresent: suffixPresent, SenderMapping: senderMapping}
	if suffixPresent {
		raw, err := c.ReadLenPrefixed()
		if err != nil {
			return WireKey{}, err
		}
		k.Suffix = string(raw)
	}
	return k, nil
}
