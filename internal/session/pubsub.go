package session

import "github.com/zenoh-pico-go/zpico/internal/wire"

// PutOptions configures Put/Delete.
type PutOptions struct {
	Encoding          *wire.Encoding
	Timestamp         *wire.Timestamp
	Attachment        []byte
	QoS               wire.QoS
	AllowedDestination Locality
	// Compress, if true, runs the payload through the optional zstd
	// codec (compress.go) before encoding the Put body.
	Compress bool
}

func (o PutOptions) qos() wire.QoS {
	if o.QoS == (wire.QoS{}) {
		return wire.DefaultQoS
	}
	return o.QoS
}

// Put builds a Push carrying a PutBody and delivers it per
// options.AllowedDestination.
func (s *Session) Put(key string, payload []byte, opts PutOptions) error {
	if opts.Compress {
		payload = compressPayload(payload)
	}
	push := wire.Push{
		Key:       wire.WireKey{Suffix: key, SuffixPresent: true},
		QoS:       opts.qos(),
		Timestamp: opts.Timestamp,
		Body: wire.EncodePutBody(wire.PutBody{
			Encoding:   opts.Encoding,
			Timestamp:  opts.Timestamp,
			Attachment: opts.Attachment,
			Payload:    payload,
		}),
	}
	return s.publish(push, opts.AllowedDestination)
}

// Delete builds a Push carrying a DeleteBody.
func (s *Session) Delete(key string, opts PutOptions) error {
	push := wire.Push{
		Key:       wire.WireKey{Suffix: key, SuffixPresent: true},
		QoS:       opts.qos(),
		Timestamp: opts.Timestamp,
		Body: wire.EncodeDeleteBody(wire.DeleteBody{
			Timestamp:  opts.Timestamp,
			Attachment: opts.Attachment,
		}),
	}
	return s.publish(push, opts.AllowedDestination)
}
