package session

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// compressPayload and decompressPayload implement optional payload
// compression (klaupost/compress's zstd): opaque to the wire codec,
// applied/reversed entirely in the session layer before/after the
// Put/Delete body is built.
var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

func getEncoder() *zstd.Encoder {
	encoderOnce.Do(func() {
		encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return encoder
}

func getDecoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		decoder, _ = zstd.NewReader(nil)
	})
	return decoder
}

func compressPayload(payload []byte) []byte {
	enc := getEncoder()
	if enc == nil {
		return payload
	}
	return enc.EncodeAll(payload, make([]byte, 0, len(payload)))
}

func decompressPayload(payload []byte) ([]byte, error) {
	dec := getDecoder()
	if dec == nil {
		return payload, nil
	}
	return dec.DecodeAll(payload, nil)
}
