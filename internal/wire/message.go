package wire

import "errors"

// ErrUnknownMid is returned when a message's low-5-bit id does not
// match any known message kind at the requested layer.
var ErrUnknownMid = errors.New("wire: unknown message id")

// PeekMid inspects the low 5 bits of buf's leading byte without
// consuming it.
func PeekMid(buf []byte) (uint8, error) {
	if len(buf) == 0 {
		return 0, ErrTruncated
	}
	return buf[0] & 0x1F, nil
}

// TransportMessage is the decoded union of every Transport-family
// message kind; exactly one of the pointer fields is non-nil.
type TransportMessage struct {
	Scout     *Scout
	Hello     *Hello
	Join      *Join
	Init      *Init
	Open      *Open
	Close     *Close
	KeepAlive *KeepAlive
	Frame     *Frame
	Fragment  *Fragment
}

// DecodeTransportMessage decodes one transport-layer message occupying
// the whole of buf.
func DecodeTransportMessage(buf []byte, maxLen int) (TransportMessage, error) {
	mid, err := PeekMid(buf)
	if err != nil {
		return TransportMessage{}, err
	}
	c := NewCursor(buf, maxLen)
	switch mid {
	case MidScout:
		m, err := DecodeScout(c)
		return TransportMessage{Scout: &m}, err
	case MidHello:
		m, err := DecodeHello(c)
		return TransportMessage{Hello: &m}, err
	case MidJoin:
		m, err := DecodeJoin(c)
		return TransportMessage{Join: &m}, err
	case MidInit:
		m, err := DecodeInit(c)
		return TransportMessage{Init: &m}, err
	case MidOpen:
		m, err := DecodeOpen(c)
		return TransportMessage{Open: &m}, err
	case MidClose:
		m, err := DecodeClose(c)
		return TransportMessage{Close: &m}, err
	case MidKeepAlive:
		m, err := DecodeKeepAlive(c)
		return TransportMessage{KeepAlive: &m}, err
	case MidFrame:
		m, err := DecodeFrame(c)
		return TransportMessage{Frame: &m}, err
	case MidFragment:
		m, err := DecodeFragment(c)
		return TransportMessage{Fragment: &m}, err
	default:
		return TransportMessage{}, ErrUnknownMid
	}
}

// NetworkMessage is the decoded union of every Network-family message
// kind; exactly one of the pointer fields is non-nil.
type NetworkMessage struct {
	Declare       *Declare
	Push          *Push
	Request       *Request
	Response      *Response
	ResponseFinal *ResponseFinal
	Interest      *Interest
}

// DecodeNetworkMessage decodes one network-layer message occupying the
// whole of buf (typically one element of a Frame's Messages slice).
func DecodeNetworkMessage(buf []byte) (NetworkMessage, error) {
	mid, err := PeekMid(buf)
	if err != nil {
		return NetworkMessage{}, err
	}
	c := NewCursor(buf, 0)
	switch mid {
	case MidDeclare:
		m, err := DecodeDeclare(c)
		return NetworkMessage{Declare: &m}, err
	case MidPush:
		m, err := DecodePush(c)
		return NetworkMessage{Push: &m}, err
	case MidRequest:
		m, err := DecodeRequest(c)
		return NetworkMessage{Request: &m}, err
	case MidResponse:
		m, err := DecodeResponse(c)
		return NetworkMessage{Response: &m}, err
	case MidResponseFinal:
		m, err := DecodeResponseFinal(c)
		return NetworkMessage{ResponseFinal: &m}, err
	case MidInterest:
		m, err := DecodeInterest(c)
		return NetworkMessage{Interest: &m}, err
	default:
		return NetworkMessage{}, ErrUnknownMid
	}
}
