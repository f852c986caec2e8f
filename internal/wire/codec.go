package wire

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Subprotocol names negotiated on the push handshake.
const (
	SubprotocolJSON = "timekeeper.v1+json"
	SubprotocolCBOR = "timekeeper.v1+cbor"
)

// Codec serializes push frames for one subprotocol.
type Codec interface {
	// Subprotocol is the websocket subprotocol this codec serves.
	Subprotocol() string
	// Binary reports whether frames are binary (otherwise text).
	Binary() bool
	Encode(m Message) ([]byte, error)
	Decode(b []byte) (Message, error)
}

// CodecFor returns the codec for a negotiated subprotocol. An empty or
// unknown name selects JSON, which is what subprotocol-unaware clients speak.
func CodecFor(subprotocol string) Codec {
	if subprotocol == SubprotocolCBOR {
		return CBORCodec{}
	}
	return JSONCodec{}
}

// Subprotocols lists supported subprotocols in server preference order.
func Subprotocols() []string {
	return []string{SubprotocolJSON, SubprotocolCBOR}
}

type jsonEnvelope struct {
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// JSONCodec encodes frames as {"event": ..., "payload": ...} text.
type JSONCodec struct{}

func (JSONCodec) Subprotocol() string { return SubprotocolJSON }
func (JSONCodec) Binary() bool        { return false }

func (JSONCodec) Encode(m Message) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(payloadOf(m))
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonEnvelope{Event: m.Event(), Payload: payload})
}

func (JSONCodec) Decode(b []byte) (Message, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	v, err := newEmpty(env.Event)
	if err != nil {
		return nil, err
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	m := fromDecoded(env.Event, v)
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

type cborEnvelope struct {
	Event   Event           `cbor:"event"`
	Payload cbor.RawMessage `cbor:"payload"`
}

var cborEnc = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}
	return em
}

// CBORCodec encodes the same envelope as JSONCodec in deterministic CBOR
// binary frames. Field names follow the json tags.
type CBORCodec struct{}

func (CBORCodec) Subprotocol() string { return SubprotocolCBOR }
func (CBORCodec) Binary() bool        { return true }

func (CBORCodec) Encode(m Message) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	payload, err := cborEnc.Marshal(payloadOf(m))
	if err != nil {
		return nil, err
	}
	return cborEnc.Marshal(cborEnvelope{Event: m.Event(), Payload: payload})
}

func (CBORCodec) Decode(b []byte) (Message, error) {
	var env cborEnvelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	v, err := newEmpty(env.Event)
	if err != nil {
		return nil, err
	}
	if len(env.Payload) > 0 {
		if err := cbor.Unmarshal(env.Payload, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	m := fromDecoded(env.Event, v)
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}
