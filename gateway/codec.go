package gateway

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec decodes gateway frames into events.
type Codec interface {
	// Name identifies the codec in logs and connection negotiation.
	Name() string

	// Decode unmarshals one frame into v.
	Decode(data []byte, v any) error
}

// JSONCodec decodes JSON frames. It is the default.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// MsgpackCodec decodes MessagePack frames, for gateways that negotiate
// the compact binary encoding.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
