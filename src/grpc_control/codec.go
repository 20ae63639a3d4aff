package grpc_control

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec implements grpc's encoding.Codec under the name "proto". No
// protoc codegen runs as part of this module, so the request/response types
// in types.go are plain Go structs rather than generated proto.Message
// implementations; registering a codec under grpc-go's default content-
// subtype name lets grpc-go's client/server transport and framing still be
// used unmodified, with JSON standing in for the wire encoding.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "proto"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
