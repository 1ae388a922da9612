package grpctool

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype both client and server negotiate,
// so the hand-rolled service speaks "application/grpc+json" instead of the
// protobuf wire format grpc-go otherwise assumes.
const codecName = "json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec over
// encoding/json, letting ListTools/CallTool exchange plain Go structs
// without a .proto-generated message type.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
