// Package rpcapi declares the echolater.v1.EchoLater gRPC service shared by
// the server and the CLI client. Messages are plain Go structs carried by a
// JSON codec, so no generated protobuf code is involved.
package rpcapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype of the JSON codec. Clients select it
// with grpc.CallContentSubtype(CodecName).
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
