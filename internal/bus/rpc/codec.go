// Package rpc implements the streaming-RPC EventBus variant: three long-lived
// bidirectional gRPC streams per gateway<->engine pair (inbound, outbound
// and inter-engine), each carrying a monotonically increasing per-stream
// sequence number, and reconnect-with-backoff. The engine acks each inbound
// and inter-engine frame it receives; outbound frames are not acked, and
// acks are not used to replay anything after a reconnect.
//
// Rather than generating stubs from a .proto with protoc, the service is
// registered by hand against a custom grpc codec (msgpack, the same
// encoding the pub/sub variant uses for envelope payloads) so the wire
// messages defined in wire.go need no generated code to satisfy grpc's
// Marshal/Unmarshal contract.
package rpc

import (
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc/encoding"
)

const codecName = "msgpack"

type msgpackCodec struct{}

func (msgpackCodec) Marshal(v interface{}) ([]byte, error) { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}
func (msgpackCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(msgpackCodec{})
}
