package rpc

import "google.golang.org/grpc"

const serviceName = "ambonmud.bus.EventBus"

// eventBusServer is implemented by Server; the hand-written ServiceDesc
// below dispatches to it exactly as protoc-gen-go-grpc generated code would.
type eventBusServer interface {
	HandleInboundStream(stream grpc.ServerStream) error
	HandleOutboundStream(stream grpc.ServerStream) error
	HandleInterEngineStream(stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*eventBusServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "InboundStream",
			ServerStreams: true,
			ClientStreams: true,
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				return srv.(eventBusServer).HandleInboundStream(stream)
			},
		},
		{
			StreamName:    "OutboundStream",
			ServerStreams: true,
			ClientStreams: true,
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				return srv.(eventBusServer).HandleOutboundStream(stream)
			},
		},
		{
			StreamName:    "InterEngineStream",
			ServerStreams: true,
			ClientStreams: true,
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				return srv.(eventBusServer).HandleInterEngineStream(stream)
			},
		},
	},
}

func fullMethod(streamName string) string {
	return "/" + serviceName + "/" + streamName
}
