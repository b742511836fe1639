// Package rpcservice is the gRPC transport between the gateway and a
// tenant backend process (spec §6): a hand-registered grpc.ServiceDesc
// carrying the two RPCs (ExecuteCommand, HealthCheck) and a raw codec
// that hands pkg/wire's already-tagged-field bytes straight to the HTTP/2
// framing layer, since there is no protoc codegen step available to
// produce the usual generated marshal/unmarshal pair.
package rpcservice

import (
	"google.golang.org/grpc/encoding"

	"github.com/nimbusgate/accessgraph/pkg/wire"
)

// CodecName is registered with grpc's encoding package and selected via
// grpc.CallContentSubtype / grpc.ForceServerCodec.
const CodecName = "accessgraph-raw"

// rawMessage is implemented by every envelope type pkg/wire exports.
type rawMessage interface {
	Marshal() []byte
}

func init() {
	encoding.RegisterCodec(codec{})
}

// codec implements grpc/encoding.Codec without depending on
// google.golang.org/protobuf's proto.Message interface: every message
// that crosses this service is already one of pkg/wire's hand-rolled
// envelope types.
type codec struct{}

func (codec) Name() string { return CodecName }

func (codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(rawMessage)
	if !ok {
		return nil, errUnsupportedMessage(v)
	}
	return m.Marshal(), nil
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	switch p := v.(type) {
	case *wire.CommandRequest:
		msg, err := wire.UnmarshalCommandRequest(data)
		if err != nil {
			return err
		}
		*p = msg
	case *wire.CommandResponse:
		msg, err := wire.UnmarshalCommandResponse(data)
		if err != nil {
			return err
		}
		*p = msg
	case *wire.HealthRequest:
		msg, err := wire.UnmarshalHealthRequest(data)
		if err != nil {
			return err
		}
		*p = msg
	case *wire.HealthResponse:
		msg, err := wire.UnmarshalHealthResponse(data)
		if err != nil {
			return err
		}
		*p = msg
	default:
		return errUnsupportedMessage(v)
	}
	return nil
}
