package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nimbusgate/accessgraph/pkg/errtypes"
)

// CommandRequest is the gateway-to-backend envelope of spec §6: a
// command kind name, its opaque tagged-field payload, a correlation id
// for matching replies out of order, and an optional deadline.
type CommandRequest struct {
	CommandType    string
	CommandData    []byte
	CorrelationID  string
	DeadlineMillis uint32
}

// CommandResponse is the backend-to-gateway reply envelope of spec §6.
type CommandResponse struct {
	Success       bool
	ResultData    []byte
	ErrorKind     string
	ErrorMessage  string
	CorrelationID string
}

// Marshal encodes r using the same tagged-field scheme as payloads, one
// field number per struct field in declaration order.
func (r CommandRequest) Marshal() []byte {
	var out []byte
	if r.CommandType != "" {
		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendString(out, r.CommandType)
	}
	if len(r.CommandData) > 0 {
		out = protowire.AppendTag(out, 2, protowire.BytesType)
		out = protowire.AppendBytes(out, r.CommandData)
	}
	if r.CorrelationID != "" {
		out = protowire.AppendTag(out, 3, protowire.BytesType)
		out = protowire.AppendString(out, r.CorrelationID)
	}
	if r.DeadlineMillis != 0 {
		out = protowire.AppendTag(out, 4, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(r.DeadlineMillis))
	}
	return out
}

// UnmarshalCommandRequest decodes a CommandRequest previously produced
// by Marshal.
func UnmarshalCommandRequest(data []byte) (CommandRequest, error) {
	var r CommandRequest
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return r, errtypes.Internal("wire: malformed CommandRequest tag")
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return r, errtypes.Internal("wire: malformed CommandRequest.commandType")
			}
			r.CommandType = string(b)
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return r, errtypes.Internal("wire: malformed CommandRequest.commandData")
			}
			r.CommandData = append([]byte(nil), b...)
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return r, errtypes.Internal("wire: malformed CommandRequest.correlationId")
			}
			r.CorrelationID = string(b)
			data = data[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return r, errtypes.Internal("wire: malformed CommandRequest.deadlineMillis")
			}
			r.DeadlineMillis = uint32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return r, errtypes.Internal("wire: malformed CommandRequest field")
			}
			data = data[n:]
		}
	}
	return r, nil
}

// Marshal encodes r.
func (r CommandResponse) Marshal() []byte {
	var out []byte
	if r.Success {
		out = protowire.AppendTag(out, 1, protowire.VarintType)
		out = protowire.AppendVarint(out, 1)
	}
	if len(r.ResultData) > 0 {
		out = protowire.AppendTag(out, 2, protowire.BytesType)
		out = protowire.AppendBytes(out, r.ResultData)
	}
	if r.ErrorKind != "" {
		out = protowire.AppendTag(out, 3, protowire.BytesType)
		out = protowire.AppendString(out, r.ErrorKind)
	}
	if r.ErrorMessage != "" {
		out = protowire.AppendTag(out, 4, protowire.BytesType)
		out = protowire.AppendString(out, r.ErrorMessage)
	}
	if r.CorrelationID != "" {
		out = protowire.AppendTag(out, 5, protowire.BytesType)
		out = protowire.AppendString(out, r.CorrelationID)
	}
	return out
}

// UnmarshalCommandResponse decodes a CommandResponse previously produced
// by Marshal.
func UnmarshalCommandResponse(data []byte) (CommandResponse, error) {
	var r CommandResponse
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return r, errtypes.Internal("wire: malformed CommandResponse tag")
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return r, errtypes.Internal("wire: malformed CommandResponse.success")
			}
			r.Success = v != 0
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return r, errtypes.Internal("wire: malformed CommandResponse.resultData")
			}
			r.ResultData = append([]byte(nil), b...)
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return r, errtypes.Internal("wire: malformed CommandResponse.errorKind")
			}
			r.ErrorKind = string(b)
			data = data[n:]
		case num == 4 && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return r, errtypes.Internal("wire: malformed CommandResponse.errorMessage")
			}
			r.ErrorMessage = string(b)
			data = data[n:]
		case num == 5 && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return r, errtypes.Internal("wire: malformed CommandResponse.correlationId")
			}
			r.CorrelationID = string(b)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return r, errtypes.Internal("wire: malformed CommandResponse field")
			}
			data = data[n:]
		}
	}
	return r, nil
}
