package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nimbusgate/accessgraph/pkg/errtypes"
)

// HealthRequest is spec §6's HealthCheck request; it carries no fields.
type HealthRequest struct{}

// Marshal encodes r (always empty).
func (HealthRequest) Marshal() []byte { return nil }

// UnmarshalHealthRequest decodes a HealthRequest; present for symmetry
// with the other envelope types even though there is nothing to read.
func UnmarshalHealthRequest(data []byte) (HealthRequest, error) {
	return HealthRequest{}, nil
}

// HealthResponse is spec §6's HealthCheck response.
type HealthResponse struct {
	Healthy             bool
	UptimeSeconds       uint64
	CommandsProcessed   uint64
	PersistenceDegraded bool
}

// Marshal encodes r.
func (r HealthResponse) Marshal() []byte {
	var out []byte
	if r.Healthy {
		out = protowire.AppendTag(out, 1, protowire.VarintType)
		out = protowire.AppendVarint(out, 1)
	}
	if r.UptimeSeconds != 0 {
		out = protowire.AppendTag(out, 2, protowire.VarintType)
		out = protowire.AppendVarint(out, r.UptimeSeconds)
	}
	if r.CommandsProcessed != 0 {
		out = protowire.AppendTag(out, 3, protowire.VarintType)
		out = protowire.AppendVarint(out, r.CommandsProcessed)
	}
	if r.PersistenceDegraded {
		out = protowire.AppendTag(out, 4, protowire.VarintType)
		out = protowire.AppendVarint(out, 1)
	}
	return out
}

// UnmarshalHealthResponse decodes a HealthResponse previously produced
// by Marshal.
func UnmarshalHealthResponse(data []byte) (HealthResponse, error) {
	var r HealthResponse
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 || typ != protowire.VarintType {
			return r, errtypes.Internal("wire: malformed HealthResponse tag")
		}
		data = data[n:]
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return r, errtypes.Internal("wire: malformed HealthResponse varint")
		}
		data = data[n:]
		switch num {
		case 1:
			r.Healthy = v != 0
		case 2:
			r.UptimeSeconds = v
		case 3:
			r.CommandsProcessed = v
		case 4:
			r.PersistenceDegraded = v != 0
		}
	}
	return r, nil
}
