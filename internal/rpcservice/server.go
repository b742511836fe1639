package rpcservice

import (
	"context"
	"time"

	"github.com/nimbusgate/accessgraph/pkg/channel"
	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/log"
	"github.com/nimbusgate/accessgraph/pkg/wire"
)

// HealthFunc reports the backend's current health without going through
// the command queue, so a probe stays responsive even when the queue is
// saturated (spec §4.9's supervisor health poll relies on this).
type HealthFunc func() command.HealthResult

// Server answers ExecuteCommand/HealthCheck by submitting to a tenant
// backend's single-writer command channel. One Server exists per
// backend process.
type Server struct {
	queue  *channel.Queue
	health HealthFunc
	logger log.Logger
}

// NewServer builds a Server over queue, reporting health via health.
func NewServer(queue *channel.Queue, health HealthFunc, logger log.Logger) *Server {
	return &Server{queue: queue, health: health, logger: logger}
}

// ExecuteCommand decodes req.commandData per req.commandType, submits it
// to the command channel, and waits for the reply or the request's own
// deadline, whichever comes first.
func (s *Server) ExecuteCommand(ctx context.Context, req *wire.CommandRequest) (*wire.CommandResponse, error) {
	kind := command.Kind(req.CommandType)

	payload, err := wire.DecodeCommandPayload(kind, req.CommandData)
	if err != nil {
		return errResponse(req.CorrelationID, err), nil
	}

	if req.DeadlineMillis > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.DeadlineMillis)*time.Millisecond)
		defer cancel()
	}

	reply, err := s.queue.Submit(ctx, command.Command{Kind: kind, Payload: payload})
	if err != nil {
		return errResponse(req.CorrelationID, err), nil
	}

	select {
	case res := <-reply:
		if res.Err != nil {
			return errResponse(req.CorrelationID, res.Err), nil
		}
		data, err := wire.EncodeResultPayload(res)
		if err != nil {
			return errResponse(req.CorrelationID, err), nil
		}
		return &wire.CommandResponse{Success: true, ResultData: data, CorrelationID: req.CorrelationID}, nil
	case <-ctx.Done():
		return errResponse(req.CorrelationID, errtypes.DeadlineExceeded(string(kind))), nil
	}
}

// HealthCheck reports the backend's health directly from health, never
// touching the command queue.
func (s *Server) HealthCheck(ctx context.Context, _ *wire.HealthRequest) (*wire.HealthResponse, error) {
	h := s.health()
	return &wire.HealthResponse{
		Healthy:             h.Healthy,
		UptimeSeconds:       h.UptimeSeconds,
		CommandsProcessed:   h.CommandsProcessed,
		PersistenceDegraded: h.PersistenceDegraded,
	}, nil
}

func errResponse(correlationID string, err error) *wire.CommandResponse {
	return &wire.CommandResponse{
		Success:       false,
		ErrorKind:     errtypes.Kind(err),
		ErrorMessage:  err.Error(),
		CorrelationID: correlationID,
	}
}
