// Package httpadapter is the thin REST surface in front of the
// gateway router (spec §6): it translates each inbound request into a
// command variant, dispatches it over a tenant's RPC channel, and maps
// the reply (or a tagged error kind) back onto an HTTP response. It is
// deliberately outside the single-writer core — no domain logic lives
// here, only request shaping and status mapping.
package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nimbusgate/accessgraph/internal/router"
	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/log"
	"github.com/nimbusgate/accessgraph/pkg/wire"
)

// defaultDeadline bounds how long the adapter waits for a dispatched
// command before giving up; propagated to the backend as
// CommandRequest.DeadlineMillis.
const defaultDeadline = 5 * time.Second

// Dispatcher is the subset of router.Router the adapter depends on,
// kept narrow so handlers are testable against a fake.
type Dispatcher interface {
	Dispatch(ctx context.Context, tenantID string, req *wire.CommandRequest) (*wire.CommandResponse, error)
}

var _ Dispatcher = (*router.Router)(nil)

// Server holds the adapter's dependencies and builds its chi router.
type Server struct {
	dispatcher Dispatcher
	logger     log.Logger
	deadline   time.Duration
}

// New builds a Server dispatching every command through d.
func New(d Dispatcher, logger log.Logger) *Server {
	return &Server{dispatcher: d, logger: logger, deadline: defaultDeadline}
}

// Routes builds the REST surface described in spec §6.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Post("/users", s.createUser)
		r.Post("/groups", s.createGroup)
		r.Post("/roles", s.createRole)
		r.Post("/users/{entityID}/groups/{groupID}", s.addUserToGroup)
		r.Post("/users/{entityID}/roles/{roleID}", s.assignUserToRole)
		r.Get("/users/{entityID}/permissions", s.getEffectivePermissions)
		r.Post("/users/{entityID}/permissions/evaluate", s.evaluatePermission)
		r.Post("/{entityType}/{entityID}/permissions/grant", s.grantPermission)
		r.Post("/{entityType}/{entityID}/permissions/deny", s.denyPermission)
		r.Delete("/permissions/{permissionID}", s.revokePermission)
	})
	return r
}

// dispatch encodes cmd, sends it through s.dispatcher for tenantID, and
// writes the reply (or mapped error) to w with okStatus on success.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, tenantID string, cmd command.Command, okStatus int) {
	data, err := wire.EncodeCommandPayload(cmd)
	if err != nil {
		s.writeErrorKind(w, "InvalidArgument", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.deadline)
	defer cancel()

	req := &wire.CommandRequest{
		CommandType:    string(cmd.Kind),
		CommandData:    data,
		CorrelationID:  uuid.NewString(),
		DeadlineMillis: uint32(s.deadline.Milliseconds()),
	}

	resp, err := s.dispatcher.Dispatch(ctx, tenantID, req)
	if err != nil {
		s.writeErrorKind(w, errtypes.Kind(err), err.Error())
		return
	}
	if !resp.Success {
		s.writeErrorKind(w, resp.ErrorKind, resp.ErrorMessage)
		return
	}

	payload, err := wire.DecodeResultPayload(cmd.Kind, resp.ResultData)
	if err != nil {
		s.writeErrorKind(w, "Internal", err.Error())
		return
	}
	writeJSON(w, okStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
