package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusgate/accessgraph/internal/httpadapter"
	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/log"
	"github.com/nimbusgate/accessgraph/pkg/wire"
)

// fakeDispatcher decodes the incoming wire payload, hands it to fn, and
// wire-encodes whatever command.Result fn returns.
type fakeDispatcher struct {
	fn func(tenantID string, kind command.Kind, payload interface{}) command.Result
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, tenantID string, req *wire.CommandRequest) (*wire.CommandResponse, error) {
	kind := command.Kind(req.CommandType)
	payload, err := wire.DecodeCommandPayload(kind, req.CommandData)
	if err != nil {
		return nil, err
	}
	result := f.fn(tenantID, kind, payload)
	if result.Err != nil {
		return &wire.CommandResponse{Success: false, ErrorKind: errtypes.Kind(result.Err), ErrorMessage: result.Err.Error(), CorrelationID: req.CorrelationID}, nil
	}
	data, err := wire.EncodeResultPayload(result)
	if err != nil {
		return nil, err
	}
	return &wire.CommandResponse{Success: true, ResultData: data, CorrelationID: req.CorrelationID}, nil
}

func TestCreateUserReturns201WithCreatedID(t *testing.T) {
	var gotName string
	d := &fakeDispatcher{fn: func(tenantID string, kind command.Kind, payload interface{}) command.Result {
		req := payload.(command.CreateUserReq)
		gotName = req.Name
		return command.Result{Kind: kind, Payload: command.CreatedResult{ID: 42}}
	}}
	srv := httpadapter.New(d, log.Nop())

	body, _ := json.Marshal(map[string]string{"name": "alice"})
	r := httptest.NewRequest(http.MethodPost, "/tenants/acme/users", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "alice", gotName)

	var got command.CreatedResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 42, got.ID)
}

func TestEvaluatePermissionReturnsAllowed(t *testing.T) {
	d := &fakeDispatcher{fn: func(tenantID string, kind command.Kind, payload interface{}) command.Result {
		req := payload.(command.EvaluatePermissionReq)
		assert.Equal(t, "/api/orders", req.URI)
		return command.Result{Kind: kind, Payload: command.EvaluateResult{Allowed: true, Reason: "matched"}}
	}}
	srv := httpadapter.New(d, log.Nop())

	body, _ := json.Marshal(map[string]string{"uri": "/api/orders", "verb": "GET"})
	r := httptest.NewRequest(http.MethodPost, "/tenants/acme/users/1/permissions/evaluate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got command.EvaluateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Allowed)
}

func TestNotFoundErrorMapsTo404(t *testing.T) {
	d := &fakeDispatcher{fn: func(tenantID string, kind command.Kind, payload interface{}) command.Result {
		return command.Result{Kind: kind, Err: errtypes.NotFound("permission 99")}
	}}
	srv := httpadapter.New(d, log.Nop())

	r := httptest.NewRequest(http.MethodDelete, "/tenants/acme/permissions/99", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCyclicHierarchyMapsTo409(t *testing.T) {
	d := &fakeDispatcher{fn: func(tenantID string, kind command.Kind, payload interface{}) command.Result {
		return command.Result{Kind: kind, Err: errtypes.CyclicHierarchy("group 2 -> group 1")}
	}}
	srv := httpadapter.New(d, log.Nop())

	body, _ := json.Marshal(map[string]string{"name": "eng"})
	r := httptest.NewRequest(http.MethodPost, "/tenants/acme/groups", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMalformedBodyReturns400(t *testing.T) {
	d := &fakeDispatcher{fn: func(tenantID string, kind command.Kind, payload interface{}) command.Result {
		t.Fatal("dispatcher should not be reached on a malformed body")
		return command.Result{}
	}}
	srv := httpadapter.New(d, log.Nop())

	r := httptest.NewRequest(http.MethodPost, "/tenants/acme/users", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
