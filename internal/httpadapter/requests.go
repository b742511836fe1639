package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nimbusgate/accessgraph/pkg/graph"
)

func pathInt(r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	return v, err == nil
}

func decodeBody(r *http.Request, v interface{}) bool {
	if r.Body == nil {
		return true
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return false
	}
	return true
}

type createUserBody struct {
	Name string `json:"name"`
}

type createGroupBody struct {
	Name          string `json:"name"`
	ParentGroupID *int   `json:"parentGroupId,omitempty"`
}

type createRoleBody struct {
	Name    string `json:"name"`
	GroupID *int   `json:"groupId,omitempty"`
}

type permissionBody struct {
	URI        string `json:"uri"`
	Verb       string `json:"verb"`
	Scheme     string `json:"scheme,omitempty"`
	ExpiryUnix *int64 `json:"expiryUnix,omitempty"`
}

func (b permissionBody) verb() graph.Verb {
	v, _ := graph.ParseVerb(b.Verb)
	return v
}

func (b permissionBody) scheme() graph.Scheme {
	switch b.Scheme {
	case "Inherited":
		return graph.Inherited
	case "Pattern":
		return graph.Pattern
	default:
		return graph.Explicit
	}
}

func (b permissionBody) expiry() *time.Time {
	if b.ExpiryUnix == nil {
		return nil
	}
	t := time.Unix(*b.ExpiryUnix, 0).UTC()
	return &t
}

type evaluateBody struct {
	URI  string `json:"uri"`
	Verb string `json:"verb"`
}

func parseVerbOrDefault(s string) (graph.Verb, bool) {
	return graph.ParseVerb(s)
}
