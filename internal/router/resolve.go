package router

import (
	"net/http"
	"strings"

	"github.com/nimbusgate/accessgraph/pkg/errtypes"
)

// ResolveTenantID applies spec §4.9 step 1's precedence order: header,
// subdomain, path segment, query parameter. The first non-empty source
// wins.
func ResolveTenantID(r *http.Request) (string, error) {
	if t := r.Header.Get("X-Tenant-ID"); t != "" {
		return t, nil
	}
	if t := tenantFromSubdomain(r.Host); t != "" {
		return t, nil
	}
	if t := tenantFromPath(r.URL.Path); t != "" {
		return t, nil
	}
	if t := r.URL.Query().Get("tenantId"); t != "" {
		return t, nil
	}
	return "", errtypes.Validation("no tenant id could be resolved from the request")
}

func tenantFromSubdomain(host string) string {
	host = strings.Split(host, ":")[0]
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return ""
	}
	sub := parts[0]
	if sub == "www" || sub == "api" {
		return ""
	}
	return sub
}

func tenantFromPath(path string) string {
	const marker = "/tenants/"
	idx := strings.Index(path, marker)
	if idx < 0 {
		return ""
	}
	rest := path[idx+len(marker):]
	if seg := strings.SplitN(rest, "/", 2)[0]; seg != "" {
		return seg
	}
	return ""
}
