package httpadapter

import "net/http"

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// statusForKind is spec §7's error-kind-to-HTTP-status table. Cancelled
// maps to 499 (the nginx "client closed request" convention, since
// net/http has no constant for it) and DeadlineExceeded to 408, the two
// plausible readings of the spec's "408/499" notation for that pair.
func statusForKind(kind string) int {
	switch kind {
	case "NotFound":
		return http.StatusNotFound
	case "InvalidArgument":
		return http.StatusBadRequest
	case "CyclicHierarchy", "ConflictingPolarity", "CapacityExceeded", "EdgeMissing":
		return http.StatusConflict
	case "DeadlineExceeded":
		return http.StatusRequestTimeout
	case "Cancelled":
		return 499
	case "Shutdown":
		return http.StatusServiceUnavailable
	case "StartupFailed", "Internal":
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeErrorKind(w http.ResponseWriter, kind, message string) {
	writeJSON(w, statusForKind(kind), errorBody{Kind: kind, Message: message})
}
