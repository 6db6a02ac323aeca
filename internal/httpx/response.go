package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/guardian/panda-go/internal/panda"
)

// RefreshHeader is set on successful responses when the cookie is inside the
// grace period, holding the refresh deadline in epoch milliseconds.
const RefreshHeader = "X-Panda-Refresh-By"

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ResultView is the JSON form of a verification result.
type ResultView struct {
	Outcome                  string      `json:"outcome"`
	Success                  bool        `json:"success"`
	User                     *panda.User `json:"user,omitempty"`
	ShouldRefreshCredentials bool        `json:"should_refresh_credentials"`
	MustRefreshBy            int64       `json:"must_refresh_by,omitempty"`
}

// NewResultView converts r for the wire.
func NewResultView(r panda.Result) ResultView {
	v := ResultView{
		Outcome: panda.Outcome(r),
		Success: r.Success(),
	}
	if u, ok := panda.UserOf(r); ok {
		v.User = &u
	}
	if s, ok := r.(panda.Stale); ok {
		v.ShouldRefreshCredentials = true
		v.MustRefreshBy = s.MustRefreshByEpochTimeMillis
	}
	return v
}

// StatusFor maps a result to an HTTP status: 200 on success, 403 for a
// valid user that failed validation and 401 otherwise.
func StatusFor(r panda.Result) int {
	switch r.(type) {
	case panda.Authenticated, panda.Stale:
		return http.StatusOK
	case panda.Unauthorised:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	_ = writeJSON(w, status, errorBody{Error: errCode, ErrorDescription: errDesc})
}

func writeResultError(w http.ResponseWriter, r panda.Result) {
	switch v := r.(type) {
	case panda.Unauthorised:
		writeJSONError(w, http.StatusForbidden, "forbidden", string(v.Reason()))
	case panda.Unauthenticated:
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", string(v.Reason))
	default:
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", string(panda.ReasonUnknown))
	}
}

func writeKeyUnavailable(w http.ResponseWriter) {
	writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "public key unavailable")
}

func setRefreshHeader(w http.ResponseWriter, r panda.Result) {
	if s, ok := r.(panda.Stale); ok {
		w.Header().Set(RefreshHeader, strconv.FormatInt(s.MustRefreshByEpochTimeMillis, 10))
	}
}
