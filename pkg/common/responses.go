package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
)

// MaxBodyBytes caps request bodies; a whole forest fits comfortably
const MaxBodyBytes = 8 << 20

// StatusResponse is the body of acknowledgement-only responses
type StatusResponse struct {
	Status string `json:"status"`
}

// OK is the acknowledgement body
var OK = StatusResponse{Status: "ok"}

// RespondJSON sends data as the JSON response body
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

// DecodeJSON parses a JSON request body into v. Malformed, oversized or
// empty bodies become validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return pkgerrors.NewValidationError("request body is empty")
		case errors.As(err, &maxErr):
			return pkgerrors.NewValidationError(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		}
		return pkgerrors.NewValidationError("invalid request body: " + err.Error())
	}
	return nil
}

// ClientIP returns the caller address without the port. chi's RealIP
// middleware has already folded proxy headers into RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
