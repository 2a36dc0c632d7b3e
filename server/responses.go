package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/internal/observability"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON    = "application/json; charset=utf-8"
	contentTypeProblem = "application/problem+json; charset=utf-8"

	sessionExpiredDetail = "Your session has expired. Please log in again."
)

// Problem is an RFC 7807 error body. Errors carries per field messages for
// validation failures.
type Problem struct {
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// LockedProblem is the 429 body for a throttled login.
type LockedProblem struct {
	Problem
	RetryAfterSeconds int64     `json:"retryAfterSeconds"`
	RetryAfter        string    `json:"retryAfter"` // mm:ss
	LockUntilUTC      time.Time `json:"lockUntilUtc"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, status, Problem{Title: title, Status: status, Detail: detail})
}

func writeProblemBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeProblem)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeLocked answers a throttled login with the remaining lock time.
func writeLocked(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int64(retryAfter / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	writeProblemBody(w, http.StatusTooManyRequests, LockedProblem{
		Problem: Problem{
			Title:  "Too Many Requests",
			Status: http.StatusTooManyRequests,
			Detail: fmt.Sprintf("Too many failed login attempts. Try again in %s.", mmss(seconds)),
		},
		RetryAfterSeconds: seconds,
		RetryAfter:        mmss(seconds),
		LockUntilUTC:      time.Now().UTC().Add(time.Duration(seconds) * time.Second).Truncate(time.Second),
	})
}

func mmss(seconds int64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// writeError maps an error category onto a status code. Faults are logged and
// reported; their detail never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var locked *autherrors.LockedError
	switch {
	case autherrors.As(err, &locked):
		writeLocked(w, locked.RetryAfter)
	case autherrors.Is(err, autherrors.ErrInvalidCredentials):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Invalid company code, username or password.")
	case autherrors.Is(err, autherrors.ErrInvalidRefreshToken):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired refresh token.")
	case autherrors.Is(err, autherrors.ErrTokenRevoked):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", sessionExpiredDetail)
	case autherrors.Is(err, autherrors.ErrInvalidToken):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired access token.")
	case autherrors.Is(err, autherrors.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "")
	case autherrors.Is(err, autherrors.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case autherrors.Is(err, autherrors.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case autherrors.Is(err, autherrors.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "")
	case autherrors.Is(err, autherrors.ErrStoreUnavailable):
		log.Err(err).Str("path", r.URL.Path).Msg("store unavailable")
		observability.CaptureError(r.Context(), err, map[string]string{"route": r.Pattern})
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "A backing store is unavailable. Try again shortly.")
	default:
		log.Err(err).Str("path", r.URL.Path).Msg("request failed")
		observability.CaptureError(r.Context(), err, map[string]string{"route": r.Pattern})
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
	}
}
