// Package respond writes JSON responses for the HTTP API. Failures of the
// scrape pipeline are mapped onto status codes here, and anything that could
// leak credentials is masked before it reaches a log line.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"webintel/internal/domain/entity"
	"webintel/internal/usecase/scrape"
)

// JSON writes v as a JSON body with the given status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// headers are already sent
			slog.Default().Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// Error writes {"error": err.Error()} with the given status code.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": err.Error()})
}

// safeFragments mark messages written for the caller, such as validation
// failures. Anything else is treated as internal.
var safeFragments = []string{
	"required",
	"invalid",
	"not found",
	"must be",
	"cannot be",
	"too long",
	"too large",
	"unsupported",
	"rate limit",
}

// SafeError returns caller-facing messages as-is and replaces everything
// else, including any 5xx, with "internal server error". The original error
// is logged with secrets masked.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	safe := false
	for _, frag := range safeFragments {
		if strings.Contains(lower, frag) {
			safe = true
			break
		}
	}
	if code >= 500 {
		safe = false
	}

	if safe {
		JSON(w, code, map[string]string{"error": msg})
		return
	}

	slog.Default().Error("internal server error",
		slog.String("status", http.StatusText(code)),
		slog.Int("code", code),
		slog.String("error", SanitizeError(err)))
	JSON(w, code, map[string]string{"error": "internal server error"})
}

// AppError carries a message meant for the caller next to the internal cause.
type AppError struct {
	UserMsg string
	Err     error
	Code    int
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.UserMsg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError.
func NewAppError(code int, userMsg string, err error) *AppError {
	return &AppError{Code: code, UserMsg: userMsg, Err: err}
}

// SafeErrorV2 writes the UserMsg of an AppError and logs its cause. Other
// errors go through SafeError.
func SafeErrorV2(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			slog.Default().Error("application error",
				slog.String("status", http.StatusText(appErr.Code)),
				slog.Int("code", appErr.Code),
				slog.String("user_message", appErr.UserMsg),
				slog.String("error", SanitizeError(appErr.Err)))
		}
		JSON(w, appErr.Code, map[string]string{"error": appErr.UserMsg})
		return
	}

	SafeError(w, code, err)
}

// StatusFor maps a pipeline failure cause onto an HTTP status code. A nil
// error yields 200.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, scrape.ErrInvalidURL), errors.Is(err, scrape.ErrSSRFBlocked):
		return http.StatusBadRequest
	case errors.Is(err, scrape.ErrUnsupportedURL):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scrape.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, scrape.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scrape.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, scrape.ErrHTTPStatus),
		errors.Is(err, scrape.ErrNetwork),
		errors.Is(err, scrape.ErrMalformedResponse),
		errors.Is(err, scrape.ErrExtraction),
		errors.Is(err, scrape.ErrTooManyRedirects):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Result writes a pipeline envelope. Failed envelopes are written whole, with
// the status code derived from their cause, because their Error field is
// already a caller-facing reason. Internal causes are logged.
func Result(w http.ResponseWriter, res entity.Result) {
	if res.Success {
		JSON(w, http.StatusOK, res)
		return
	}
	code := StatusFor(res.Err)
	if code == http.StatusInternalServerError {
		slog.Default().Error("scrape failed with unclassified error",
			slog.String("url", res.URL),
			slog.String("error", SanitizeError(res.Err)))
	}
	res.Error = SanitizeMessage(res.Error)
	JSON(w, code, res)
}
