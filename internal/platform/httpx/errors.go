// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// ErrConflict marks requests against a resource that is not in the state the
// operation needs.
var ErrConflict = errors.New("resource not in the requested state")

// RespondError maps domain errors to RFC7807 responses. detail is shown for
// mapped errors only; anything else is an opaque 500.
func RespondError(w http.ResponseWriter, err error, detail string) {
	if errors.Is(err, ErrConflict) {
		Problem(w, http.StatusConflict, "Conflict", detail)
		return
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
