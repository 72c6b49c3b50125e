package httpx

import (
	"errors"
	"net/http"

	"github.com/forwardline/forwardline/internal/shared"
)

// RespondError maps shared errors to HTTP problem responses. Domain packages
// with richer taxonomies map their own business errors before falling back
// here.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrMissingRequiredField):
		Problem(w, http.StatusBadRequest, "Missing Required Field", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// BusinessRule sends a 422 problem for a business-rule violation that should
// surface verbatim to the caller.
func BusinessRule(w http.ResponseWriter, err error) {
	Problem(w, http.StatusUnprocessableEntity, "Business Rule Violation", err.Error())
}
