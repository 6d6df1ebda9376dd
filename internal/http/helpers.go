package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/queries"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: "INVALID_INPUT"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL"})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, message, code string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondLendingError maps lending, catalog and query errors to responses.
// Borrow and return conflicts are client errors; an integrity violation is
// the server's fault and is reported without detail.
func respondLendingError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, lending.ErrInvalidInput),
		errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, queries.ErrInvalidPage):
		respondError(c, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, lending.ErrNotFound), errors.Is(err, catalog.ErrTitleNotFound):
		respondError(c, http.StatusNotFound, "title not found", "NOT_FOUND")
	case errors.Is(err, lending.ErrUnavailable):
		respondError(c, http.StatusBadRequest, "title is currently unavailable", "UNAVAILABLE")
	case errors.Is(err, lending.ErrAlreadyBorrowed):
		respondError(c, http.StatusBadRequest, "title is already borrowed by you", "ALREADY_BORROWED")
	case errors.Is(err, lending.ErrNoOpenLoan):
		respondError(c, http.StatusBadRequest, "no open loan found for this title", "NO_OPEN_LOAN")
	case errors.Is(err, lending.ErrConflict):
		respondError(c, http.StatusBadRequest, err.Error(), "CONFLICT")
	case errors.Is(err, catalog.ErrTitleHasOpenLoans):
		respondError(c, http.StatusConflict, "title has open loans and cannot be deleted", "TITLE_HAS_OPEN_LOANS")
	case errors.Is(err, lending.ErrIntegrityViolation):
		log.Printf("ERROR: %s: %v", context, err)
		respondError(c, http.StatusInternalServerError, "data integrity issue, please contact support", "INTEGRITY_VIOLATION")
	case errors.Is(err, lending.ErrTransient):
		log.Printf("Transient store failure (%s): %v", context, err)
		c.Header("Retry-After", "1")
		respondError(c, http.StatusServiceUnavailable, "store temporarily unavailable, retry later", "STORE_UNAVAILABLE")
	default:
		respondInternalError(c, err, context)
	}
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parsePage reads the page and limit query parameters. Absent parameters
// take the defaults; present ones must be in range.
func parsePage(c *gin.Context) (queries.Page, bool) {
	var page queries.Page
	for _, p := range []struct {
		name string
		dst  *int
		max  int
	}{
		{"page", &page.Page, 0},
		{"limit", &page.Limit, queries.MaxLimit},
	} {
		raw, ok := c.GetQuery(p.name)
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || (p.max > 0 && n > p.max) {
			respondBadRequest(c, "invalid "+p.name)
			return queries.Page{}, false
		}
		*p.dst = n
	}
	return page, true
}

// parseBoolQuery returns def unless the parameter is present and parses.
func parseBoolQuery(c *gin.Context, name string, def bool) (bool, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return def, false
	}
	return v, true
}
