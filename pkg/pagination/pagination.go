// Package pagination normalizes page/limit query parameters for the
// listing endpoints (invitations, audit trail).
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Params is a sanitized page request. Limit is clamped so a single call can
// never drag an unbounded result set.
type Params struct {
	Page  int
	Limit int
}

// Parse reads page and limit from the query string, falling back to the
// defaults on anything absent, malformed, or out of range.
func Parse(c *gin.Context) Params {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = defaultPage
	}

	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return Params{Page: page, Limit: limit}
}
