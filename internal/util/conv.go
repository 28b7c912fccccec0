package util

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// MustParseUint converts s to uint, returning 0 when it cannot be parsed.
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParamUint reads a positive numeric path parameter.
func ParamUint(c *gin.Context, name string) (uint, bool) {
	id := MustParseUint(c.Param(name))
	return id, id > 0
}

// Pagination reads page and limit query parameters with defaults and an upper bound.
func Pagination(c *gin.Context) (page, limit int) {
	page, limit = DefaultPage, DefaultLimit
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
