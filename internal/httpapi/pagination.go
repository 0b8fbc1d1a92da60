package httpapi

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxLimit = 100

type page struct {
	Limit  int
	Offset int
}

// pageFrom reads limit/offset query parameters. Missing or invalid values fall
// back to the defaults; limit is capped at maxLimit.
func pageFrom(c *gin.Context, defaultLimit int) page {
	p := page{
		Limit:  parseInt(c.Query("limit"), defaultLimit),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type paginated[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func newPage[T any](c *gin.Context, p page, total int, results []T) paginated[T] {
	out := paginated[T]{Count: total, Results: results}
	if out.Results == nil {
		out.Results = []T{}
	}
	if p.Offset+p.Limit < total {
		next := pageURL(c, p.Limit, p.Offset+p.Limit)
		out.Next = &next
	}
	if p.Offset > 0 {
		prev := pageURL(c, p.Limit, max(p.Offset-p.Limit, 0))
		out.Previous = &prev
	}
	return out
}

// pageURL rebuilds the request URL with new limit and offset; a zero offset
// is dropped.
func pageURL(c *gin.Context, limit, offset int) string {
	u := url.URL{Scheme: "http", Host: c.Request.Host, Path: c.Request.URL.Path}
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	q := c.Request.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
