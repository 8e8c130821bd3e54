// Package pagination reads limit/offset list parameters and wraps list
// results in a common envelope.
package pagination

import (
	"net/url"
	"reflect"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit and offset from the query string. A 1-based page
// parameter is accepted in place of offset.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if c.QueryParam("offset") == "" {
		if page, _ := strconv.Atoi(c.QueryParam("page")); page > 1 {
			offset = (page - 1) * limit
		}
	}
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// HasNext reports whether rows remain after this page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// PreviousOffset never goes below zero.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// Links holds neighbouring page URLs; either may be empty.
type Links struct {
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// Links builds next and previous URLs from u, keeping its other query
// parameters such as patient_id.
func (p Params) Links(u *url.URL, total int) Links {
	var l Links
	if u == nil {
		return l
	}
	at := func(offset int) string {
		q := u.Query()
		q.Del("page")
		q.Set("limit", strconv.Itoa(p.Limit))
		q.Set("offset", strconv.Itoa(offset))
		return u.Path + "?" + q.Encode()
	}
	if p.HasNext(total) {
		l.Next = at(p.Offset + p.Limit)
	}
	if p.HasPrevious() {
		l.Previous = at(p.PreviousOffset())
	}
	return l
}

// Response wraps a paginated API response.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
	Links   Links       `json:"links"`
}

// NewResponse wraps one page of data. A nil data value or nil slice encodes as [].
func NewResponse(c echo.Context, data interface{}, total int, p Params) *Response {
	if v := reflect.ValueOf(data); !v.IsValid() || (v.Kind() == reflect.Slice && v.IsNil()) {
		data = []struct{}{}
	}
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(total),
		Links:   p.Links(c.Request().URL, total),
	}
}
