package fetch

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParamStyle selects how the page window is encoded in the request URL.
type ParamStyle string

const (
	// OffsetParams encodes the window as offset/limit.
	OffsetParams ParamStyle = "offset"

	// PageParams encodes the window as page/per_page with 1-based pages.
	// Requires the offset to be aligned to the page size.
	PageParams ParamStyle = "page"
)

// PageRequest describes a single page fetch.
type PageRequest struct {
	// Path is the endpoint path (e.g., "/api/users").
	Path string

	// Search is the optional search term. Empty means unfiltered listing.
	Search string

	// Offset is the zero-based index of the first item in the window.
	Offset int

	// Limit is the window size.
	Limit int
}

// Validate checks the request window against the given param style.
func (r PageRequest) Validate(style ParamStyle) error {
	if r.Offset < 0 {
		return fmt.Errorf("offset must be >= 0 (got %d)", r.Offset)
	}
	if r.Limit <= 0 {
		return fmt.Errorf("limit must be > 0 (got %d)", r.Limit)
	}
	if style == PageParams && r.Offset%r.Limit != 0 {
		return fmt.Errorf("offset %d not aligned to page size %d", r.Offset, r.Limit)
	}
	return nil
}

// requestURL builds a deterministic URL for the page request.
// url.Values.Encode sorts keys, so identical logical requests produce
// byte-identical URLs.
func (c *Client) requestURL(req PageRequest) (string, error) {
	if err := req.Validate(c.config.ParamStyle); err != nil {
		return "", err
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	path := "/" + strings.Trim(req.Path, "/")

	values := url.Values{}
	switch c.config.ParamStyle {
	case PageParams:
		values.Set("page", strconv.Itoa(req.Offset/req.Limit+1))
		values.Set("per_page", strconv.Itoa(req.Limit))
	default:
		values.Set("offset", strconv.Itoa(req.Offset))
		values.Set("limit", strconv.Itoa(req.Limit))
	}

	if req.Search != "" {
		values.Set(c.config.SearchParam, req.Search)
	}

	return base + path + "?" + values.Encode(), nil
}
