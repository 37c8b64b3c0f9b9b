// ABOUTME: Request-line parser for the control surface
// ABOUTME: GET only, path plus flat query parameters, nothing else is read
package network

import (
	"fmt"
	"net/url"
	"strings"
)

// Request is one parsed request line
type Request struct {
	Method string
	Path   string
	Params map[string]string
}

// ParseRequest reads the first line of raw. Headers and body are ignored.
func ParseRequest(raw string) (Request, error) {
	line, _, _ := strings.Cut(raw, "\n")
	line = strings.TrimSuffix(line, "\r")

	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[1] == "" {
		return Request{}, fmt.Errorf("%w: %q", ErrMalformedRequest, line)
	}

	req := Request{
		Method: parts[0],
		Path:   parts[1],
		Params: make(map[string]string),
	}
	if req.Method != "GET" {
		return req, fmt.Errorf("%w: %s", ErrMethodNotAllowed, req.Method)
	}

	path, query, found := strings.Cut(req.Path, "?")
	req.Path = path
	if !found {
		return req, nil
	}

	for _, param := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(param, "=")
		if !ok {
			continue
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		req.Params[key] = value
	}

	return req, nil
}

// Param returns the named parameter or def when absent
func (r Request) Param(name, def string) string {
	if v, ok := r.Params[name]; ok {
		return v
	}
	return def
}
