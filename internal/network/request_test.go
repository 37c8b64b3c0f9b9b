// ABOUTME: Tests for the request-line parser
// ABOUTME: Paths, query parameters and the rejection paths
package network

import (
	"errors"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		path   string
		params map[string]string
	}{
		{"bare path", "GET /status HTTP/1.1\r\nHost: x\r\n\r\n", "/status", map[string]string{}},
		{"query", "GET /play?duration=2.5&volume=0.8 HTTP/1.1\r\n\r\n", "/play", map[string]string{"duration": "2.5", "volume": "0.8"}},
		{"escaped", "GET /led?num=1&state=%6Fn HTTP/1.1\r\n", "/led", map[string]string{"num": "1", "state": "on"}},
		{"valueless key dropped", "GET /gain?level=2&debug HTTP/1.1\r\n", "/gain", map[string]string{"level": "2"}},
		{"empty value", "GET /gain?level= HTTP/1.1\r\n", "/gain", map[string]string{"level": ""}},
		{"bare newline", "GET /status HTTP/1.0\n", "/status", map[string]string{}},
		{"value with equals", "GET /led?state=a=b HTTP/1.1\r\n", "/led", map[string]string{"state": "a=b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest(tt.raw)
			if err != nil {
				t.Fatalf("ParseRequest() err=%v", err)
			}
			if req.Method != "GET" {
				t.Errorf("expected GET, got %s", req.Method)
			}
			if req.Path != tt.path {
				t.Errorf("expected path %s, got %s", tt.path, req.Path)
			}
			if len(req.Params) != len(tt.params) {
				t.Fatalf("expected params %v, got %v", tt.params, req.Params)
			}
			for k, v := range tt.params {
				if req.Params[k] != v {
					t.Errorf("param %s: expected %q, got %q", k, v, req.Params[k])
				}
			}
		})
	}
}

func TestParseRequestRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"post", "POST /play HTTP/1.1\r\n", ErrMethodNotAllowed},
		{"lowercase get", "get /status HTTP/1.1\r\n", ErrMethodNotAllowed},
		{"two fields", "GET /status\r\n", ErrMalformedRequest},
		{"four fields", "GET /status HTTP/1.1 extra\r\n", ErrMalformedRequest},
		{"garbage", "\x00\x01\x02", ErrMalformedRequest},
		{"empty line", "\r\n", ErrMalformedRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRequest(tt.raw); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRequestParamDefault(t *testing.T) {
	req := Request{Params: map[string]string{"num": "2"}}
	if got := req.Param("num", "0"); got != "2" {
		t.Errorf("expected 2, got %s", got)
	}
	if got := req.Param("state", "off"); got != "off" {
		t.Errorf("expected default off, got %s", got)
	}
}
