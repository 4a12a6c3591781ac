// Package routeengine parses the fixed-size HTTP/1.0 request buffer the
// reactor reads off each accepted socket and resolves it to a route.
//
// Parsing deliberately stays minimal — request line, Content-Length
// header, and body — matching this module's HTTP/1.0-only scope (no
// chunked transfer, no persistent connections). No third-party HTTP
// parser from the retrieval pack fits here: every one assumes a
// net.Conn/bufio.Reader to read incrementally from, not a single
// pre-filled fixed buffer handed back by a ring read completion: this is
// the one ambient concern built on the standard library (bytes/strconv)
// rather than a pack dependency, recorded in DESIGN.md.
package routeengine

import (
	"bytes"
	"errors"
	"strconv"
)

// ErrMalformed indicates the buffer does not contain a well-formed
// HTTP/1.0 request line, or a header/body the parser can make sense of.
var ErrMalformed = errors.New("routeengine: malformed request")

// ParsedRequest is the minimal decomposition of an HTTP/1.0 request the
// route engine needs.
type ParsedRequest struct {
	Method string
	Path   string
	Body   []byte
}

var (
	sep         = []byte(" ")
	headerEnd   = []byte("\r\n\r\n")
	contentLenH = []byte("Content-Length: ")
)

// Parse extracts the method, path, and body from buf, a fixed-size
// buffer a read completion filled (only the first n bytes — data past
// that is whatever was left from a prior use and must be ignored).
func Parse(buf []byte, n int) (*ParsedRequest, error) {
	if n <= 0 {
		return nil, ErrMalformed
	}
	data := buf[:n]

	methodEnd := bytes.Index(data, sep)
	if methodEnd < 0 {
		return nil, ErrMalformed
	}
	method := string(data[:methodEnd])

	rest := data[methodEnd+1:]
	if len(rest) == 0 || rest[0] != '/' {
		return nil, ErrMalformed
	}
	pathEnd := bytes.IndexByte(rest, ' ')
	if pathEnd < 0 {
		return nil, ErrMalformed
	}
	path := string(rest[:pathEnd])

	body, err := extractBody(data)
	if err != nil {
		return nil, err
	}

	return &ParsedRequest{Method: method, Path: path, Body: body}, nil
}

func extractBody(data []byte) ([]byte, error) {
	hdrEnd := bytes.Index(data, headerEnd)
	if hdrEnd < 0 {
		// No body section at all is fine for a bare GET with no payload.
		return nil, nil
	}
	bodyStart := hdrEnd + len(headerEnd)

	clIdx := bytes.Index(data, contentLenH)
	if clIdx < 0 {
		return nil, nil
	}
	clValStart := clIdx + len(contentLenH)
	clValEnd := bytes.IndexByte(data[clValStart:], '\r')
	if clValEnd < 0 {
		return nil, ErrMalformed
	}
	contentLength, err := strconv.Atoi(string(data[clValStart : clValStart+clValEnd]))
	if err != nil || contentLength < 0 {
		return nil, ErrMalformed
	}

	bodyEnd := bodyStart + contentLength
	if bodyEnd > len(data) {
		return nil, ErrMalformed
	}
	return data[bodyStart:bodyEnd], nil
}
