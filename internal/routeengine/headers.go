package routeengine

import (
	"fmt"

	"github.com/behrlich/ringd/internal/fixedmsg"
	"github.com/behrlich/ringd/internal/mimetype"
)

// BuildHeaders formats an HTTP/1.0 200 response header block for a body
// of contentSize bytes with the given Content-Type, matching the
// snprintf-built header this was adapted from field for field (status
// line, server banner, content type, content length, blank line).
func BuildHeaders(contentType string, contentSize int) []byte {
	return []byte(fmt.Sprintf(
		"HTTP/1.0 200 OK\r\n%sContent-Type: %s\r\nContent-Length: %d\r\n\r\n",
		fixedmsg.ServerBanner, contentType, contentSize))
}

// BuildFileHeaders formats headers for a file or cached-file response,
// inferring Content-Type from the served path's extension.
func BuildFileHeaders(path string, contentSize int) []byte {
	return BuildHeaders(mimetype.ForPath(path), contentSize)
}

// BuildJSONHeaders formats headers for an inline-computed or job-computed
// JSON response.
func BuildJSONHeaders(contentSize int) []byte {
	return BuildHeaders("application/json", contentSize)
}
