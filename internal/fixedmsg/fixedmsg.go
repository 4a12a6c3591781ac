// Package fixedmsg holds the constant, complete HTTP/1.0 responses the
// reactor sends for the four non-route outcomes: bad verb, malformed
// request, not-found, and internal error. Bodies are reproduced verbatim
// from the fixed-message header this was adapted from (down to the exact
// HTML), apart from the server banner, which drops that source's
// product name since this module carries no such branding, and the
// internal-server-error body, which that source referenced but never
// actually defined — added here in the same style to close the gap.
package fixedmsg

// ServerBanner is appended as a response header on every fixed message.
const ServerBanner = "Server: ringd\r\n"

// UnsupportedVerb is the full HTTP/1.0 response for a non-GET request.
var UnsupportedVerb = []byte("HTTP/1.0 400 Bad Request\r\n" + ServerBanner +
	"Content-type: text/html\r\n\r\n" +
	"<html><head><title>Unsupported Operation Type</title></head>" +
	"<body><h1>Bad Request</h1>" +
	"<p>REST style hooks should be GET or POST</p></body></html>")

// MalformedRequest is the full HTTP/1.0 response for a request the parser
// could not make sense of (missing request line, unterminated headers,
// truncated body, and similar).
var MalformedRequest = []byte("HTTP/1.0 400 Bad Request\r\n" + ServerBanner +
	"Content-type: text/html\r\n\r\n" +
	"<html><head><title>Malformed Request</title></head>" +
	"<body><h1>Bad Request</h1>" +
	"<p>Request could not be processed</p></body></html>")

// NotFound is the full HTTP/1.0 response for a path with no matching route.
var NotFound = []byte("HTTP/1.0 404 Not Found\r\n" + ServerBanner +
	"Content-type: text/html\r\n\r\n" +
	"<html><head><title>Resource Not Found</title></head>" +
	"<body><h1>Not Found (404)</h1>" +
	"<p>Request for an unknown resource</p></body></html>")

// InternalServerError is the full HTTP/1.0 response for any failure past
// request parsing (file I/O error, job panic, and similar).
var InternalServerError = []byte("HTTP/1.0 500 Internal Server Error\r\n" + ServerBanner +
	"Content-type: text/html\r\n\r\n" +
	"<html><head><title>Internal Server Error</title></head>" +
	"<body><h1>Internal Server Error</h1>" +
	"<p>The server encountered an error processing the request</p></body></html>")
