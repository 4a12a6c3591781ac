package routeengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSimpleGET(t *testing.T) {
	raw := []byte("GET /hello HTTP/1.0\r\n\r\n")
	req, err := Parse(raw, len(raw))
	require.NoError(t, err)
	require.Equal(t, "GET", req.Method)
	require.Equal(t, "/hello", req.Path)
	require.Nil(t, req.Body)
}

func TestParseWithContentLengthBody(t *testing.T) {
	body := `{"name":"world"}`
	raw := []byte("GET /helloname HTTP/1.0\r\nContent-Length: " + itoa(len(body)) + "\r\n\r\n" + body)
	req, err := Parse(raw, len(raw))
	require.NoError(t, err)
	require.Equal(t, body, string(req.Body))
}

func TestParseMalformedNoSpace(t *testing.T) {
	raw := []byte("GARBAGE")
	_, err := Parse(raw, len(raw))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseTruncatedBodyIsMalformed(t *testing.T) {
	raw := []byte("GET /helloname HTTP/1.0\r\nContent-Length: 100\r\n\r\nshort")
	_, err := Parse(raw, len(raw))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseIgnoresStaleTailBytes(t *testing.T) {
	raw := make([]byte, 64)
	copy(raw, "GET /sample.json HTTP/1.0\r\n\r\n")
	for i := 40; i < 64; i++ {
		raw[i] = 'X' // leftover bytes from a prior connection's use of this buffer
	}
	req, err := Parse(raw, len("GET /sample.json HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)
	require.Equal(t, "/sample.json", req.Path)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}
