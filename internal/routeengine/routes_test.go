package routeengine

import (
	"testing"

	"github.com/behrlich/ringd/internal/interfaces"
	"github.com/stretchr/testify/require"
)

func TestLookupRoutes(t *testing.T) {
	tbl := NewBuiltinTable("./static")

	cases := []struct {
		path       string
		wantKind   interfaces.RouteKind
		wantHandle string
	}{
		{"/sample.json", interfaces.RouteFile, HandlerSampleJSON},
		{"/hello", interfaces.RouteFixed, HandlerHello},
		{"/helloname", interfaces.RouteInline, HandlerHelloName},
		{"/fib", interfaces.RouteJob, HandlerFib},
		{"/nope", interfaces.RouteNotFound, ""},
	}
	for _, tc := range cases {
		kind, handler := tbl.Lookup("GET", tc.path)
		require.Equal(t, tc.wantKind, kind, tc.path)
		require.Equal(t, tc.wantHandle, handler, tc.path)
	}
}

func TestInvokeInlineHello(t *testing.T) {
	tbl := NewBuiltinTable("./static")
	out, err := tbl.InvokeInline(HandlerHello, nil)
	require.NoError(t, err)
	require.Contains(t, string(out), "Hello, world!")
}

func TestInvokeInlineHelloName(t *testing.T) {
	tbl := NewBuiltinTable("./static")
	out, err := tbl.InvokeInline(HandlerHelloName, []byte(`{"name":"Ada"}`))
	require.NoError(t, err)
	require.Equal(t, `{"message":"Hello, Ada!"}`, string(out))
}

func TestInvokeJobFib(t *testing.T) {
	tbl := NewBuiltinTable("./static")
	out, err := tbl.InvokeJob(HandlerFib, []byte(`{"value":10}`))
	require.NoError(t, err)
	require.Contains(t, string(out), `"result":55`)
}

func TestFibonacciTable(t *testing.T) {
	require.Equal(t, uint64(0), fibonacci(0))
	require.Equal(t, uint64(1), fibonacci(1))
	require.Equal(t, uint64(1), fibonacci(2))
	require.Equal(t, uint64(55), fibonacci(10))
}
