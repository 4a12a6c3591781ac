//go:build !giouring

package uring

// newGiouringRing is unavailable without the giouring build tag. Build
// with `-tags giouring` to link the liburing-backed production ring;
// without it, NewRing falls back to the pure-Go minimal backend in
// minimal.go, which is sufficient for development and tests.
