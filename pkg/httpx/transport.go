package httpx

import "net/http"

// RoundTripperFunc adapts a function into an http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// TransportMiddleware decorates an outbound transport.
type TransportMiddleware func(http.RoundTripper) http.RoundTripper

// ChainTransport wraps base so that the first middleware sees the request
// first.
func ChainTransport(base http.RoundTripper, mws ...TransportMiddleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}
