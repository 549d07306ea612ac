package adminsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/dhadmin/pkg/idx"
	"github.com/aussiebroadwan/dhadmin/pkg/slogx"
)

// Request describes one logical API call. It is a value: the pipeline works
// on copies, so one Request may be reused for several independent calls.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // JSON-encoded; nil for no body
	Header http.Header

	payload   []byte
	requestID idx.ID
	retried   bool
}

// Retried reports whether this request is a replay after a token refresh.
func (r Request) Retried() bool { return r.retried }

// prepare encodes the body once and assigns the request id, so a replay
// sends exactly the same bytes under the same id.
func (r Request) prepare() (Request, error) {
	if r.Method == "" {
		r.Method = http.MethodGet
	}

	if r.Body != nil && r.payload == nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return Request{}, fmt.Errorf("failed to marshal request: %w", err)
		}
		r.payload = payload
	}

	if r.requestID.IsZero() {
		r.requestID = idx.New()
	}

	return r, nil
}

// markRetried returns a copy stamped as already retried once.
func (r Request) markRetried() Request {
	r.retried = true
	return r
}

// Do executes req with the session's current access token and decodes a
// successful JSON response into out (which may be nil).
//
// A 401 on a non-authentication path is recovered from once: the session
// refreshes its tokens (sharing a single refresh with any concurrent callers)
// and replays the request. Every other failure is returned as an *APIError.
func (s *Session) Do(ctx context.Context, req Request, out any) error {
	prepared, err := req.prepare()
	if err != nil {
		return err
	}
	ctx = slogx.WithRequestID(ctx, prepared.requestID.String())
	return s.execute(ctx, prepared, out)
}

func (s *Session) execute(ctx context.Context, req Request, out any) error {
	log := slogx.FromContext(ctx).With("method", req.Method, "path", req.Path)

	token, err := AccessToken(ctx, s.store)
	if err != nil {
		return fmt.Errorf("failed to read access token: %w", err)
	}

	status, body, err := s.client.send(ctx, req, token)
	if err != nil {
		log.Debug("request failed without response", "error", err)
		return NetworkError(err)
	}

	if isSuccess(status) {
		return decodeBody(body, out)
	}

	apiErr := NormalizeResponse(status, body)

	if status == http.StatusUnauthorized && !IsAuthEndpoint(req.Path) && !req.retried {
		log.Debug("access token rejected, waiting for refresh")
		if err := s.refresher.await(ctx, apiErr); err != nil {
			return err
		}
		return s.execute(ctx, req.markRetried(), out)
	}

	return apiErr
}
