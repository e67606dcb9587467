package ai

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
)

type errorBodyKey struct{}

// errorBody holds the raw bytes of a failed upstream response for one request.
type errorBody struct {
	mu   sync.Mutex
	data []byte
}

func (b *errorBody) set(data []byte) {
	b.mu.Lock()
	b.data = data
	b.mu.Unlock()
}

func (b *errorBody) get() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

func withErrorBody(ctx context.Context) (context.Context, *errorBody) {
	b := &errorBody{}
	return context.WithValue(ctx, errorBodyKey{}, b), b
}

// errorBodyTransport copies non-2xx response bodies into the request's
// errorBody before go-openai decodes them.
type errorBodyTransport struct {
	base http.RoundTripper
}

func (t *errorBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode < 300 {
		return resp, err
	}

	holder, ok := req.Context().Value(errorBodyKey{}).(*errorBody)
	if !ok {
		return resp, nil
	}

	data, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	holder.set(data)
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}
