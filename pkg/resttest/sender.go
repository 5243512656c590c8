package resttest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
)

// Response is what a Sender returns: at minimum a status code and raw body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Sender delivers a Request and returns the Response.
type Sender interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// SenderFunc adapts a function into a Sender.
type SenderFunc func(ctx context.Context, req Request) (*Response, error)

// Send calls f(ctx, req).
func (f SenderFunc) Send(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// HandlerSender serves requests in-process with an http.Handler, the way a
// framework's test client does. No network is involved.
type HandlerSender struct {
	Handler http.Handler

	// Host is used for the request's Host header. Defaults to "example.com".
	Host string
}

// Send runs req through the handler and captures the recorded response.
func (s *HandlerSender) Send(ctx context.Context, req Request) (*Response, error) {
	host := s.Host
	if host == "" {
		host = "example.com"
	}

	httpReq, err := req.HTTPRequest(ctx, "http://"+host)
	if err != nil {
		return nil, err
	}
	httpReq.RequestURI = req.URL()
	// Server handlers may assume a non-nil Body.
	if httpReq.Body == nil {
		httpReq.Body = http.NoBody
	}

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httpReq)

	result := rec.Result()
	defer result.Body.Close()

	return &Response{
		StatusCode: result.StatusCode,
		Header:     result.Header,
		Body:       rec.Body.Bytes(),
	}, nil
}

// ClientSender sends requests over the network to BaseURL.
type ClientSender struct {
	Client  *http.Client
	BaseURL string
}

// Send performs the request with the configured client.
func (s *ClientSender) Send(ctx context.Context, req Request) (*Response, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	httpReq, err := req.HTTPRequest(ctx, s.BaseURL)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
