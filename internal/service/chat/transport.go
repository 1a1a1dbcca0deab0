package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"invoice-analytics/internal/domain"
)

// DefaultChatPath is the analytics service endpoint that streams answers.
const DefaultChatPath = "/chat-with-data"

// maxRejectionBody caps how much of a non-success body is kept as the error.
const maxRejectionBody = 64 << 10

// Transport opens the event stream for one question.
type Transport interface {
	Open(ctx context.Context, question string) (io.ReadCloser, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, question string) (io.ReadCloser, error)

// Open calls f.
func (f TransportFunc) Open(ctx context.Context, question string) (io.ReadCloser, error) {
	return f(ctx, question)
}

// HTTPTransport posts the question to the analytics service and hands back
// the raw, incrementally delivered response body.
type HTTPTransport struct {
	client *resty.Client
	path   string
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport for the analytics service at baseURL.
// No client timeout is set: answers stream for as long as the service needs.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetHeader("Accept", "text/event-stream")
	return &HTTPTransport{client: client, path: DefaultChatPath}
}

// NewHTTPTransportWithClient uses an existing resty client, e.g. one wired
// to an httptest server.
func NewHTTPTransportWithClient(client *resty.Client, path string) *HTTPTransport {
	if path == "" {
		path = DefaultChatPath
	}
	return &HTTPTransport{client: client, path: path}
}

type chatRequest struct {
	Question string `json:"question"`
}

// Open sends the question. Non-success statuses become
// *domain.RemoteRejectionError carrying the whole body; request failures
// become *domain.TransportError.
func (t *HTTPTransport) Open(ctx context.Context, question string) (io.ReadCloser, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{Question: question}).
		SetDoNotParseResponse(true).
		Post(t.path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.TransportError{Op: "send chat request", Err: err}
	}

	body := resp.RawBody()
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, rejection(resp.StatusCode(), body)
	}
	if body == nil || body == http.NoBody {
		return nil, &domain.TransportError{Op: "open chat stream", Err: domain.ErrStreamBodyMissing}
	}
	return body, nil
}

func rejection(status int, body io.ReadCloser) error {
	if body == nil {
		return &domain.RemoteRejectionError{StatusCode: status}
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(body, maxRejectionBody))
	if err != nil && !errors.Is(err, io.EOF) {
		return &domain.TransportError{Op: fmt.Sprintf("read rejection body (status %d)", status), Err: err}
	}
	return &domain.RemoteRejectionError{StatusCode: status, Body: string(data)}
}
