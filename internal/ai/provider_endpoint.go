package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"
)

// EndpointProvider talks to a plain chat endpoint that accepts
// {"messages":[{role,content}]} and answers with either a streamed text body
// or a JSON object carrying the reply under "message".
type EndpointProvider struct {
	url    string
	client *http.Client
}

// EndpointOption configures an EndpointProvider.
type EndpointOption func(*EndpointProvider)

// WithEndpointHTTPClient sets a custom HTTP client.
func WithEndpointHTTPClient(client *http.Client) EndpointOption {
	return func(p *EndpointProvider) {
		p.client = client
	}
}

// NewEndpointProvider creates a provider for the chat endpoint at url.
func NewEndpointProvider(url string, opts ...EndpointOption) *EndpointProvider {
	p := &EndpointProvider{
		url:    url,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type endpointRequest struct {
	Messages []Message `json:"messages"`
}

type endpointResponse struct {
	Message string `json:"message"`
	Reply   string `json:"reply"`
	Content string `json:"content"`
	Error   string `json:"error"`
}

func (r endpointResponse) text() string {
	for _, s := range []string{r.Message, r.Reply, r.Content} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (p *EndpointProvider) send(ctx context.Context, req CompletionRequest) (*http.Response, error) {
	body, err := json.Marshal(endpointRequest{Messages: req.Messages})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("chat endpoint error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return resp, nil
}

func isJSON(resp *http.Response) bool {
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && (mt == "application/json" || strings.HasSuffix(mt, "+json"))
}

func decodeEndpointJSON(r io.Reader) (string, error) {
	var out endpointResponse
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("chat endpoint error: %s", out.Error)
	}
	text := out.text()
	if text == "" {
		return "", errors.New("chat endpoint returned no message")
	}
	return text, nil
}

func (p *EndpointProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	resp, err := p.send(ctx, req)
	if err != nil {
		return CompletionResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if isJSON(resp) {
		text, err := decodeEndpointJSON(resp.Body)
		if err != nil {
			return CompletionResponse{}, err
		}
		return CompletionResponse{Content: text, Model: "endpoint"}, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("read response: %w", err)
	}
	return CompletionResponse{Content: string(data), Model: "endpoint"}, nil
}

// StreamComplete relays a text body as it arrives. JSON replies arrive as a
// single chunk.
func (p *EndpointProvider) StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	resp, err := p.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if isJSON(resp) {
		defer func() { _ = resp.Body.Close() }()
		text, err := decodeEndpointJSON(resp.Body)
		if err != nil {
			return nil, err
		}
		ch := make(chan StreamChunk, 2)
		ch <- StreamChunk{Content: text}
		ch <- StreamChunk{Done: true, Model: "endpoint"}
		close(ch)
		return ch, nil
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer func() { _ = resp.Body.Close() }()

		send := func(c StreamChunk) bool {
			select {
			case ch <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		buf := make([]byte, 1024)
		var pending []byte
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				pending = append(pending, buf[:n]...)
				cut := completeRunes(pending)
				if cut > 0 {
					if !send(StreamChunk{Content: string(pending[:cut])}) {
						return
					}
					pending = append(pending[:0], pending[cut:]...)
				}
			}
			if errors.Is(err, io.EOF) {
				if len(pending) > 0 && !send(StreamChunk{Content: string(pending)}) {
					return
				}
				send(StreamChunk{Done: true, Model: "endpoint"})
				return
			}
			if err != nil {
				send(StreamChunk{Error: fmt.Errorf("read stream: %w", err)})
				return
			}
		}
	}()
	return ch, nil
}

// completeRunes returns the length of b without a trailing partial UTF-8
// sequence.
func completeRunes(b []byte) int {
	i := len(b) - 1
	for i > 0 && len(b)-i < utf8.UTFMax && !utf8.RuneStart(b[i]) {
		i--
	}
	if i >= 0 && !utf8.FullRune(b[i:]) {
		return i
	}
	return len(b)
}

func (p *EndpointProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "endpoint", Name: "Chat endpoint", Description: "Application chat endpoint"},
	}
}

// HealthCheck only verifies the endpoint URL is set; the endpoint exposes no
// probe route.
func (p *EndpointProvider) HealthCheck(_ context.Context) error {
	if p.url == "" {
		return errors.New("chat endpoint URL is empty")
	}
	return nil
}
