package http_post

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/sink"
)

// Input defines the arguments for the http_post sink.
type Input struct {
	URL     string            `hcl:"url"`
	Timeout string            `hcl:"timeout,optional"`
	Headers map[string]string `hcl:"headers,optional"`
}

type writer struct {
	client  *http.Client
	url     string
	headers map[string]string
}

func open(ctx context.Context, raw any) (sink.Writer, error) {
	input := raw.(*Input)
	if _, err := url.ParseRequestURI(input.URL); err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	client, err := createHttpClient(input.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Opened http_post sink.", "url", input.URL, "timeout", client.Timeout)
	return &writer{client: client, url: input.URL, headers: input.Headers}, nil
}

func (w *writer) Write(ctx context.Context, e sink.Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected response status %s", resp.Status)
	}
	return nil
}

func (w *writer) Close() error {
	destroyHttpClient(w.client)
	return nil
}
