// Package s3 provides the "s3" sink. It buffers entries as JSON lines and
// uploads the batch to a pre-signed URL when the sink is closed, which
// happens whenever its configuration generation is retired.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/registry"
	"github.com/specialistvlad/routegrid/internal/sink"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// Input defines the arguments for the s3 sink.
type Input struct {
	UploadURL   string `hcl:"upload_url"`
	ContentType string `hcl:"content_type,optional"`
	// MaxEntries bounds the buffer; 0 means unbounded.
	MaxEntries int `hcl:"max_entries,optional"`
}

type writer struct {
	ctx    context.Context
	client *http.Client
	input  *Input

	mu      sync.Mutex
	buf     bytes.Buffer
	entries int
}

func (m *Module) open(ctx context.Context, raw any) (sink.Writer, error) {
	input := raw.(*Input)
	if input.UploadURL == "" {
		return nil, fmt.Errorf("upload_url must not be empty")
	}
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &writer{ctx: context.WithoutCancel(ctx), client: client, input: input}, nil
}

func (w *writer) Write(ctx context.Context, e sink.Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.input.MaxEntries > 0 && w.entries >= w.input.MaxEntries {
		return fmt.Errorf("s3 buffer is full (%d entries)", w.input.MaxEntries)
	}
	w.buf.Write(line)
	w.buf.WriteByte('\n')
	w.entries++
	return nil
}

// Close uploads the buffered batch. An empty batch is not uploaded.
func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.entries == 0 {
		return nil
	}
	logger := ctxlog.FromContext(w.ctx).With("sink", "s3")

	req, err := http.NewRequestWithContext(w.ctx, http.MethodPut, w.input.UploadURL, bytes.NewReader(w.buf.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to create S3 upload request: %w", err)
	}
	contentType := w.input.ContentType
	if contentType == "" {
		contentType = "application/x-ndjson"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(w.buf.Len())

	logger.Info("Uploading log batch to S3", "entries", w.entries, "size", w.buf.Len())
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute S3 upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("S3 upload failed with status: %s", resp.Status)
	}
	logger.Info("Successfully uploaded log batch", "status", resp.Status)
	w.buf.Reset()
	w.entries = 0
	return nil
}

// Register registers the sink with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSink("s3", &sink.Kind{
		NewInput: func() any { return new(Input) },
		Open:     m.open,
	})
}
