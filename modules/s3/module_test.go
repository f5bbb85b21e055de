package s3_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/specialistvlad/routegrid/internal/sink"
	"github.com/specialistvlad/routegrid/internal/testutil"
	"github.com/specialistvlad/routegrid/modules/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	method      string
	contentType string
	body        string
}

func uploadServer(t *testing.T, status int) (*httptest.Server, chan upload) {
	t.Helper()
	uploads := make(chan upload, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		uploads <- upload{method: r.Method, contentType: r.Header.Get("Content-Type"), body: string(body)}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, uploads
}

func TestS3_UploadsBatchOnClose(t *testing.T) {
	// --- Arrange ---
	srv, uploads := uploadServer(t, http.StatusOK)
	kind, input := testutil.SinkInput(t, &s3.Module{}, "s3", fmt.Sprintf("upload_url = %q", srv.URL+"/bucket/key"))
	w, err := kind.Open(context.Background(), input)
	require.NoError(t, err)

	// --- Act ---
	require.NoError(t, w.Write(context.Background(), sink.Entry{Message: "one"}))
	require.NoError(t, w.Write(context.Background(), sink.Entry{Message: "two"}))
	assert.Empty(t, uploads, "nothing is uploaded before close")
	require.NoError(t, w.Close())

	// --- Assert ---
	require.Len(t, uploads, 1)
	got := <-uploads
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "application/x-ndjson", got.contentType)
	lines := strings.Split(strings.TrimSpace(got.body), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"message":"one"`)
	assert.Contains(t, lines[1], `"message":"two"`)
}

func TestS3_EmptyBatchIsNotUploaded(t *testing.T) {
	srv, uploads := uploadServer(t, http.StatusOK)
	kind, input := testutil.SinkInput(t, &s3.Module{}, "s3", fmt.Sprintf("upload_url = %q", srv.URL))
	w, err := kind.Open(context.Background(), input)
	require.NoError(t, err)

	require.NoError(t, w.Close())

	assert.Empty(t, uploads)
}

func TestS3_Failures(t *testing.T) {
	t.Run("upload rejected", func(t *testing.T) {
		srv, _ := uploadServer(t, http.StatusForbidden)
		kind, input := testutil.SinkInput(t, &s3.Module{}, "s3", fmt.Sprintf("upload_url = %q", srv.URL))
		w, err := kind.Open(context.Background(), input)
		require.NoError(t, err)
		require.NoError(t, w.Write(context.Background(), sink.Entry{Message: "x"}))

		err = w.Close()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("buffer full", func(t *testing.T) {
		kind, input := testutil.SinkInput(t, &s3.Module{}, "s3", `
upload_url  = "http://localhost/unused"
max_entries = 1
`)
		w, err := kind.Open(context.Background(), input)
		require.NoError(t, err)
		require.NoError(t, w.Write(context.Background(), sink.Entry{Message: "x"}))

		err = w.Write(context.Background(), sink.Entry{Message: "y"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "buffer is full")
	})

	t.Run("empty url", func(t *testing.T) {
		kind, input := testutil.SinkInput(t, &s3.Module{}, "s3", `upload_url = ""`)

		_, err := kind.Open(context.Background(), input)

		require.Error(t, err)
	})
}
