package http_post_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/specialistvlad/routegrid/internal/sink"
	"github.com/specialistvlad/routegrid/internal/testutil"
	"github.com/specialistvlad/routegrid/modules/http_post"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPost_SendsJSON(t *testing.T) {
	// --- Arrange ---
	var (
		mu       sync.Mutex
		received []sink.Entry
		token    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e sink.Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, e)
		token = r.Header.Get("X-Token")
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	kind, input := testutil.SinkInput(t, &http_post.Module{}, "http_post", fmt.Sprintf(`
url     = %q
timeout = "2s"
headers = { "X-Token" = "secret" }
`, srv.URL))
	w, err := kind.Open(context.Background(), input)
	require.NoError(t, err)
	defer w.Close()

	// --- Act ---
	err = w.Write(context.Background(), sink.Entry{Route: "api", Message: "hello"})

	// --- Assert ---
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "hello", received[0].Message)
	assert.Equal(t, "api", received[0].Route)
	assert.Equal(t, "secret", token)
}

func TestHTTPPost_ErrorStatus(t *testing.T) {
	// --- Arrange ---
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	kind, input := testutil.SinkInput(t, &http_post.Module{}, "http_post", fmt.Sprintf("url = %q", srv.URL))
	w, err := kind.Open(context.Background(), input)
	require.NoError(t, err)
	defer w.Close()

	// --- Act ---
	err = w.Write(context.Background(), sink.Entry{Message: "boom"})

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPPost_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "url", src: `url = "not a url"`, want: "failed to parse URL"},
		{name: "timeout", src: `
url     = "http://localhost"
timeout = "soon"
`, want: "invalid timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, input := testutil.SinkInput(t, &http_post.Module{}, "http_post", tt.src)

			_, err := kind.Open(context.Background(), input)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
