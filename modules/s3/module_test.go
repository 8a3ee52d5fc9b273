package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/testutil"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
)

func TestContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "text/csv", ContentType("text/csv", "a.json"))
	assert.Equal(t, "application/json", ContentType("", "report.json"))
	assert.Equal(t, "application/octet-stream", ContentType("", "blob"))
}

func TestUpload(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received []byte
		ct       string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "bad method", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path == "/denied" {
			http.Error(w, "denied", http.StatusForbidden)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received, ct = body, r.Header.Get("Content-Type")
		mu.Unlock()
	}))
	t.Cleanup(srv.Close)

	c := &Component{}
	require.NoError(t, c.ApplySetting("timeout", cty.StringVal("5s")))
	require.NoError(t, c.ApplySetting("filename", cty.StringVal("notes.txt")))
	require.NoError(t, c.Initialize(context.Background()))
	t.Cleanup(func() { _ = c.Dispose() })

	require.NoError(t, c.SetInput(0, typebridge.NewMemoryStream([]byte("payload"))))
	require.NoError(t, c.SetInput(1, srv.URL+"/bucket/notes.txt"))
	out, err := c.Execute(context.Background(), testutil.NopReporter{})
	require.NoError(t, err)
	assert.Equal(t, "200 OK", out[0])

	mu.Lock()
	assert.Equal(t, "payload", string(received))
	assert.Contains(t, ct, "text/plain")
	mu.Unlock()

	require.NoError(t, c.SetInput(1, srv.URL+"/denied"))
	_, err = c.Execute(context.Background(), testutil.NopReporter{})
	require.ErrorContains(t, err, "403")
}

func TestUpload_Errors(t *testing.T) {
	t.Parallel()

	c := &Component{}
	_, err := c.Execute(context.Background(), testutil.NopReporter{})
	require.ErrorContains(t, err, "not initialized")

	require.NoError(t, c.Initialize(context.Background()))
	_, err = c.Execute(context.Background(), testutil.NopReporter{})
	require.ErrorContains(t, err, "required")

	require.Error(t, c.ApplySetting("timeout", cty.StringVal("soon")))
	require.Error(t, c.ApplySetting("region", cty.StringVal("x")))
}
