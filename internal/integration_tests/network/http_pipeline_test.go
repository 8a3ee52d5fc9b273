package integration_tests

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/app"
	"github.com/vk/flowgrid/modules/constant"
	"github.com/vk/flowgrid/modules/hash"
	"github.com/vk/flowgrid/modules/http_client"
	"github.com/vk/flowgrid/modules/s3"
)

// TestNetwork_DownloadHashUpload fetches a document, hashes the streamed
// body and uploads the same body to a pre-signed URL.
func TestNetwork_DownloadHashUpload(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		uploaded string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, "hello world")
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			uploaded = string(body)
			mu.Unlock()
		}
	}))
	t.Cleanup(srv.Close)

	workspaceHCL := fmt.Sprintf(`
node "constant" "source_url" {
  settings {
    value = "%[1]s/doc.txt"
  }
}
node "constant" "target_url" {
  settings {
    value = "%[1]s/bucket/doc.txt?X-Amz-Signature=abc"
  }
}
node "http_request" "dl" {}
node "hash" "digest" {
  settings {
    algorithm = "md5"
  }
}
node "s3_upload" "up" {
  settings {
    filename = "doc.txt"
  }
}

connect {
  from = "source_url.out"
  to   = "dl.url"
}
connect {
  from = "dl.response"
  to   = "digest.in"
}
connect {
  from = "dl.response"
  to   = "up.data"
}
connect {
  from = "target_url.out"
  to   = "up.url"
}
`, srv.URL)

	cfg := app.Config{Outputs: []string{"dl.status", "digest.digest", "up.status"}}
	result := app.RunIntegrationTest(t, map[string]string{"main.hcl": workspaceHCL}, cfg,
		&constant.Module{}, &http_client.Module{}, &hash.Module{}, &s3.Module{})
	require.NoError(t, result.Err)

	assert.Equal(t, "digest.digest = 5eb63bbbe01eeed093cb22bb8f5acdc3\ndl.status = 200\nup.status = 200 OK\n", result.Output)
	mu.Lock()
	assert.Equal(t, "hello world", uploaded)
	mu.Unlock()
}
