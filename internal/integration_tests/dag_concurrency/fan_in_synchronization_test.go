package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/app"
	"github.com/vk/flowgrid/modules/bignumber"
	"github.com/vk/flowgrid/modules/integer"
)

// TestDagConcurrency_FanInSynchronization validates that a node with two
// mandatory inputs waits for both producers.
func TestDagConcurrency_FanInSynchronization(t *testing.T) {
	t.Parallel()

	workspaceHCL := `
node "integer" "x" {
  settings {
    value = 2000000000
  }
}
node "integer" "y" {
  settings {
    value = 2000000000
  }
}
node "bignumber" "product" {
  settings {
    operation = "mul"
  }
}
`
	wiring := `
connect {
  from = "x.out"
  to   = "product.a"
}
connect {
  from = "y.out"
  to   = "product.b"
}
`
	files := map[string]string{"nodes.hcl": workspaceHCL, "wiring/edges.hcl": wiring}
	result := app.RunIntegrationTest(t, files, app.Config{}, &integer.Module{}, &bignumber.Module{})
	require.NoError(t, result.Err)
	assert.Equal(t, "product.out = 4000000000000000000\n", result.Output)
	assert.Contains(t, result.Logs, "compatibility=yellow", "int32 to bigint is an implicit conversion")
}
