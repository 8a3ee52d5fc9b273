package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/app"
	"github.com/vk/flowgrid/internal/testutil"
	"github.com/vk/flowgrid/modules/constant"
)

// TestDagConcurrency_ChainExecution validates that a consumer fires only
// after its producer finished and that values arrive intact.
func TestDagConcurrency_ChainExecution(t *testing.T) {
	t.Parallel()

	workspaceHCL := `
node "constant" "src" {
  settings {
    value = "token"
  }
}
node "sleeper" "first" {}
node "sleeper" "second" {}

connect {
  from = "src.out"
  to   = "first.in"
}
connect {
  from = "first.out"
  to   = "second.in"
}
`
	sleeper := testutil.NewMockSleeperModule(nil, 50*time.Millisecond)
	result := app.RunIntegrationTest(t, map[string]string{"main.hcl": workspaceHCL}, app.Config{}, &constant.Module{}, sleeper)
	require.NoError(t, result.Err)
	assert.Equal(t, "second.out = token\n", result.Output)

	records := sleeper.Records()
	require.Len(t, records, 2)
	assert.False(t, records[1].Start.Before(records[0].End), "second started before first finished")
}
