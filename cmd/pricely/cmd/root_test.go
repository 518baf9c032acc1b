package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/pricely/pkg/types"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_TrackersList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/trackers", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]domain.Tracker{{ID: "t-cli", UserID: "u1"}})
	}))
	defer srv.Close()

	out, err := runCLI(t, "trackers", "list", "--server", srv.URL, "--output", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "t-cli")
	assert.Contains(t, out, "TARGET")

	out, err = runCLI(t, "trackers", "list", "--server", srv.URL, "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "t-cli"`)
}

func TestCLI_TrackerUpdateNeedsAChange(t *testing.T) {
	_, err := runCLI(t, "trackers", "update", "t1", "--server", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pricely dev\n", out)
}
