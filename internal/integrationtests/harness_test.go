package integrationtests

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/routegrid/internal/app"
	"github.com/specialistvlad/routegrid/internal/hcl"
	"github.com/specialistvlad/routegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	Recorder  *testutil.Recorder
}

// runIntegrationTest writes files into a temporary configuration directory,
// runs a full App over input with the recording sink registered and returns
// once the input is exhausted.
func runIntegrationTest(t *testing.T, files map[string]string, input string) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	appConfig, err := app.NewConfig(app.Config{
		ConfigPath: tmpDir,
		LogLevel:   "debug",
		LogFormat:  "text",
	})
	require.NoError(t, err)

	logBuffer := &testutil.SafeBuffer{}
	rec := testutil.NewRecorder()
	testApp := app.NewApp(logBuffer, strings.NewReader(input), appConfig, hcl.NewLoader(), rec)

	runErr := testApp.Run(context.Background())

	if os.Getenv("ROUTEGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}
	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		Recorder:  rec,
	}
}
