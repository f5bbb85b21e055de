package integrationtests

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/routegrid/internal/host"
	"github.com/specialistvlad/routegrid/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messagesByLabel(result *HarnessResult, labels ...string) map[string][]string {
	got := make(map[string][]string, len(labels))
	for _, l := range labels {
		got[l] = result.Recorder.Messages(l)
	}
	return got
}

// TestRouting_MetaOperationsEndToEnd drives declare, add, insert, override,
// remove and nested sub-routes from HCL down to the sinks.
func TestRouting_MetaOperationsEndToEnd(t *testing.T) {
	// --- Arrange ---
	routes := `
route "main" {
  declare {
    action "record" "audit" {
      arguments { label = "audit" }
    }
  }
  add {
    action "record" "all" {
      arguments { label = "all" }
    }
    action "record" "noise" {
      arguments { label = "noise" }
    }
  }
  remove { actions = ["noise"] }

  sub_route "errors" {
    match_prefix = "err"
    insert "audit" {}

    sub_route "db" {
      match_suffix = ".db"
      override {
        action "record" "audit" {
          arguments { label = "db_audit" }
        }
      }
    }
  }

  sub_route "private" {
    match_exact = "private"
    import_parent_actions = false
    add {
      action "record" "vault" {
        arguments { label = "vault" }
      }
    }
  }
}
`
	input := strings.Join([]string{
		"api: a1",
		"errors.cache: e1",
		"errors.db: e2",
		"private: p1",
	}, "\n")

	// --- Act ---
	result := runIntegrationTest(t, map[string]string{"routes/main.hcl": routes}, input)

	// --- Assert ---
	require.NoError(t, result.Err)
	want := map[string][]string{
		"all":      {"a1", "e1", "e2"},
		"noise":    nil,
		"audit":    {"e1"},
		"db_audit": {"e2"},
		"vault":    {"p1"},
	}
	got := messagesByLabel(result, "all", "noise", "audit", "db_audit", "vault")
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("routed messages mismatch (-want +got):\n%s", diff)
	}
	require.Contains(t, result.LogOutput, "Configuration applied.")
}

func TestRouting_CloneableSinksOpenPerReference(t *testing.T) {
	// --- Arrange ---
	routes := `
route "main" {
  declare {
    action "record" "tap" {
      cloneable = true
      arguments { label = "tap" }
    }
    sequence "shared" {
      action "record" "inner" {
        arguments { label = "inner" }
      }
    }
  }
  insert "tap_one" { from = "tap" }
  insert "tap_two" { from = "tap" }
  insert "shared" {}
}
`

	// --- Act ---
	result := runIntegrationTest(t, map[string]string{"main.hcl": routes}, "api: x\n")

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Recorder.Opened("tap"), "each reference to a cloneable sink gets its own instance")
	assert.Equal(t, 1, result.Recorder.Opened("inner"))
	assert.Equal(t, []string{"x", "x"}, result.Recorder.Messages("tap"))
	assert.Equal(t, []string{"x"}, result.Recorder.Messages("inner"))
	assert.Equal(t, 2, result.Recorder.Closed("tap"))
}

func TestRouting_RouteDataFiltersAndEnriches(t *testing.T) {
	// --- Arrange ---
	t.Setenv("ROUTEGRID_REGION", "eu-west-1")
	routes := `
route "main" {
  data = {
    min_level = "warn"
    fields    = { region = env.ROUTEGRID_REGION }
  }
  add {
    action "record" "all" {
      arguments { label = "all" }
    }
  }
  sub_route "debug" {
    match_prefix = "debug"
    data = { min_level = "debug" }
  }
}
`
	input := strings.Join([]string{
		`{"route":"api","level":"info","message":"dropped"}`,
		`{"route":"api","level":"error","message":"kept","fields":{"code":500}}`,
		`{"route":"debug.sql","level":"debug","message":"verbose"}`,
	}, "\n")

	// --- Act ---
	result := runIntegrationTest(t, map[string]string{"main.hcl": routes}, input)

	// --- Assert ---
	require.NoError(t, result.Err)
	want := []sink.Entry{
		{Route: "api", Level: slog.LevelError, Message: "kept", Fields: map[string]any{"region": "eu-west-1", "code": float64(500)}},
		{Route: "debug.sql", Level: slog.LevelDebug, Message: "verbose", Fields: map[string]any{"region": "eu-west-1"}},
	}
	if diff := cmp.Diff(want, result.Recorder.Entries("all"), cmpopts.IgnoreFields(sink.Entry{}, "Time")); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestRouting_ResolutionErrorsAreAggregated(t *testing.T) {
	// --- Arrange ---
	routes := `
route "main" {
  insert "ghost" {}
  override {
    action "record" "phantom" {}
  }
  add {
    action "record" "twice" {}
    action "record" "twice" {}
  }
}
`

	// --- Act ---
	result := runIntegrationTest(t, map[string]string{"main.hcl": routes}, "")

	// --- Assert ---
	require.Error(t, result.Err)
	var resErr *host.ResolutionError
	require.True(t, errors.As(result.Err, &resErr), "got %v", result.Err)
	assert.Equal(t, 3, resErr.Count)
	assert.Contains(t, resErr.Error(), "ghost")
	assert.Contains(t, resErr.Error(), "phantom")
	assert.Contains(t, resErr.Error(), "twice")
	assert.Equal(t, host.StateClosed, result.App.Host().State())
}

func TestRouting_FailingSinkDoesNotStopTheRoute(t *testing.T) {
	// --- Arrange ---
	routes := `
route "main" {
  add {
    parallel "fanout" {
      action "record" "broken" {
        arguments {
          label      = "broken"
          fail_write = true
        }
      }
      action "record" "ok" {
        arguments { label = "ok" }
      }
    }
    action "record" "after" {
      arguments { label = "after" }
    }
  }
}
`

	// --- Act ---
	result := runIntegrationTest(t, map[string]string{"main.hcl": routes}, "api: one\napi: two\n")

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, []string{"one", "two"}, result.Recorder.Messages("ok"))
	assert.Equal(t, []string{"one", "two"}, result.Recorder.Messages("after"))
	assert.Equal(t, int64(2), result.App.Status().Failed)
	assert.Contains(t, result.LogOutput, "Failed to deliver entry.")
}
