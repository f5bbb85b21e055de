package host

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

var (
	// ErrPending is returned by ObtainRoute while a reconfiguration is in
	// progress. Callers should buffer their work and retry later.
	ErrPending = errors.New("configuration change pending")
	// ErrBuild wraps failures of the action factory.
	ErrBuild = errors.New("failed to build configuration")
	// ErrStart wraps starter failures. The host is Closed afterwards.
	ErrStart = errors.New("failed to start configuration")
)

// ResolutionError reports a configuration that could not be resolved.
type ResolutionError struct {
	Diags hcl.Diagnostics
	// Count is the number of error diagnostics.
	Count int
}

// Error lists every error diagnostic on its own line, in source order.
func (e *ResolutionError) Error() string {
	var errs hcl.Diagnostics
	for _, d := range e.Diags {
		if d.Severity == hcl.DiagError {
			errs = append(errs, d)
		}
	}
	slices.SortStableFunc(errs, compareDiagnostics)

	var b strings.Builder
	fmt.Fprintf(&b, "configuration has %d resolution error(s):", e.Count)
	for _, d := range errs {
		b.WriteString("\n  ")
		if d.Subject != nil {
			fmt.Fprintf(&b, "%s: ", d.Subject)
		}
		b.WriteString(d.Summary)
		if d.Detail != "" {
			fmt.Fprintf(&b, "; %s", d.Detail)
		}
	}
	return b.String()
}

// compareDiagnostics orders by file and offset. Diagnostics without a
// subject sort last.
func compareDiagnostics(a, b *hcl.Diagnostic) int {
	switch {
	case a.Subject == nil && b.Subject == nil:
		return 0
	case a.Subject == nil:
		return 1
	case b.Subject == nil:
		return -1
	}
	if c := cmp.Compare(a.Subject.Filename, b.Subject.Filename); c != 0 {
		return c
	}
	return cmp.Compare(a.Subject.Start.Byte, b.Subject.Start.Byte)
}
