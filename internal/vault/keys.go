package vault

import (
	"fmt"
	"path"
	"strings"
)

// reportsDir is the top-level folder every vault stores reports under.
const reportsDir = "reports"

// checkReportKey rejects run IDs and report names that would escape their
// folder or collide with another run.
func checkReportKey(runID, name string) error {
	for _, part := range []struct{ what, v string }{{"run id", runID}, {"report name", name}} {
		if part.v == "" || part.v == "." || part.v == ".." || strings.ContainsAny(part.v, `/\`) {
			return fmt.Errorf("invalid %s: %q", part.what, part.v)
		}
	}
	return nil
}

// reportKey returns the slash-separated object key of a report below prefix.
func reportKey(prefix, runID, name string) string {
	return path.Join(strings.Trim(prefix, "/"), reportsDir, runID, name)
}
