package kv_test

import (
	"strings"
	"testing"

	"talentcore/testutil"
)

// The sqlite driver stays behind the kv store.
func TestOnlyKVImportsSQLite(t *testing.T) {
	if testing.Short() {
		t.Skip("package loading is slow")
	}
	testutil.AssertNoPackageImports(t, "talentcore/...", "talentcore/internal/kv",
		func(path string) bool {
			return strings.HasPrefix(path, "modernc.org/sqlite")
		},
		"SQLite access goes through internal/kv")
}
