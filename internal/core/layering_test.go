package core_test

import (
	"testing"

	"motoriz/testutil"
)

func TestCoreDoesNotImportFrontEnds(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.Under("internal/adapters", "internal/console", "internal/auth", "internal/upload", "internal/flow", "internal/form"),
		"front ends depend on core, not the reverse")
}
