package form_test

import (
	"testing"

	"motoriz/testutil"
)

func TestFormStaysBelowFlowAndTransports(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.Under("internal/flow", "internal/adapters", "internal/console", "internal/infra"),
		"forms only map drafts to records")
}
