// Package testutils provides helpers shared across test packages.
package testutils

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// CtxMatcher allows callers to validate that a context.Context argument
// was supplied without matching it against a particular value.
var CtxMatcher = mock.MatchedBy(func(ctx context.Context) bool { return true })
