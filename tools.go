//go:build tools

package tools

// Pins the mockery version used for pkg/device/mocks.
// Run: go run github.com/vektra/mockery/v2 (from the module root).
import (
	_ "github.com/vektra/mockery/v2"
)
