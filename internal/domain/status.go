// internal/domain/status.go
package domain

import "strings"

// LiquidityStatus classifies stock health relative to configured thresholds.
type LiquidityStatus string

const (
	StatusCritical LiquidityStatus = "critical"
	StatusLow      LiquidityStatus = "low"
	StatusNormal   LiquidityStatus = "normal"
	StatusExcess   LiquidityStatus = "excess"
	StatusInactive LiquidityStatus = "inactive"
)

var liquidityStatuses = map[string]LiquidityStatus{
	"critical": StatusCritical,
	"low":      StatusLow,
	"normal":   StatusNormal,
	"excess":   StatusExcess,
	"inactive": StatusInactive,
}

// ParseLiquidityStatus returns the status for a given label (case-insensitive).
func ParseLiquidityStatus(label string) (LiquidityStatus, bool) {
	status, ok := liquidityStatuses[strings.ToLower(strings.TrimSpace(label))]

	return status, ok
}

// NeedsReplenishment reports whether the status feeds recommendation
// generation.
func (s LiquidityStatus) NeedsReplenishment() bool {
	return s == StatusCritical || s == StatusLow
}
