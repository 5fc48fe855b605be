// Package ratelimit provides client-side throttling for portal API calls.
package ratelimit

import "time"

// Portal throttle limits
//
// The portal applies one shared per-token limit to all /api/ endpoints.
const (
	// PortalLimitPerHour is the documented per-token limit.
	PortalLimitPerHour = 18000 // 5 requests per second

	// PortalTargetPercent keeps a safety margin below the hard limit.
	PortalTargetPercent = 80
)

// Derived rates
const (
	// PortalRatePerSec is the steady-state refill rate.
	PortalRatePerSec = float64(PortalLimitPerHour) / 3600.0 * PortalTargetPercent / 100.0

	// PortalBurstCapacity lets a browse (two concurrent fetches) plus a
	// follow-up refresh go out without waiting.
	PortalBurstCapacity = 20.0
)

// Cooldown bounds applied after a 429.
const (
	// DefaultCooldown is used when a 429 carries no Retry-After header.
	DefaultCooldown = 5 * time.Second

	// MaxCooldown caps whatever the server asks for.
	MaxCooldown = 2 * time.Minute
)
