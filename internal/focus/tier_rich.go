//go:build darwin || linux

package focus

// DefaultTier is the tier this build runs with
const DefaultTier = TierRich
