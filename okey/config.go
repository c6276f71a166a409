package okey

import (
	"fmt"
	"time"
)

type Config struct {
	// Opening
	OpenThreshold int // 0 => BaseOpenThreshold

	// Timed windows (0 disables the deadline; the transition still
	// happens when the caller resolves it explicitly)
	SidePickupWindow time.Duration
	PermissionWindow time.Duration
	ForcedOpenWindow time.Duration

	// RNG seed (0 => time-based)
	Seed int64
}

func (c Config) validate() error {
	if c.OpenThreshold < 0 {
		return fmt.Errorf("OpenThreshold must be >= 0")
	}
	if c.SidePickupWindow < 0 || c.PermissionWindow < 0 || c.ForcedOpenWindow < 0 {
		return fmt.Errorf("windows must be >= 0")
	}
	return nil
}

func (c Config) openThreshold() int {
	if c.OpenThreshold == 0 {
		return BaseOpenThreshold
	}
	return c.OpenThreshold
}
