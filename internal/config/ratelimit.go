package config

import "time"

// RateLimitConfig drives the fixed-window limiter placed in front of the
// credential endpoints.  The defaults allow 5 attempts per minute per client
// address; a looser posture such as 10 per 5m only needs env overrides.
type RateLimitConfig struct {
	Enabled bool
	Window  time.Duration
	Max     int
	Prefix  string
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Window:  envDur("RATE_LIMIT_WINDOW", time.Minute),
		Max:     envInt("RATE_LIMIT_MAX", 5),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if def.Max < 1 {
		def.Max = 1
	}
	if def.Window <= 0 {
		def.Window = time.Minute
	}
	return def
}
