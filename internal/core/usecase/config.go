package usecase

import "time"

// Config controls the stream watcher.
//
// Enabled is read once when Run starts. IntervalMillis is the pause between
// cycles. Debug only affects log verbosity and is consumed by the logger.
type Config struct {
	Enabled              bool
	IntervalMillis       int `validate:"gt=0"`
	Debug                bool
	InvocationTimeoutMS  int `validate:"gte=0"`
	HonorFunctionTimeout bool
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMillis) * time.Millisecond
}

func (c *Config) InvocationTimeout() time.Duration {
	return time.Duration(c.InvocationTimeoutMS) * time.Millisecond
}
