package query

import (
	"fmt"

	"github.com/c360/graphrag/errors"
	"github.com/c360/graphrag/processor/query/response"
)

// Config configures the query pipeline.
type Config struct {
	// MaxHistory bounds the number of processed queries kept for History and feedback.
	MaxHistory int `json:"max_history" yaml:"max_history"`
	// MaxFollowUps caps the follow-up questions of one response.
	MaxFollowUps int `json:"max_follow_ups" yaml:"max_follow_ups"`
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{MaxHistory: 10, MaxFollowUps: response.MaxFollowUps}
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.MaxHistory == 0 {
		c.MaxHistory = d.MaxHistory
	}
	if c.MaxFollowUps == 0 {
		c.MaxFollowUps = d.MaxFollowUps
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxHistory < 0 {
		return errors.WrapInvalid(fmt.Errorf("max_history %d is negative", c.MaxHistory),
			"Config", "Validate", "check history bound")
	}
	if c.MaxFollowUps < 0 || c.MaxFollowUps > response.MaxFollowUps {
		return errors.WrapInvalid(fmt.Errorf("max_follow_ups %d outside [0, %d]", c.MaxFollowUps, response.MaxFollowUps),
			"Config", "Validate", "check follow-up cap")
	}
	return nil
}
