package config

import (
	"fmt"
	"strings"
	"time"
)

// RerankConfig selects how search results are ordered before formatting.
type RerankConfig struct {
	Strategy string `mapstructure:"strategy"` // length, bm25
	TopK     int    `mapstructure:"top_k"`
}

// Normalize clamps configuration values and standardises keys.
func (c RerankConfig) Normalize() RerankConfig {
	c.Strategy = strings.ToLower(strings.TrimSpace(c.Strategy))
	if c.Strategy == "" {
		c.Strategy = "length"
	}
	if c.TopK <= 0 {
		c.TopK = 3
	}
	return c
}

func (c RerankConfig) Validate() error {
	switch c.Strategy {
	case "length", "bm25":
		return nil
	}
	return fmt.Errorf("rerank.strategy %q is not supported", c.Strategy)
}

// CriticConfig controls how the critic's reply is read.
type CriticConfig struct {
	// Mode is "loose" (approve unless the reply contains FAIL) or
	// "strict" (the reply must start with PASS and contain no FAIL).
	Mode string `mapstructure:"mode"`
}

func (c CriticConfig) Normalize() CriticConfig {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = "loose"
	}
	return c
}

func (c CriticConfig) Validate() error {
	switch c.Mode {
	case "loose", "strict":
		return nil
	}
	return fmt.Errorf("critic.mode %q is not supported", c.Mode)
}

// PipelineConfig bounds the search/format/critique retry loop.
type PipelineConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Budget      time.Duration `mapstructure:"budget"` // 0 means no wall-clock limit
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

func (c PipelineConfig) Normalize() PipelineConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.Budget < 0 {
		c.Budget = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}

func (c PipelineConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("pipeline.max_attempts must be >= 1")
	}
	if c.Budget > 0 && c.RetryDelay >= c.Budget {
		return fmt.Errorf("pipeline.retry_delay must be shorter than pipeline.budget")
	}
	return nil
}
