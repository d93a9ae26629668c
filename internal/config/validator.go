package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var validCardModes = map[string]bool{
	"source":          true,
	"public-data":     true,
	"public-data-all": true,
}

var validScoringProfiles = map[string]bool{
	"conservative": true,
	"balanced":     true,
	"aggressive":   true,
}

// Validate checks the configuration for values the server cannot start with.
// Missing API keys are not errors here, the sync endpoints report them per
// call.
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}

	if c.DatabasePath == "" {
		errors = append(errors, "database path is required")
	}

	if c.MaxOpenConns < 1 {
		errors = append(errors, "max open connections must be at least 1")
	}
	if c.MaxIdleConns < 1 {
		errors = append(errors, "max idle connections must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, "max idle connections cannot be greater than max open connections")
	}
	if c.ConnMaxLifetime < time.Second {
		errors = append(errors, "connection max lifetime must be at least 1 second")
	}

	if c.Finlife.BaseURL == "" {
		errors = append(errors, "finlife base url is required")
	}
	if c.Finlife.MaxPagesPerGroup < 1 {
		errors = append(errors, "finlife max pages per group must be at least 1")
	}
	if c.Finlife.RateLimitPerSec < 1 {
		errors = append(errors, "finlife rate limit must be at least 1 request per second")
	}

	if !validCardModes[strings.ToLower(strings.TrimSpace(c.CardExternal.Mode))] {
		errors = append(errors, fmt.Sprintf("unsupported card external mode: %s", c.CardExternal.Mode))
	}
	if c.CardExternal.MaxPages < 1 {
		errors = append(errors, "card external max pages must be at least 1")
	}

	if !validScoringProfiles[strings.ToLower(strings.TrimSpace(c.Scoring.Profile))] {
		errors = append(errors, fmt.Sprintf("unsupported scoring profile: %s", c.Scoring.Profile))
	}

	if c.QualityLoop.WindowDays < 1 {
		errors = append(errors, "quality loop window days must be at least 1")
	}
	if c.QualityLoop.MaxAdjustment < 1 {
		errors = append(errors, "quality loop max adjustment must be at least 1")
	}
	if c.QualityLoop.Interval < time.Minute {
		errors = append(errors, "quality loop interval must be at least 1 minute")
	}

	if c.Scheduler.Interval < time.Minute {
		errors = append(errors, "catalog sync interval must be at least 1 minute")
	}

	if len(errors) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}
