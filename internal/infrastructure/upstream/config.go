package upstream

import (
	"fmt"

	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
)

// Config holds configuration for the upstream fulfillment API.
type Config struct {
	// APIBaseURL is the base URL of the upstream REST API
	APIBaseURL string
	// Email and Password are the login credentials. Starting without them
	// is a fatal configuration error.
	Email    string
	Password string
	// RequiredShippingInstruction is the literal instruction name the
	// repair workflow selects. Matching is exact; see
	// fulfillment.SelectRequiredInstruction.
	RequiredShippingInstruction string
	// QuoteMode submits non-committing quotes instead of firm orders.
	// Used for dry runs and staging environments.
	QuoteMode bool
	// TimeoutSeconds is the per-call HTTP timeout
	TimeoutSeconds int
}

// Validate validates the upstream configuration and applies defaults.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("%w: api base url is required", fulfillment.ErrUpstreamNotConfigured)
	}
	if c.Email == "" {
		return fmt.Errorf("%w: login email is required", fulfillment.ErrUpstreamNotConfigured)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: login password is required", fulfillment.ErrUpstreamNotConfigured)
	}
	if c.RequiredShippingInstruction == "" {
		return fmt.Errorf("%w: required shipping instruction name is required", fulfillment.ErrUpstreamNotConfigured)
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
