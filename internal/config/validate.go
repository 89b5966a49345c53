// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. Struct-tag rules cover ranges
// and enums; Validate adds the cross-field checks tags cannot express.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for structural and semantic errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid field %s: failed %q constraint", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("struct validation: %w", err)
	}

	if c.Search.Enabled && c.Search.Endpoint == "" {
		return errors.New("search.endpoint is required when search is enabled")
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return errors.New("webhook.url is required when the webhook is enabled")
	}
	if c.Monitor.CycleTimeout > c.Monitor.Interval {
		return fmt.Errorf("monitor.cycle_timeout (%s) must not exceed monitor.interval (%s): cycles must never overlap",
			c.Monitor.CycleTimeout, c.Monitor.Interval)
	}
	return nil
}
