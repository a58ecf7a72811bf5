package controller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Submit marks the form submitted and validates every field. While async
// validations are outstanding, button listeners are disabled and Submit polls
// until they settle. A valid form is handed to Config.OnSubmit. The returned
// Controller is the receiver itself.
func (c *Controller) Submit(ctx context.Context) (*Controller, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.warnRetired("Submit")
	c.mu.Lock()
	c.submitted = true
	c.mu.Unlock()

	c.Validate()

	if c.Pending() {
		c.notifyButtons(true)
		c.log.Debug("waiting for async validation", zap.Duration("poll_interval", c.pollInterval()))
		err := c.waitSettled(ctx)
		c.notifyButtons(false)
		if err != nil {
			return c, err
		}
	}

	if !c.IsValid() || c.cfg.OnSubmit == nil {
		return c, nil
	}
	if err := c.cfg.OnSubmit(ctx, c.Fields(), c); err != nil {
		return c, fmt.Errorf("controller: submit: %w", err)
	}
	return c, nil
}

func (c *Controller) waitSettled(ctx context.Context) error {
	ticker := time.NewTicker(c.pollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !c.Pending() {
				return nil
			}
		}
	}
}
