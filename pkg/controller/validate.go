package controller

import (
	"go.uber.org/zap"
)

// Validate validates every field that has a validator, notifying result
// listeners, then queues a message-visibility pass for the end of the batch
// and broadcasts a change.
func (c *Controller) Validate() {
	keys := c.validatorKeys()
	for _, key := range keys {
		c.validateField(key, false)
	}
	c.mu.Lock()
	c.pending.deferValidate(func() {
		for _, key := range keys {
			c.notifyMessage(key)
		}
	})
	c.mu.Unlock()
	c.broadcast()
}

// ValidateField runs the validation pipeline for one field. With silent set
// the result is recorded without notifying result listeners.
func (c *Controller) ValidateField(key string, silent bool) {
	c.validateField(key, silent)
}

func (c *Controller) validatorKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	for _, key := range c.state.order {
		if c.validatorLocked(key) != nil {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *Controller) validatorLocked(key string) ValidateFunc {
	if entry, ok := c.validators[key]; ok && entry.validate != nil {
		return entry.validate
	}
	return c.cfg.Validation[key]
}

func (c *Controller) validateField(key string, silent bool) {
	c.mu.Lock()
	fn := c.validatorLocked(key)
	r, ok := c.state.fields[key]
	if fn == nil || !ok {
		c.mu.Unlock()
		return
	}
	if r.disabled || !r.visible {
		c.mu.Unlock()
		return
	}
	if r.validated {
		invalid, content := !r.valid, r.result
		c.mu.Unlock()
		if invalid && !silent {
			c.notifyResult(key, content)
		}
		return
	}
	value := r.value
	fields := c.state.Fields()
	c.mu.Unlock()

	outcome := fn(value, fields)

	if pending, ok := outcome.(Pending); ok && pending.Promise != nil {
		c.mu.Lock()
		epoch := c.state.beginValidation(key, pending.Content)
		c.mu.Unlock()
		if !silent {
			c.notifyResult(key, pending.Content)
		}
		c.await(key, epoch, pending.Promise, silent)
		return
	}

	res := Resolve(outcome)
	c.mu.Lock()
	c.state.settle(key, res)
	c.mu.Unlock()
	if !silent {
		c.notifyResult(key, res.Content)
	}
}

func (c *Controller) await(key string, epoch uint64, promise Promise, silent bool) {
	ctx := c.settings.ctx
	go func() {
		res, err := promise(ctx)
		c.settings.scheduler(func() {
			c.resolveAsync(key, epoch, res, err, silent)
		})
	}()
}

func (c *Controller) resolveAsync(key string, epoch uint64, res Result, err error, silent bool) {
	c.mu.Lock()
	if err != nil {
		current := c.state.reject(key, epoch)
		c.mu.Unlock()
		if !current {
			return
		}
		c.log.Warn("async validation failed", zap.String("key", key), zap.Error(err))
		c.broadcast()
		return
	}
	if !c.state.resolve(key, epoch, res) {
		c.mu.Unlock()
		c.log.Debug("discarding stale validation result", zap.String("key", key), zap.Uint64("epoch", epoch))
		return
	}
	show := !silent || c.submitted || c.cfg.ValidateOnChange
	c.mu.Unlock()

	if show {
		c.notifyResult(key, res.Content)
		c.notifyMessage(key)
	}
	c.broadcast()
}

func (c *Controller) notifyResult(key string, content any) {
	c.mu.Lock()
	var callbacks []func(content any)
	if entry, ok := c.validators[key]; ok {
		callbacks = entry.callbacks()
	}
	c.mu.Unlock()
	for _, fn := range callbacks {
		fn(content)
	}
}
