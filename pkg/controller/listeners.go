package controller

import "sync"

// listenerSet keeps listeners in insertion order behind stable ids. Callers
// hold the controller mutex.
type listenerSet[T any] struct {
	next  uint64
	order []uint64
	items map[uint64]T
}

func newListenerSet[T any]() *listenerSet[T] {
	return &listenerSet[T]{items: make(map[uint64]T)}
}

func (s *listenerSet[T]) add(item T) uint64 {
	s.next++
	s.items[s.next] = item
	s.order = append(s.order, s.next)
	return s.next
}

func (s *listenerSet[T]) remove(id uint64) {
	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	for i, candidate := range s.order {
		if candidate == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *listenerSet[T]) snapshot() []T {
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

type validatorEntry struct {
	validate ValidateFunc
	radio    bool
	action   func(content any)
	actions  map[string]func(content any)
	order    []string
	// tokens records which subscription owns each slot, keyed by option id
	// ("" for non-radio fields).
	tokens map[string]uint64
}

// optionRef addresses one radio option of one group.
type optionRef struct {
	key string
	id  string
}

type selectedEntry struct {
	sel   Selection
	token uint64
}

func (e *validatorEntry) empty() bool {
	if e.radio {
		return len(e.actions) == 0
	}
	return e.action == nil
}

func (e *validatorEntry) callbacks() []func(content any) {
	if !e.radio {
		if e.action == nil {
			return nil
		}
		return []func(content any){e.action}
	}
	out := make([]func(content any), 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.actions[id])
	}
	return out
}

func (c *Controller) disposer(remove func()) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			remove()
		})
	}
}

// SubscribeOnChange registers the umbrella change listener.
func (c *Controller) SubscribeOnChange(fn ChangeFunc) Unsubscribe {
	if fn == nil {
		panic(ErrNilAction)
	}
	c.mu.Lock()
	id := c.onChange.add(fn)
	c.mu.Unlock()
	return c.disposer(func() { c.onChange.remove(id) })
}

// SubscribeOnDisable registers a field-scoped disable listener.
func (c *Controller) SubscribeOnDisable(l DisableListener) Unsubscribe {
	mustListen(l.Key, l.Action == nil)
	c.mu.Lock()
	id := c.onDisable.add(l)
	c.mu.Unlock()
	return c.disposer(func() { c.onDisable.remove(id) })
}

// SubscribeOnDisableButton registers a submit-button listener.
func (c *Controller) SubscribeOnDisableButton(fn ButtonFunc) Unsubscribe {
	if fn == nil {
		panic(ErrNilAction)
	}
	c.mu.Lock()
	id := c.onButton.add(fn)
	c.mu.Unlock()
	return c.disposer(func() { c.onButton.remove(id) })
}

// SubscribeOnValidate registers a message-visibility listener.
func (c *Controller) SubscribeOnValidate(l MessageListener) Unsubscribe {
	mustListen(l.Key, l.Action == nil)
	c.mu.Lock()
	id := c.onValidate.add(l)
	c.mu.Unlock()
	return c.disposer(func() { c.onValidate.remove(id) })
}

// SubscribeValidator registers a field's validation function and result
// callback, creating the field record when needed. A radio subscription adds
// one callback per option ID; any other subscription replaces the slot.
func (c *Controller) SubscribeValidator(v Validator) Unsubscribe {
	mustListen(v.Key, v.Action == nil)
	radio := v.Type == FieldRadio
	if radio && v.ID == "" {
		panic(ErrEmptyOptionID)
	}
	c.mu.Lock()
	c.state.ensure(v.Key)
	entry, ok := c.validators[v.Key]
	if !ok || entry.radio != radio {
		entry = &validatorEntry{radio: radio, tokens: make(map[string]uint64)}
		if radio {
			entry.actions = make(map[string]func(content any))
		}
		c.validators[v.Key] = entry
	}
	if v.Validate != nil {
		entry.validate = v.Validate
	}
	slot := ""
	if radio {
		slot = v.ID
		if _, exists := entry.actions[v.ID]; !exists {
			entry.order = append(entry.order, v.ID)
		}
		entry.actions[v.ID] = v.Action
	} else {
		entry.action = v.Action
	}
	c.subSeq++
	token := c.subSeq
	entry.tokens[slot] = token
	c.mu.Unlock()
	return c.disposer(func() {
		if current, ok := c.validators[v.Key]; ok && current.tokens[slot] == token {
			c.removeValidator(v.Key, v.ID)
		}
	})
}

// UnsubscribeValidator removes the callback registered for key (and option id
// for radio fields).
func (c *Controller) UnsubscribeValidator(key, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeValidator(key, id)
}

func (c *Controller) removeValidator(key, id string) {
	entry, ok := c.validators[key]
	if !ok {
		return
	}
	if entry.radio {
		if _, exists := entry.actions[id]; !exists {
			return
		}
		delete(entry.actions, id)
		delete(entry.tokens, id)
		for i, candidate := range entry.order {
			if candidate == id {
				entry.order = append(entry.order[:i], entry.order[i+1:]...)
				break
			}
		}
	} else {
		entry.action = nil
		delete(entry.tokens, "")
	}
	if entry.empty() {
		delete(c.validators, key)
	}
}

// SubscribeIsSelected registers a radio option. The option joins the group's
// per-option state and, when its Value equals the initial value, becomes the
// default option. Option ids are scoped to their group.
func (c *Controller) SubscribeIsSelected(sel Selection) Unsubscribe {
	mustListen(sel.Key, sel.Action == nil)
	if sel.ID == "" {
		panic(ErrEmptyOptionID)
	}
	ref := optionRef{key: sel.Key, id: sel.ID}
	c.mu.Lock()
	c.subSeq++
	token := c.subSeq
	c.selected[ref] = selectedEntry{sel: sel, token: token}
	c.state.Apply(RegisterOption{Key: sel.Key, ID: sel.ID, Value: sel.Value})
	c.mu.Unlock()
	return c.disposer(func() {
		if current, ok := c.selected[ref]; ok && current.token == token {
			delete(c.selected, ref)
		}
	})
}

// UnsubscribeIsSelected removes the callback of option id in group key.
func (c *Controller) UnsubscribeIsSelected(key, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.selected, optionRef{key: key, id: id})
}

func mustListen(key string, nilAction bool) {
	if key == "" {
		panic(ErrEmptyKey)
	}
	if nilAction {
		panic(ErrNilAction)
	}
}
