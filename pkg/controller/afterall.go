package controller

// afterAll holds reconciliation work queued while a change broadcast is in
// progress. Disable and visibility work is keyed per field so a cascade that
// touches a field many times runs its reconciliation once.
type afterAll struct {
	disable      map[string]func()
	disableOrder []string
	visible      map[string]func()
	visibleOrder []string
	validate     []func()
}

func newAfterAll() *afterAll {
	return &afterAll{
		disable: make(map[string]func()),
		visible: make(map[string]func()),
	}
}

func (a *afterAll) deferDisable(key string, fn func()) {
	if _, ok := a.disable[key]; !ok {
		a.disableOrder = append(a.disableOrder, key)
	}
	a.disable[key] = fn
}

func (a *afterAll) deferVisible(key string, fn func()) {
	if _, ok := a.visible[key]; ok {
		return
	}
	a.visible[key] = fn
	a.visibleOrder = append(a.visibleOrder, key)
}

func (a *afterAll) deferValidate(fn func()) {
	a.validate = append(a.validate, fn)
}

func (a *afterAll) empty() bool {
	return len(a.disableOrder) == 0 && len(a.visibleOrder) == 0 && len(a.validate) == 0
}

// drain returns the queued work in disable, visible, validate order and clears
// every queue.
func (a *afterAll) drain() []func() {
	if a.empty() {
		return nil
	}
	out := make([]func(), 0, len(a.disableOrder)+len(a.visibleOrder)+len(a.validate))
	for _, key := range a.disableOrder {
		out = append(out, a.disable[key])
	}
	for _, key := range a.visibleOrder {
		out = append(out, a.visible[key])
	}
	out = append(out, a.validate...)

	a.disable = make(map[string]func())
	a.disableOrder = nil
	a.visible = make(map[string]func())
	a.visibleOrder = nil
	a.validate = nil
	return out
}
