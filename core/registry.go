package core

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/scope"
)

type (
	// Func is a function value produced by an expression, bound to the
	// object it was read from.
	Func = scope.Func

	// Handler applies one directive to its element. Handlers only mutate
	// b.Elem, they never walk the tree themselves.
	Handler interface {
		Apply(b *Binding) error
	}

	HandlerFunc func(b *Binding) error

	// Binding is a directive occurrence being applied: for
	// vm-class-done="item.Done", Name is "class", Param is "done", Expr is
	// "item.Done" and Result is its value.
	Binding struct {
		Name      string
		Param     string
		Expr      string
		Result    interface{}
		Elem      dom.Element
		ViewModel interface{}
		Scope     scope.Scope

		engine *Engine
		pass   *pass
	}

	// Registry is the directive dispatch table.
	Registry struct {
		mu       sync.RWMutex
		handlers map[string]Handler
	}
)

func (f HandlerFunc) Apply(b *Binding) error {
	return f(b)
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register adds a handler, a name can only be registered once.
func (r *Registry) Register(name string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf(`%w: "%v"`, ErrDuplicateDirective, name)
	}

	r.handlers[name] = h
	return nil
}

// Replace registers h, overriding any handler with that name.
func (r *Registry) Replace(name string, h Handler) {
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (b *Binding) Engine() *Engine {
	return b.engine
}

func (b *Binding) Logger() *slog.Logger {
	return b.engine.logger.With("directive", b.Name, "expr", b.Expr)
}

// Attr is the attribute name the directive was read from.
func (b *Binding) Attr() string {
	name := b.engine.prefix + "-" + b.Name
	if b.Param != "" {
		name += "-" + b.Param
	}

	return name
}

// After queues fn to run once the current render pass has finished.
// Queued functions run last registered first.
func (b *Binding) After(fn func()) {
	if b.pass == nil {
		fn()
		return
	}

	b.pass.after = append(b.pass.after, fn)
}

// Schedule runs fn on a later turn through the element's document.
func (b *Binding) Schedule(delay time.Duration, fn func()) error {
	doc := b.Elem.Document()
	if doc == nil {
		return fmt.Errorf("%w: %v", dom.ErrNoDocument, dom.DebugInfo(b.Elem))
	}

	doc.Schedule(delay, fn)
	return nil
}
