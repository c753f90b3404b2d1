// Package core is the binding engine. It walks a DOM subtree, evaluates
// the vm- directive attributes against a ViewModel and applies them
// through a dispatch table (render), reads bound inputs back into the
// ViewModel (sync), and reconciles the clones of vm-each templates.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/expr"
	"github.com/gowade/vmr/scope"
	"github.com/gowade/vmr/utils"
)

const (
	DefaultPrefix      = "vm"
	DefaultPlaceholder = "(?)"
	DefaultFocusDelay  = 100 * time.Millisecond

	// IndexAttr holds the position of an each clone.
	IndexAttr = "index"
)

// Directive names the walker interprets itself.
const (
	DirWith      = "with"
	DirEach      = "each"
	DirRoot      = "root"
	DirContainer = "container"
	DirValue     = "value"
)

type (
	// Evaluator evaluates and assigns binding expressions.
	Evaluator interface {
		Eval(expression string, s scope.Scope) (interface{}, error)
		Assign(value interface{}, expression string, s scope.Scope) error
	}

	// Identifier is implemented by ViewModels that provide their own
	// container marker.
	Identifier interface {
		VMID() string
	}

	// Observer is notified of the passes and directive applications of an
	// Engine.
	Observer interface {
		StartPass(ctx context.Context, kind string) (context.Context, func(err error))
		Directive(name string)
		ReadFailure(expression string)
	}

	Option func(*Engine)

	idKey struct {
		typ reflect.Type
		ptr uintptr
	}

	Engine struct {
		prefix      string
		attrRegex   *regexp.Regexp
		placeholder string
		focusDelay  time.Duration

		evaluator Evaluator
		registry  *Registry
		helpers   map[string]interface{}
		logger    *slog.Logger
		observer  Observer

		mu     sync.Mutex
		ids    map[idKey]string
		seq    int
		events map[string]bool
	}

	nopObserver struct{}
)

func (nopObserver) StartPass(ctx context.Context, kind string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (nopObserver) Directive(string)   {}
func (nopObserver) ReadFailure(string) {}

func WithPrefix(prefix string) Option {
	return func(e *Engine) {
		e.prefix = prefix
	}
}

func WithPlaceholder(placeholder string) Option {
	return func(e *Engine) {
		e.placeholder = placeholder
	}
}

func WithFocusDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.focusDelay = d
	}
}

func WithEvaluator(ev Evaluator) Option {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// NewEngine returns an engine with an empty dispatch table, the native
// expression evaluator and the default helpers.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		prefix:      DefaultPrefix,
		placeholder: DefaultPlaceholder,
		focusDelay:  DefaultFocusDelay,
		evaluator:   expr.New(),
		registry:    NewRegistry(),
		helpers:     scope.DefaultHelpers(),
		logger:      slog.Default(),
		observer:    nopObserver{},
		ids:         map[idKey]string{},
		events:      map[string]bool{"click": true, "keyup": true, "blur": true},
	}

	for _, opt := range opts {
		opt(e)
	}

	e.attrRegex = regexp.MustCompile(`^` + regexp.QuoteMeta(e.prefix) + `-([^-]*)-?(.*)$`)
	return e
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

func (e *Engine) Prefix() string {
	return e.prefix
}

func (e *Engine) FocusDelay() time.Duration {
	return e.focusDelay
}

func (e *Engine) Placeholder() string {
	return e.placeholder
}

// RegisterHelper makes fn callable by name from every expression.
func (e *Engine) RegisterHelper(name string, fn interface{}) error {
	typ := reflect.TypeOf(fn)
	if typ == nil || typ.Kind() != reflect.Func {
		return fmt.Errorf("Invalid helper %v, must be a function.", name)
	}

	if typ.NumOut() == 0 {
		return fmt.Errorf("Helper %v must return something.", name)
	}

	if _, exists := e.helpers[name]; exists {
		return fmt.Errorf("Helper with name %v already exists.", name)
	}

	e.helpers[name] = fn
	return nil
}

// attr returns the attribute name of directive.
func (e *Engine) attr(directive string) string {
	return e.prefix + "-" + directive
}

// parseAttr splits a directive attribute name into name and param.
func (e *Engine) parseAttr(attr string) (name, param string, ok bool) {
	m := e.attrRegex.FindStringSubmatch(attr)
	if m == nil {
		return "", "", false
	}

	return m[1], m[2], true
}

// TrackEvent records an event type bound through a directive, its
// on<type> slot is cleared by ClearSubtree.
func (e *Engine) TrackEvent(eventType string) {
	e.mu.Lock()
	e.events[strings.ToLower(eventType)] = true
	e.mu.Unlock()
}

// Events returns the tracked event types, sorted.
func (e *Engine) Events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	types := make([]string, 0, len(e.events))
	for t := range e.events {
		types = append(types, t)
	}
	sort.Strings(types)

	return types
}

// Identity returns the container marker of vm: its VMID, a non empty id
// field or key, or a sequence number remembered for vm.
//
// Only reference values (pointers, maps, slices) are remembered. A struct
// passed by value has no identity of its own, so each call gives it a new
// number; view models should be passed as pointers.
func (e *Engine) Identity(vm interface{}) string {
	if isNil(vm) {
		return ""
	}

	if idf, ok := vm.(Identifier); ok {
		if id := idf.VMID(); id != "" {
			return id
		}
	}

	for _, name := range []string{"id", "ID", "_id"} {
		v, ok, err := scope.Get(vm, name)
		if err != nil || !ok {
			continue
		}

		switch reflect.ValueOf(v).Kind() {
		case reflect.String, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if id := utils.ToString(v); id != "" && id != "0" {
				return id
			}
		}
	}

	key := idKey{typ: reflect.TypeOf(vm)}
	byRef := false
	switch rv := reflect.ValueOf(vm); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		key.ptr = rv.Pointer()
		byRef = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.ids[key]; ok && byRef {
		return id
	}

	e.seq++
	id := fmt.Sprint(e.seq)
	if byRef {
		e.ids[key] = id
	} else {
		e.logger.Debug("View model passed by value has no identity", "type", key.typ.String(), "id", id)
	}

	return id
}

func isNil(v interface{}) bool {
	if v == nil || scope.IsUndefined(v) {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}

	return false
}

// newScope is the top level scope of a pass over vm.
func (e *Engine) newScope(vm interface{}) scope.Scope {
	s := scope.New(vm)
	s.Helpers = e.helpers
	return s
}

// Eval evaluates expression against s. Failures are logged and give nil,
// the failing name is defined as nil on a map current so the lookup does
// not fail again. Times are formatted as trimmed ISO-8601 strings.
func (e *Engine) Eval(expression string, s scope.Scope, el dom.Element) interface{} {
	v, err := e.evaluator.Eval(expression, s)
	if err != nil {
		e.logger.Warn("Expression evaluation failed",
			"expr", expression, "elem", dom.DebugInfo(el), "error", err)
		e.observer.ReadFailure(expression)
		s.Touch(strings.TrimSpace(expression))
		return nil
	}

	switch t := v.(type) {
	case time.Time:
		return scope.FormatTime(t)
	case *time.Time:
		if t != nil {
			return scope.FormatTime(*t)
		}
	}

	return v
}

// Assign writes value to the target expression, errors are returned.
func (e *Engine) Assign(value interface{}, expression string, s scope.Scope) error {
	return e.evaluator.Assign(value, expression, s)
}
