// Package vmr binds Go view models to DOM trees.
//
// Markup carries the bindings as attributes:
//
//	<ul>
//		<li vm-each="Todos" vm-text="Title" vm-class-done="Done"></li>
//	</ul>
//	<input vm-value="Draft" vm-on-keyup="Typed" />
//
// and the application renders and syncs whenever it chooses:
//
//	vmr.Render(container, vm)
//	...
//	vmr.Sync(container, vm)
//
// The package level functions use a shared engine with the built-in
// directives. New builds engines from a configuration.
package vmr

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gowade/vmr/config"
	"github.com/gowade/vmr/core"
	"github.com/gowade/vmr/directives"
	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/ecmascript"
	"github.com/gowade/vmr/expr"
	"github.com/gowade/vmr/observe"
)

type (
	Engine = core.Engine
	Handler = core.Handler
	Binding = core.Binding

	// Options are the dependencies of an engine that do not come from the
	// configuration file.
	Options struct {
		Logger *slog.Logger
		// Registerer receives the metrics when the configuration enables
		// them, it defaults to prometheus.DefaultRegisterer.
		Registerer prometheus.Registerer
		// Engine options applied after the configured ones.
		Extra []core.Option
	}
)

var (
	defaultEngine *core.Engine
	defaultOnce   sync.Once
)

// New builds an engine from cfg, with the built-in directives and the
// extras when cfg enables them.
func New(cfg config.Config, opts Options) (*core.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var ev core.Evaluator = expr.New()
	if cfg.Evaluator == config.EvaluatorECMAScript {
		ev = ecmascript.New()
	}

	engineOpts := []core.Option{
		core.WithPrefix(cfg.Prefix),
		core.WithPlaceholder(cfg.Placeholder),
		core.WithFocusDelay(time.Duration(cfg.FocusDelay)),
		core.WithEvaluator(ev),
	}

	if opts.Logger != nil {
		engineOpts = append(engineOpts, core.WithLogger(opts.Logger))
	}

	if cfg.Metrics {
		engineOpts = append(engineOpts, core.WithObserver(observe.New(observe.WithRegistry(opts.Registerer))))
	}

	e := core.NewEngine(append(engineOpts, opts.Extra...)...)
	if err := directives.Install(e.Registry()); err != nil {
		return nil, err
	}

	if cfg.Extras {
		if err := directives.InstallExtras(e.Registry()); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// NewFromFile loads the configuration at path and builds an engine.
func NewFromFile(path string, opts Options) (*core.Engine, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	return New(cfg, opts)
}

// Default is the shared engine used by the package level functions.
func Default() *core.Engine {
	defaultOnce.Do(func() {
		e, err := New(config.Default(), Options{})
		if err != nil {
			panic(err)
		}

		defaultEngine = e
	})

	return defaultEngine
}

func Render(container dom.Element, vm interface{}) error {
	return Default().Render(container, vm)
}

func Sync(container dom.Element, vm interface{}) error {
	return Default().Sync(container, vm)
}

// Register adds a directive to the shared engine, name is used without
// the prefix.
func Register(name string, h core.Handler) error {
	return Default().Registry().Register(name, h)
}

// RegisterHelper adds a function callable from expressions of the
// shared engine.
func RegisterHelper(name string, fn interface{}) error {
	return Default().RegisterHelper(name, fn)
}

func TriggerEvent(elem dom.Element, eventType string, detail interface{}) bool {
	return core.TriggerEvent(elem, eventType, detail)
}

func TriggerEventByID(doc dom.Document, id, eventType string, detail interface{}) bool {
	return core.TriggerEventByID(doc, id, eventType, detail)
}

func ClosestIndex(el dom.Element) int {
	return core.ClosestIndex(el)
}

func DeleteEachElem(el dom.Element) {
	Default().DeleteEachElem(el)
}

func Empty(el dom.Element) {
	Default().Empty(el)
}
