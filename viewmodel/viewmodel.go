// Package viewmodel provides Base, the lifecycle of a view bound to a
// container element. Concrete views embed it:
//
//	type TodoView struct {
//		viewmodel.Base
//		Todos []*Todo
//	}
//
//	v := &TodoView{}
//	v.Init(engine, v, viewmodel.Config{Container: el})
//	v.Open(nil)
package viewmodel

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/gowade/vmr/core"
	"github.com/gowade/vmr/dom"
)

const (
	deferDelay = 10 * time.Millisecond
	focusDelay = 10 * time.Millisecond

	// ClassAttr records the Go type of the view on its container.
	ClassAttr = "classname"
)

var (
	ErrAlreadyOpen = errors.New("view is already open")
	ErrNotOpen     = errors.New("view is not open")
	ErrNoContainer = errors.New("view has no container")
)

type (
	Config struct {
		// ID defaults to a sequence number of the engine.
		ID        string
		Title     string
		Container dom.Element
		// Template children are cloned into the container on Open, or
		// moved there when Singleton is set.
		Template  dom.Element
		Singleton bool
		OnClose   func(b *Base)
	}

	Base struct {
		ID      string
		Title   string
		Changed bool

		Listeners core.Listeners

		engine    *core.Engine
		self      interface{}
		container dom.Element
		template  dom.Element
		singleton bool
		onClose   func(b *Base)
		logger    *slog.Logger

		isOpen   bool
		deferred bool
	}
)

// Init prepares the view, self is the value embedding b, it is the
// ViewModel expressions are evaluated against.
func (b *Base) Init(e *core.Engine, self interface{}, cfg Config) *Base {
	b.engine = e
	b.self = self
	b.Title = cfg.Title
	b.container = cfg.Container
	b.template = cfg.Template
	b.singleton = cfg.Singleton
	b.onClose = cfg.OnClose

	b.ID = cfg.ID
	if b.ID == "" {
		b.ID = e.Identity(self)
	}

	b.logger = e.Logger().With("view", b.typeName(), "id", b.ID)
	b.Listeners.Add(nil, "change", b.OnChange)

	return b
}

// VMID is the container marker of the view.
func (b *Base) VMID() string {
	return b.ID
}

func (b *Base) typeName() string {
	t := reflect.TypeOf(b.self)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == nil {
		return "Base"
	}

	return t.Name()
}

func (b *Base) Container() dom.Element {
	return b.container
}

func (b *Base) IsOpen() bool {
	return b.isOpen
}

// Listen adds a listener, attached right away when the view is open.
// A nil elem listens on the container.
func (b *Base) Listen(elem dom.Element, eventType string, handler dom.EventHandler) {
	b.Listeners.Add(elem, eventType, handler)
	if b.isOpen {
		b.Listeners.Attach(b.container)
	}
}

// Open fills the container from the template, attaches the listeners,
// renders and focuses the first visible input. A non nil container
// replaces the configured one.
func (b *Base) Open(container dom.Element) error {
	if b.isOpen {
		return fmt.Errorf("%v: %w", b.typeName(), ErrAlreadyOpen)
	}

	if container != nil {
		b.container = container
	}

	if b.container == nil {
		return fmt.Errorf("%v: %w", b.typeName(), ErrNoContainer)
	}

	b.container.SetAttr(ClassAttr, b.typeName())
	if id, _ := b.container.Attr("id"); id == "" {
		b.container.SetAttr("id", b.ID)
	}

	if b.template != nil {
		b.engine.Empty(b.container)
		for _, c := range b.template.Children() {
			if b.singleton {
				b.template.RemoveChild(c)
				b.container.AppendChild(c)
			} else {
				b.container.AppendChild(c.Clone())
			}
		}
	}

	b.Listeners.Attach(b.container)
	err := b.Render()
	b.isOpen = true

	if !dom.Hidden(b.container) {
		b.focusFirst()
	}

	return err
}

func (b *Base) focusFirst() {
	candidates := b.container.QuerySelectorAll("input,button,select")
	if len(candidates) == 0 {
		candidates = b.container.QuerySelectorAll("a")
	}

	for _, el := range candidates {
		if dom.Hidden(el) {
			continue
		}

		if doc := el.Document(); doc != nil {
			target := el
			doc.Schedule(focusDelay, func() {
				if target.Connected() {
					target.Focus()
				}
			})
		}
		return
	}
}

// Close detaches the listeners, clears the handlers left in the
// container, calls the close callback and gives the template back.
func (b *Base) Close() error {
	if !b.isOpen {
		return fmt.Errorf("%v: %w", b.typeName(), ErrNotOpen)
	}

	b.Listeners.Detach()
	for _, c := range b.container.Children() {
		b.engine.ClearSubtree(c)
	}

	if b.onClose != nil {
		b.onClose(b)
	}

	if b.template != nil {
		if b.singleton {
			for _, c := range b.container.Children() {
				b.container.RemoveChild(c)
				b.template.AppendChild(c)
			}
		} else {
			b.engine.Empty(b.container)
		}
	}

	b.isOpen = false
	return nil
}

func (b *Base) Render() error {
	b.deferred = false
	if b.container == nil {
		return ErrNoContainer
	}

	err := b.engine.Render(b.container, b.self)
	if err != nil {
		b.logger.Warn("Render failed", "error", err)
	}

	return err
}

// DeferRender renders on a later turn, further calls before it happens
// are coalesced.
func (b *Base) DeferRender() {
	if b.deferred || b.container == nil {
		return
	}

	doc := b.container.Document()
	if doc == nil {
		b.Render()
		return
	}

	b.deferred = true
	doc.Schedule(deferDelay, func() {
		if b.deferred {
			b.Render()
		}
	})
}

func (b *Base) Sync() error {
	if b.container == nil {
		return ErrNoContainer
	}

	return b.engine.Sync(b.container, b.self)
}

func (b *Base) Show() {
	if b.container != nil {
		dom.Show(b.container)
	}
}

func (b *Base) Hide() {
	if b.container != nil {
		dom.Hide(b.container)
	}
}

// Trigger dispatches a custom event from the container.
func (b *Base) Trigger(eventType string, detail interface{}) bool {
	return core.TriggerEvent(b.container, eventType, detail)
}

// OnChange marks the view as changed, it listens to the change events of
// the container.
func (b *Base) OnChange(evt dom.Event) {
	b.Changed = true
}

// OnClickClose closes the view, for close buttons: vm-on-click="OnClickClose".
func (b *Base) OnClickClose(evt dom.Event) {
	if err := b.Close(); err != nil {
		b.logger.Warn("Close failed", "error", err)
	}

	if evt != nil {
		evt.PreventDefault()
		evt.StopPropagation()
	}
}
