package directives

import (
	"fmt"

	"github.com/gowade/vmr/core"
	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/scope"
)

// EventDirective sets the on<event> handler of the element to the
// function the expression resolves to. The function is called with the
// event. A blur handler is also called when Enter is released.
//
// Usage:
//
//	vm-on-event="Function"
//	vm-onclick="Function"
type EventDirective struct {
	// Type overrides the parameter, for aliases such as onclick.
	Type string
}

func (d EventDirective) Apply(b *core.Binding) error {
	typ := d.Type
	if typ == "" {
		typ = b.Param
	}

	if typ == "" {
		return fmt.Errorf("%w: %v", ErrNoParam, b.Attr())
	}

	fn, ok := b.Result.(core.Func)
	if !ok {
		return fmt.Errorf("%w: %v=%q gives %T", core.ErrNotFunction, b.Attr(), b.Expr, b.Result)
	}

	el := b.Elem
	logger := b.Logger()
	if typ == "blur" {
		el.SetHandler("onkeyup", func(evt dom.Event) {
			onEnterCallBlur(el, evt)
		})
	}

	b.Engine().TrackEvent(typ)
	el.SetHandler("on"+typ, func(evt dom.Event) {
		if _, err := fn.Call(evt); err != nil {
			logger.Error("Event handler failed", "event", typ, "elem", dom.DebugInfo(el), "error", err)
		}
	})

	return nil
}

func onEnterCallBlur(el dom.Element, evt dom.Event) {
	if evt.KeyCode() != dom.KeyEnter {
		return
	}

	if h := el.Handler("onblur"); h != nil {
		h(evt)
	}
}

// FocusDirective focuses the element when the result is truthy. Hidden
// elements are shown, the focus happens on a later turn once the render
// is complete, elements removed in between are not focused.
type FocusDirective struct{}

func (FocusDirective) Apply(b *core.Binding) error {
	if !scope.Truthy(b.Result) {
		return nil
	}

	el := b.Elem
	if dom.Hidden(el) {
		dom.Show(el)
	}

	return b.Schedule(b.Engine().FocusDelay(), func() {
		if el.Connected() {
			el.Focus()
		}
	})
}
