package core

import (
	"context"

	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/scope"
)

// Sync reads the vm-value inputs under container back into vm. Templates
// of vm-each are skipped, and so are the regions of other containers.
// The first assignment failure stops the sync and is returned.
func (e *Engine) Sync(container dom.Element, vm interface{}) error {
	return e.SyncContext(context.Background(), container, vm)
}

func (e *Engine) SyncContext(ctx context.Context, container dom.Element, vm interface{}) (err error) {
	if container == nil {
		return ErrNilContainer
	}

	if isNil(vm) {
		return nil
	}

	_, done := e.observer.StartPass(ctx, "sync")
	defer func() { done(err) }()

	return e.newPass(vm).syncChildren(container, e.newScope(vm))
}

func (p *pass) syncChildren(el dom.Element, s scope.Scope) error {
	for i := 0; ; i++ {
		children := el.Children()
		if i >= len(children) {
			return nil
		}

		if err := p.syncElement(children[i], s); err != nil {
			return err
		}
	}
}

func (p *pass) syncElement(el dom.Element, s scope.Scope) error {
	walkChildren := p.owns(el)

	if _, ok := el.Attr(p.e.attr(DirEach)); ok {
		return nil
	}

	if _, ok := el.Attr(p.e.attr(DirWith)); ok {
		narrowed, ok := p.narrow(el, s)
		if !ok {
			return nil
		}
		s = narrowed
	}

	valueAttr := p.e.attr(DirValue)
	if expression, ok := el.Attr(valueAttr); ok {
		if value, assign := InputValue(el); assign {
			if err := p.e.Assign(value, expression, s); err != nil {
				return &ElementError{Elem: el, Directive: valueAttr, Err: err}
			}
		}
	}

	if walkChildren {
		return p.syncChildren(el, s)
	}

	return nil
}

// InputValue reads the bound value of an input: a checkbox gives true or
// nil, a checked radio its value attribute (or true without one), an
// unchecked radio nothing to assign. Other elements give their value.
//
// A radio is not read as its checked boolean. Its value attribute is the
// one vm-value compares the property against when rendering, so the
// radios of a group bound to one property write back the chosen value
// and the unchecked ones leave it alone.
func InputValue(el dom.Element) (value interface{}, assign bool) {
	switch el.Type() {
	case "checkbox":
		if el.Checked() {
			return true, true
		}
		return nil, true

	case "radio":
		if !el.Checked() {
			return nil, false
		}
		if v, ok := el.Attr("value"); ok {
			return v, true
		}
		return true, true
	}

	return el.Value(), true
}
