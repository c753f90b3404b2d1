// Package directives contains the built-in directive handlers of the
// binding engine.
//
// A directive is written as vm-name-param="expression" in the markup, the
// handler registered for name receives the evaluated expression:
//
//	<span vm-text="Title"></span>
//	<li vm-class-done="Done" vm-on-click="Toggle"></li>
//	<input type="checkbox" vm-value="Done">
package directives

import (
	"errors"
	"fmt"

	"github.com/gowade/vmr/core"
	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/scope"
	"github.com/gowade/vmr/utils"
)

var (
	builtins = map[string]core.Handler{
		"text":      TextDirective{},
		"html":      HTMLDirective{},
		"id":        IDDirective{},
		"display":   DisplayDirective{},
		"value":     ValueDirective{},
		"class":     ClassDirective{},
		"style":     StyleDirective{},
		"attr":      AttrDirective{},
		"data":      DataDirective{},
		"on":        EventDirective{},
		"onclick":   EventDirective{Type: "click"},
		"focus":     FocusDirective{},
		"readonly":  PropDirective{Prop: "readonly"},
		"disabled":  PropDirective{Prop: "disabled"},
		"required":  PropDirective{Prop: "required"},
		"selected":  PropDirective{Prop: "selected"},
		"debug":     DebugDirective{},
		"container": ContainerDirective{},
		"synctdth":  SyncTdThDirective{},
	}

	extras = map[string]core.Handler{
		"markdown": MarkdownDirective{},
	}

	ErrNoParam = errors.New("directive needs a parameter")
)

func install(reg *core.Registry, handlers map[string]core.Handler) error {
	var errs []error
	for name, h := range handlers {
		if err := reg.Register(name, h); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Install registers the built-in directives.
func Install(reg *core.Registry) error {
	return install(reg, builtins)
}

// InstallExtras registers the optional directives, markdown.
func InstallExtras(reg *core.Registry) error {
	return install(reg, extras)
}

// Builtins returns the names of the built-in directives.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	return names
}

func requireParam(b *core.Binding) error {
	if b.Param == "" {
		return fmt.Errorf("%w: %v", ErrNoParam, b.Attr())
	}

	return nil
}

// TextDirective sets the text content.
//
// Usage:
//
//	vm-text="Expression"
type TextDirective struct{}

func (TextDirective) Apply(b *core.Binding) error {
	b.Elem.SetText(utils.ToString(b.Result))
	return nil
}

// HTMLDirective sets the inner markup, the result is not escaped.
//
// Usage:
//
//	vm-html="Expression"
type HTMLDirective struct{}

func (HTMLDirective) Apply(b *core.Binding) error {
	return b.Elem.SetHTML(utils.ToString(b.Result))
}

type IDDirective struct{}

func (IDDirective) Apply(b *core.Binding) error {
	b.Elem.SetAttr("id", utils.ToString(b.Result))
	return nil
}

// DisplayDirective shows the element when the result is truthy and hides
// it otherwise.
type DisplayDirective struct{}

func (DisplayDirective) Apply(b *core.Binding) error {
	if scope.Truthy(b.Result) {
		dom.Show(b.Elem)
	} else {
		dom.Hide(b.Elem)
	}

	return nil
}

// ValueDirective sets the value of an input. A checkbox is checked when
// the result is truthy, a radio when the result equals its value.
// The engine's Sync reads the inputs back.
//
// Usage:
//
//	vm-value="Expression"
type ValueDirective struct{}

func (ValueDirective) Apply(b *core.Binding) error {
	switch b.Elem.Type() {
	case "checkbox":
		b.Elem.SetChecked(scope.Truthy(b.Result))
	case "radio":
		b.Elem.SetChecked(utils.ToString(b.Result) == b.Elem.Value())
	default:
		b.Elem.SetValue(utils.ToString(b.Result))
	}

	return nil
}

// ClassDirective toggles the class named by the parameter.
//
// Usage:
//
//	vm-class-className="BooleanExpression"
type ClassDirective struct{}

func (ClassDirective) Apply(b *core.Binding) error {
	if err := requireParam(b); err != nil {
		return err
	}

	dom.SetClass(b.Elem, b.Param, scope.Truthy(b.Result))
	return nil
}

// StyleDirective sets one inline style property, hyphenated names are
// accepted: vm-style-background-color.
type StyleDirective struct{}

func (StyleDirective) Apply(b *core.Binding) error {
	if err := requireParam(b); err != nil {
		return err
	}

	b.Elem.SetStyle(utils.Camelize(b.Param), utils.ToString(b.Result))
	return nil
}

// AttrDirective sets the attribute named by the parameter, nil and false
// remove it.
type AttrDirective struct{}

func (AttrDirective) Apply(b *core.Binding) error {
	if err := requireParam(b); err != nil {
		return err
	}

	if v, isBool := b.Result.(bool); b.Result == nil || (isBool && !v) {
		b.Elem.RemoveAttr(b.Param)
		return nil
	}

	b.Elem.SetAttr(b.Param, utils.ToString(b.Result))
	return nil
}

// DataDirective sets the data-param attribute.
type DataDirective struct{}

func (DataDirective) Apply(b *core.Binding) error {
	if err := requireParam(b); err != nil {
		return err
	}

	b.Elem.SetAttr("data-"+b.Param, utils.ToString(b.Result))
	return nil
}

// PropDirective sets a boolean property and the class of the same name.
type PropDirective struct {
	Prop string
}

func (d PropDirective) Apply(b *core.Binding) error {
	on := scope.Truthy(b.Result)
	dom.SetClass(b.Elem, d.Prop, on)
	b.Elem.SetProp(d.Prop, on)
	return nil
}

// DebugDirective logs the result and keeps it in the debug attribute.
type DebugDirective struct{}

func (DebugDirective) Apply(b *core.Binding) error {
	b.Logger().Info("debug", "result", b.Result, "elem", dom.DebugInfo(b.Elem))
	b.Elem.SetAttr("debug", utils.ToString(b.Result))
	return nil
}

// ContainerDirective marks the root of a ViewModel's region, the engine
// reads it, applying it does nothing.
type ContainerDirective struct{}

func (ContainerDirective) Apply(b *core.Binding) error {
	return nil
}
