package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/scope"
)

// pass is the state of one Render or Sync call.
type pass struct {
	e     *Engine
	vm    interface{}
	id    string
	after []func()
	errs  []error
}

func (e *Engine) newPass(vm interface{}) *pass {
	return &pass{e: e, vm: vm, id: e.Identity(vm)}
}

// fail records an element level error, the walk goes on.
func (p *pass) fail(el dom.Element, directive string, err error) {
	p.e.logger.Error("Directive failed", "directive", directive, "elem", dom.DebugInfo(el), "error", err)
	p.errs = append(p.errs, &ElementError{Elem: el, Directive: directive, Err: err})
}

// owns reports whether the children of el belong to the pass's ViewModel,
// a vm-container marker of another ViewModel stops the walk.
func (p *pass) owns(el dom.Element) bool {
	marker, ok := el.Attr(p.e.attr(DirContainer))
	return !ok || marker == "" || marker == p.id
}

// Render applies the directives of the container's descendants with vm as
// the root of every expression. The container itself is marked with the
// identity of vm on first render, its own directives are not applied.
//
// Expression failures are logged and do not stop the render. Unknown
// directives and each misuse stop the processing of their element, they
// are logged and returned joined.
func (e *Engine) Render(container dom.Element, vm interface{}) error {
	return e.RenderContext(context.Background(), container, vm)
}

func (e *Engine) RenderContext(ctx context.Context, container dom.Element, vm interface{}) (err error) {
	if container == nil {
		return ErrNilContainer
	}

	_, done := e.observer.StartPass(ctx, "render")
	defer func() { done(err) }()

	if isNil(vm) {
		dom.Hide(container)
		return nil
	}

	p := e.newPass(vm)
	if marker, ok := container.Attr(e.attr(DirContainer)); !ok || marker == "" {
		container.SetAttr(e.attr(DirContainer), p.id)
	}

	p.renderChildren(container, e.newScope(vm))

	for len(p.after) > 0 {
		fn := p.after[len(p.after)-1]
		p.after = p.after[:len(p.after)-1]
		fn()
	}

	return errors.Join(p.errs...)
}

// renderChildren walks the children of el. The list is fetched again at
// every step, handlers add and remove siblings.
func (p *pass) renderChildren(el dom.Element, s scope.Scope) {
	for i := 0; ; i++ {
		children := el.Children()
		if i >= len(children) {
			return
		}

		p.renderElement(children[i], s)
	}
}

// narrow resolves the vm-with directive of el and the index attribute of
// each clones. It returns false when there is nothing to bind.
func (p *pass) narrow(el dom.Element, s scope.Scope) (scope.Scope, bool) {
	expression, ok := el.Attr(p.e.attr(DirWith))
	if !ok || expression == "" {
		return s, true
	}

	current := p.e.Eval(expression, s, el)
	if !scope.Truthy(current) {
		return s, false
	}

	idx, ok := el.Attr(IndexAttr)
	if !ok || idx == "" {
		return s.With(current), true
	}

	i, err := strconv.Atoi(idx)
	if err != nil {
		p.fail(el, p.e.attr(DirWith), fmt.Errorf("%w: invalid index %q", ErrMissingIndex, idx))
		return s, false
	}

	item, err := scope.Item(current, i)
	if err != nil {
		p.e.logger.Warn("Cannot select item", "expr", expression, "index", i, "elem", dom.DebugInfo(el), "error", err)
		return s, false
	}

	if item == nil || scope.IsUndefined(item) {
		return s, false
	}

	return s.With(item).WithIndex(i), true
}

func (p *pass) renderElement(el dom.Element, s scope.Scope) {
	walkChildren := p.owns(el)

	if !scope.Truthy(s.Current) {
		dom.Hide(el)
		return
	}

	childrenFirst := el.TagName() == "select"
	if childrenFirst && walkChildren {
		p.renderChildren(el, s)
	}

	if _, ok := el.Attr(p.e.attr(DirEach)); ok {
		if _, err := p.reconcile(el, s); err != nil {
			p.fail(el, p.e.attr(DirEach), err)
		}
		return
	}

	if _, ok := el.Attr(p.e.attr(DirWith)); ok {
		narrowed, ok := p.narrow(el, s)
		if !ok {
			dom.Hide(el)
			return
		}
		if dom.Hidden(el) {
			dom.Show(el)
		}
		s = narrowed
	}

	if !p.applyDirectives(el, s) {
		return
	}

	if !childrenFirst && walkChildren {
		p.renderChildren(el, s)
	}
}

// applyDirectives dispatches every directive attribute of el. It returns
// false when a directive has no handler.
func (p *pass) applyDirectives(el dom.Element, s scope.Scope) bool {
	for _, a := range el.Attrs() {
		name, param, ok := p.e.parseAttr(a.Name)
		if !ok || name == DirWith || name == DirEach || name == DirRoot {
			continue
		}

		// an earlier handler may have removed it
		expression, present := el.Attr(a.Name)
		if !present {
			continue
		}

		h, found := p.e.registry.Lookup(name)
		if !found {
			p.fail(el, a.Name, ErrUnknownDirective)
			return false
		}

		var result interface{}
		if name == DirContainer {
			result = expression
		} else {
			result = p.e.Eval(expression, s, el)
			if scope.IsUndefined(result) {
				result = p.e.placeholder
			}
		}

		b := &Binding{
			Name:      name,
			Param:     param,
			Expr:      expression,
			Result:    result,
			Elem:      el,
			ViewModel: p.vm,
			Scope:     s,
			engine:    p.e,
			pass:      p,
		}

		if err := h.Apply(b); err != nil {
			p.fail(el, a.Name, err)
		}
		p.e.observer.Directive(name)
	}

	return true
}
