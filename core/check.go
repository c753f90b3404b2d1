package core

import (
	"github.com/gowade/vmr/dom"
)

// Check reports the directive attributes under root, root included, that
// have no handler. Nothing is evaluated.
func (e *Engine) Check(root dom.Element) []*ElementError {
	if root == nil {
		return nil
	}

	var errs []*ElementError
	for _, el := range append([]dom.Element{root}, root.QuerySelectorAll("*")...) {
		for _, a := range el.Attrs() {
			name, _, ok := e.parseAttr(a.Name)
			if !ok || name == DirWith || name == DirEach || name == DirRoot {
				continue
			}

			if _, found := e.registry.Lookup(name); !found {
				errs = append(errs, &ElementError{Elem: el, Directive: a.Name, Err: ErrUnknownDirective})
			}
		}
	}

	return errs
}
