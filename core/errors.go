package core

import (
	"errors"
	"fmt"

	"github.com/gowade/vmr/dom"
)

var (
	ErrUnknownDirective   = errors.New("unknown directive")
	ErrDuplicateDirective = errors.New("directive already registered")
	ErrEachUndefined      = errors.New("each expression is undefined")
	ErrMissingIndex       = errors.New("element has no index")
	ErrNotFunction        = errors.New("result is not a function")
	ErrNilContainer       = errors.New("nil container")
)

// ElementError is an error that happened while processing a directive of
// an element, it is reported with the element's position in the tree.
type ElementError struct {
	Elem      dom.Element
	Directive string
	Err       error
}

func (e *ElementError) Error() string {
	if e.Directive == "" {
		return fmt.Sprintf("Error on element {%v}: %v", dom.DebugInfo(e.Elem), e.Err)
	}

	return fmt.Sprintf("Error on element {%v}, %v: %v", dom.DebugInfo(e.Elem), e.Directive, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}
