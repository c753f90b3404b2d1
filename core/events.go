package core

import (
	"strings"

	"github.com/gowade/vmr/dom"
)

type (
	// Listener is a native event listener owned by a view. A nil Elem is
	// the container of the view, resolved when attached.
	Listener struct {
		Elem    dom.Element
		Type    string
		Handler dom.EventHandler

		defaulted bool
		unlisten  func()
	}

	// Listeners is the ordered set of listeners of a view. Attach and
	// Detach must be paired with the lifetime of the view's DOM region.
	Listeners struct {
		list []*Listener
	}
)

func (l *Listener) Listening() bool {
	return l.unlisten != nil
}

func (ls *Listeners) Add(elem dom.Element, eventType string, handler dom.EventHandler) *Listener {
	l := &Listener{Elem: elem, Type: eventType, Handler: handler}
	ls.list = append(ls.list, l)
	return l
}

func (ls *Listeners) Len() int {
	return len(ls.list)
}

// Attach starts every listener not listening yet, listeners without an
// element listen on container. Calling it again does nothing.
func (ls *Listeners) Attach(container dom.Element) {
	for _, l := range ls.list {
		if l.Listening() {
			continue
		}

		if l.Elem == nil {
			if container == nil {
				continue
			}
			l.Elem = container
			l.defaulted = true
		}

		l.unlisten = l.Elem.Listen(l.Type, l.Handler)
	}
}

// Detach stops every listening listener.
func (ls *Listeners) Detach() {
	for _, l := range ls.list {
		if !l.Listening() {
			continue
		}

		l.unlisten()
		l.unlisten = nil
		if l.defaulted {
			l.Elem = nil
			l.defaulted = false
		}
	}
}

// ClearSubtree resets the on<type> handler slots of every element under
// and including el that has an on directive, for every event type the
// engine has bound. No closure over the ViewModel is left on the nodes.
func (e *Engine) ClearSubtree(el dom.Element) {
	if el == nil {
		return
	}

	prefix := e.attr("on")
	for _, a := range el.Attrs() {
		if strings.HasPrefix(a.Name, prefix) {
			for _, t := range e.Events() {
				el.SetHandler("on"+t, nil)
			}
			break
		}
	}

	for _, c := range el.Children() {
		e.ClearSubtree(c)
	}
}

// Empty clears the handlers of el's subtree, then removes its children.
func (e *Engine) Empty(el dom.Element) {
	if el == nil {
		return
	}

	e.ClearSubtree(el)
	el.Clear()
}

// TriggerEvent dispatches a bubbling, cancelable event of type eventType
// carrying detail. It returns false when a handler prevented the default.
func TriggerEvent(elem dom.Element, eventType string, detail interface{}) bool {
	if elem == nil {
		return false
	}

	return elem.DispatchEvent(dom.NewEvent(eventType, dom.EventInit{
		Bubbles:    true,
		Cancelable: true,
		Detail:     detail,
	}))
}

// TriggerEventByID is TriggerEvent on the element with the given id.
func TriggerEventByID(doc dom.Document, id string, eventType string, detail interface{}) bool {
	if doc == nil {
		return false
	}

	return TriggerEvent(doc.GetElementByID(id), eventType, detail)
}
