// Package dom defines the element abstraction the binding engine works
// against. Backends live in the sub packages: htmldom operates on a parsed
// golang.org/x/net/html tree, jsdom on the live browser document.
package dom

import (
	"errors"
	"strings"
	"time"
)

var ErrNoDocument = errors.New("element is not attached to a document")

type (
	// Attr is a single attribute of an element, in document order.
	Attr struct {
		Name  string
		Value string
	}

	// Scheduler defers work to a later turn of the event loop.
	Scheduler interface {
		Schedule(delay time.Duration, fn func())
	}

	Document interface {
		Scheduler
		GetElementByID(id string) Element
		CreateElement(tag string) Element
		ActiveElement() Element
	}

	Element interface {
		// Native returns the backend node, it is used for identity checks.
		Native() interface{}
		Document() Document
		TagName() string

		Attr(name string) (string, bool)
		SetAttr(name, value string)
		RemoveAttr(name string)
		// Attrs returns a snapshot of the attributes, callers may mutate the
		// element while ranging over it.
		Attrs() []Attr

		Parent() Element
		Children() []Element
		NextElementSibling() Element
		InsertBefore(el, ref Element)
		AppendChild(el Element)
		RemoveChild(el Element)
		// Clear removes every child node.
		Clear()
		Clone() Element
		QuerySelectorAll(selector string) []Element

		Text() string
		SetText(text string)
		HTML() string
		SetHTML(markup string) error

		// Type is the lower cased type of an input element.
		Type() string
		Value() string
		SetValue(value string)
		Checked() bool
		SetChecked(checked bool)
		Prop(name string) bool
		SetProp(name string, value bool)

		Style(name string) string
		SetStyle(name, value string)
		HasClass(class string) bool
		AddClass(class string)
		RemoveClass(class string)
		// Width is the content width in pixels, padding excluded.
		Width() float64

		// Handler returns the handler in the on<type> slot, e.g. "onclick".
		Handler(on string) EventHandler
		SetHandler(on string, handler EventHandler)
		Listen(eventType string, handler EventHandler) (unlisten func())
		DispatchEvent(evt Event) bool

		Focus()
		Connected() bool
	}
)

// Same reports whether a and b are the same node.
func Same(a, b Element) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return a.Native() == b.Native()
}

func Hide(el Element) {
	el.SetStyle("display", "none")
}

func Show(el Element) {
	el.SetStyle("display", "")
}

func Hidden(el Element) bool {
	return strings.ToLower(el.Style("display")) == "none"
}

// SetClass adds or removes class according to set.
func SetClass(el Element, class string, set bool) {
	has := el.HasClass(class)
	if !has && set {
		el.AddClass(class)
	}

	if has && !set {
		el.RemoveClass(class)
	}
}

// DebugInfo prints debug information for the element, including
// tag name, id and parent tree
func DebugInfo(el Element) string {
	if el == nil {
		return "<nil>"
	}

	str := el.TagName()
	if id, ok := el.Attr("id"); ok && id != "" {
		str += "#" + id
	}

	parents := []string{}
	for p := el.Parent(); p != nil; p = p.Parent() {
		parents = append(parents, p.TagName())
	}

	str += " ("
	for j := len(parents) - 1; j >= 0; j-- {
		str += parents[j] + ">"
	}
	str += ")"

	return str
}
