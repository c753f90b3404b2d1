//go:build js

// Package jsdom implements the dom interfaces on the live browser document,
// through gopherjs.
package jsdom

import (
	"strings"
	"time"

	"github.com/gopherjs/gopherjs/js"

	"github.com/gowade/vmr/dom"
)

type (
	Event struct {
		*js.Object
	}

	Document struct {
		*js.Object
	}

	Element struct {
		*js.Object
	}
)

// Current returns the global document. It panics outside of a browser.
func Current() Document {
	if js.Global == nil || js.Global.Get("document") == js.Undefined {
		panic("jsdom package can only be used in browser environment")
	}

	return Document{js.Global.Get("document")}
}

func wrap(o *js.Object) dom.Element {
	if o == nil || o == js.Undefined || o.Get("nodeType").Int() != 1 {
		return nil
	}

	return Element{o}
}

func wrapList(list *js.Object) []dom.Element {
	n := list.Length()
	els := make([]dom.Element, 0, n)
	for i := 0; i < n; i++ {
		if el := wrap(list.Index(i)); el != nil {
			els = append(els, el)
		}
	}

	return els
}

func native(el dom.Element) *js.Object {
	if el == nil {
		return nil
	}

	o, _ := el.Native().(*js.Object)
	return o
}

func (e Event) Type() string {
	return e.Get("type").String()
}

func (e Event) Target() dom.Element {
	return wrap(e.Get("target"))
}

func (e Event) Detail() interface{} {
	d := e.Get("detail")
	if d == nil || d == js.Undefined {
		return nil
	}

	return d.Interface()
}

func (e Event) KeyCode() int {
	if k := e.Get("keyCode"); k != js.Undefined {
		return k.Int()
	}

	return e.Get("which").Int()
}

func (e Event) Bubbles() bool            { return e.Get("bubbles").Bool() }
func (e Event) PreventDefault()          { e.Call("preventDefault") }
func (e Event) DefaultPrevented() bool   { return e.Get("defaultPrevented").Bool() }
func (e Event) StopPropagation()         { e.Call("stopPropagation") }
func (e Event) PropagationStopped() bool { return e.Get("cancelBubble").Bool() }

func jsHandler(handler dom.EventHandler) func(*js.Object) {
	return func(evt *js.Object) {
		handler(Event{evt})
	}
}

func (d Document) Schedule(delay time.Duration, fn func()) {
	js.Global.Call("setTimeout", fn, delay.Milliseconds())
}

func (d Document) GetElementByID(id string) dom.Element {
	return wrap(d.Call("getElementById", id))
}

func (d Document) CreateElement(tag string) dom.Element {
	return wrap(d.Call("createElement", tag))
}

func (d Document) ActiveElement() dom.Element {
	return wrap(d.Get("activeElement"))
}

func (d Document) Title() string {
	return d.Get("title").String()
}

func (d Document) SetTitle(title string) {
	d.Set("title", title)
}

// NewEvent creates a native CustomEvent.
func (d Document) NewEvent(typ string, init dom.EventInit) Event {
	opts := js.Global.Get("Object").New()
	opts.Set("bubbles", init.Bubbles)
	opts.Set("cancelable", init.Cancelable)
	opts.Set("detail", init.Detail)

	return Event{js.Global.Get("CustomEvent").New(typ, opts)}
}

func (e Element) Native() interface{} {
	return e.Object
}

func (e Element) Document() dom.Document {
	return Document{e.Get("ownerDocument")}
}

func (e Element) TagName() string {
	return strings.ToLower(e.Get("tagName").String())
}

func (e Element) Attr(name string) (string, bool) {
	if !e.Call("hasAttribute", name).Bool() {
		return "", false
	}

	return e.Call("getAttribute", name).String(), true
}

func (e Element) SetAttr(name, value string) {
	e.Call("setAttribute", name, value)
}

func (e Element) RemoveAttr(name string) {
	e.Call("removeAttribute", name)
}

func (e Element) Attrs() []dom.Attr {
	list := e.Get("attributes")
	n := list.Length()
	attrs := make([]dom.Attr, 0, n)
	for i := 0; i < n; i++ {
		a := list.Index(i)
		attrs = append(attrs, dom.Attr{Name: a.Get("name").String(), Value: a.Get("value").String()})
	}

	return attrs
}

func (e Element) Parent() dom.Element {
	return wrap(e.Get("parentNode"))
}

func (e Element) Children() []dom.Element {
	return wrapList(e.Get("children"))
}

func (e Element) NextElementSibling() dom.Element {
	return wrap(e.Get("nextElementSibling"))
}

func (e Element) InsertBefore(el, ref dom.Element) {
	e.Call("insertBefore", native(el), native(ref))
}

func (e Element) AppendChild(el dom.Element) {
	e.Call("appendChild", native(el))
}

func (e Element) RemoveChild(el dom.Element) {
	n := native(el)
	if n != nil && n.Get("parentNode") == e.Object {
		e.Call("removeChild", n)
	}
}

func (e Element) Clear() {
	for c := e.Get("lastChild"); c != nil; c = e.Get("lastChild") {
		e.Call("removeChild", c)
	}
}

func (e Element) Clone() dom.Element {
	return wrap(e.Call("cloneNode", true))
}

func (e Element) QuerySelectorAll(selector string) []dom.Element {
	return wrapList(e.Call("querySelectorAll", selector))
}

func (e Element) Text() string {
	return e.Get("textContent").String()
}

func (e Element) SetText(text string) {
	e.Set("textContent", text)
}

func (e Element) HTML() string {
	return e.Get("innerHTML").String()
}

func (e Element) SetHTML(markup string) error {
	e.Set("innerHTML", markup)
	return nil
}

func (e Element) Type() string {
	t := e.Get("type")
	if t == js.Undefined || t == nil {
		return ""
	}

	return strings.ToLower(t.String())
}

func (e Element) Value() string {
	return e.Get("value").String()
}

func (e Element) SetValue(value string) {
	e.Set("value", value)
}

func (e Element) Checked() bool {
	return e.Get("checked").Bool()
}

func (e Element) SetChecked(checked bool) {
	e.Set("checked", checked)
}

func propName(name string) string {
	if strings.ToLower(name) == "readonly" {
		return "readOnly"
	}

	return name
}

func (e Element) Prop(name string) bool {
	return e.Get(propName(name)).Bool()
}

func (e Element) SetProp(name string, value bool) {
	e.Set(propName(name), value)
}

func (e Element) Style(name string) string {
	return e.Get("style").Get(name).String()
}

func (e Element) SetStyle(name, value string) {
	e.Get("style").Set(name, value)
}

func (e Element) HasClass(class string) bool {
	return e.Get("classList").Call("contains", class).Bool()
}

func (e Element) AddClass(class string) {
	e.Get("classList").Call("add", class)
}

func (e Element) RemoveClass(class string) {
	e.Get("classList").Call("remove", class)
}

func (e Element) Width() float64 {
	cs := js.Global.Call("getComputedStyle", e.Object)
	px := func(prop string) float64 {
		return js.Global.Call("parseFloat", cs.Get(prop)).Float()
	}

	return e.Get("clientWidth").Float() - px("paddingLeft") - px("paddingRight")
}

// Handler wraps the function held by the slot, whether it was set from Go
// or by the page, so no Go side state outlives the node.
func (e Element) Handler(on string) dom.EventHandler {
	fn := e.Get(on)
	if fn == nil || fn == js.Undefined {
		return nil
	}

	return func(evt dom.Event) {
		var arg interface{}
		if je, ok := evt.(Event); ok {
			arg = je.Object
		}
		fn.Call("call", e.Object, arg)
	}
}

func (e Element) SetHandler(on string, handler dom.EventHandler) {
	if handler == nil {
		e.Set(on, nil)
		return
	}

	e.Set(on, jsHandler(handler))
}

func (e Element) Listen(eventType string, handler dom.EventHandler) (unlisten func()) {
	fn := js.MakeFunc(func(this *js.Object, args []*js.Object) interface{} {
		handler(Event{args[0]})
		return nil
	})

	e.Call("addEventListener", eventType, fn)
	return func() {
		e.Call("removeEventListener", eventType, fn)
	}
}

func (e Element) DispatchEvent(evt dom.Event) bool {
	if be, ok := evt.(*dom.BasicEvent); ok {
		init := dom.EventInit{
			Bubbles:    be.Bubbles(),
			Cancelable: be.Cancelable(),
			Detail:     be.Detail(),
		}
		evt = Document{e.Get("ownerDocument")}.NewEvent(be.Type(), init)
	}

	return e.Call("dispatchEvent", evt.(Event).Object).Bool()
}

func (e Element) Focus() {
	e.Call("focus")
}

func (e Element) Connected() bool {
	return e.Get("isConnected").Bool()
}
