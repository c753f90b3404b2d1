package htmldom

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/utils"
)

// Element is a dom.Element backed by an *html.Node.
type Element struct {
	node *html.Node
	doc  *Document
}

func nodeOf(el dom.Element) *html.Node {
	if el == nil {
		return nil
	}

	n, _ := el.Native().(*html.Node)
	return n
}

func (e Element) Native() interface{} {
	return e.node
}

func (e Element) Document() dom.Document {
	return e.doc
}

func (e Element) TagName() string {
	return strings.ToLower(e.node.Data)
}

func (e Element) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(e.node).Selection
}

func (e Element) Attr(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, attr := range e.node.Attr {
		if attr.Namespace == "" && attr.Key == name {
			return attr.Val, true
		}
	}

	return "", false
}

func (e Element) SetAttr(name, value string) {
	name = strings.ToLower(name)
	for i, attr := range e.node.Attr {
		if attr.Namespace == "" && attr.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}

	e.node.Attr = append(e.node.Attr, html.Attribute{
		Key: name,
		Val: value,
	})
}

func (e Element) RemoveAttr(name string) {
	name = strings.ToLower(name)
	for i, attr := range e.node.Attr {
		if attr.Namespace == "" && attr.Key == name {
			e.node.Attr = append(e.node.Attr[:i], e.node.Attr[i+1:]...)
			return
		}
	}
}

func (e Element) Attrs() []dom.Attr {
	attrs := make([]dom.Attr, 0, len(e.node.Attr))
	for _, attr := range e.node.Attr {
		attrs = append(attrs, dom.Attr{Name: attr.Key, Value: attr.Val})
	}

	return attrs
}

func (e Element) Parent() dom.Element {
	return e.doc.wrap(e.node.Parent)
}

func (e Element) Children() []dom.Element {
	list := []dom.Element{}
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			list = append(list, e.doc.wrap(c))
		}
	}

	return list
}

func (e Element) NextElementSibling() dom.Element {
	for s := e.node.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return e.doc.wrap(s)
		}
	}

	return nil
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func (e Element) InsertBefore(el, ref dom.Element) {
	n := nodeOf(el)
	detach(n)

	r := nodeOf(ref)
	if r == nil || r.Parent != e.node {
		e.node.AppendChild(n)
		return
	}

	e.node.InsertBefore(n, r)
}

func (e Element) AppendChild(el dom.Element) {
	e.InsertBefore(el, nil)
}

func (e Element) RemoveChild(el dom.Element) {
	n := nodeOf(el)
	if n != nil && n.Parent == e.node {
		e.node.RemoveChild(n)
	}
}

func (e Element) Clear() {
	for c := e.node.FirstChild; c != nil; c = e.node.FirstChild {
		e.node.RemoveChild(c)
	}
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute{}, n.Attr...),
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}

	return c
}

func (e Element) Clone() dom.Element {
	return e.doc.wrap(cloneNode(e.node))
}

func (e Element) QuerySelectorAll(selector string) []dom.Element {
	return e.doc.wrapAll(e.selection().Find(selector).Nodes)
}

func (e Element) Text() string {
	return e.selection().Text()
}

func (e Element) SetText(text string) {
	e.Clear()
	e.node.AppendChild(&html.Node{
		Type: html.TextNode,
		Data: text,
	})
}

func (e Element) HTML() string {
	contents, _ := e.selection().Html()
	return contents
}

func (e Element) SetHTML(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return err
	}

	e.Clear()
	for _, n := range nodes {
		detach(n)
		e.node.AppendChild(n)
	}

	return nil
}

func (e Element) Type() string {
	switch e.TagName() {
	case "input":
		t, _ := e.Attr("type")
		if t == "" {
			return "text"
		}
		return strings.ToLower(t)
	case "textarea":
		return "textarea"
	case "select":
		if _, multi := e.Attr("multiple"); multi {
			return "select-multiple"
		}
		return "select-one"
	}

	return ""
}

func optionValue(opt dom.Element) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}

	return strings.TrimSpace(opt.Text())
}

func (e Element) Value() string {
	switch e.TagName() {
	case "textarea":
		return e.Text()
	case "select":
		opts := e.QuerySelectorAll("option")
		for _, opt := range opts {
			if opt.Prop("selected") {
				return optionValue(opt)
			}
		}
		if len(opts) > 0 {
			return optionValue(opts[0])
		}
		return ""
	case "option":
		return optionValue(e)
	}

	v, ok := e.Attr("value")
	if !ok && (e.Type() == "checkbox" || e.Type() == "radio") {
		return "on"
	}

	return v
}

func (e Element) SetValue(value string) {
	switch e.TagName() {
	case "textarea":
		e.SetText(value)
	case "select":
		for _, opt := range e.QuerySelectorAll("option") {
			opt.SetProp("selected", optionValue(opt) == value)
		}
	default:
		e.SetAttr("value", value)
	}
}

func (e Element) Checked() bool {
	return e.Prop("checked")
}

func (e Element) SetChecked(checked bool) {
	e.SetProp("checked", checked)
	if !checked || e.Type() != "radio" {
		return
	}

	// a checked radio unchecks the rest of its group
	name, ok := e.Attr("name")
	if !ok || name == "" {
		return
	}

	for _, other := range e.doc.QuerySelectorAll("input") {
		if other.Type() != "radio" || dom.Same(other, e) {
			continue
		}
		if n, _ := other.Attr("name"); n == name {
			other.SetProp("checked", false)
		}
	}
}

func (e Element) Prop(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

func (e Element) SetProp(name string, value bool) {
	if value {
		if !e.Prop(name) {
			e.SetAttr(name, "")
		}
		return
	}

	e.RemoveAttr(name)
}

type styleDecl struct {
	name  string
	value string
}

func (e Element) styles() []styleDecl {
	src, _ := e.Attr("style")
	decls := []styleDecl{}
	for _, part := range strings.Split(src, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}

		name := strings.ToLower(strings.TrimSpace(kv[0]))
		if name == "" {
			continue
		}
		decls = append(decls, styleDecl{name, strings.TrimSpace(kv[1])})
	}

	return decls
}

func (e Element) Style(name string) string {
	name = utils.Hyphenate(name)
	for _, d := range e.styles() {
		if d.name == name {
			return d.value
		}
	}

	return ""
}

func (e Element) SetStyle(name, value string) {
	name = utils.Hyphenate(name)
	decls := e.styles()
	out := make([]styleDecl, 0, len(decls)+1)
	found := false
	for _, d := range decls {
		if d.name == name {
			found = true
			if value == "" {
				continue
			}
			d.value = value
		}
		out = append(out, d)
	}

	if !found && value != "" {
		out = append(out, styleDecl{name, value})
	}

	if len(out) == 0 {
		e.RemoveAttr("style")
		return
	}

	parts := make([]string, len(out))
	for i, d := range out {
		parts[i] = d.name + ": " + d.value
	}
	e.SetAttr("style", strings.Join(parts, "; "))
}

func (e Element) classes() []string {
	cl, _ := e.Attr("class")
	return strings.Fields(cl)
}

func (e Element) HasClass(class string) bool {
	for _, c := range e.classes() {
		if c == class {
			return true
		}
	}

	return false
}

func (e Element) AddClass(class string) {
	if e.HasClass(class) {
		return
	}

	e.SetAttr("class", strings.Join(append(e.classes(), class), " "))
}

func (e Element) RemoveClass(class string) {
	kept := []string{}
	for _, c := range e.classes() {
		if c != class {
			kept = append(kept, c)
		}
	}

	if len(kept) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// Width reports the inline style width in pixels, there is no layout.
func (e Element) Width() float64 {
	w := strings.TrimSuffix(e.Style("width"), "px")
	f, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
	if err != nil {
		return 0
	}

	return f
}

func (e Element) Handler(on string) dom.EventHandler {
	st := e.doc.nodeState(e.node, false)
	if st == nil {
		return nil
	}

	return st.handlers[strings.ToLower(on)]
}

func (e Element) SetHandler(on string, handler dom.EventHandler) {
	on = strings.ToLower(on)
	if handler == nil {
		st := e.doc.nodeState(e.node, false)
		if st == nil {
			return
		}
		delete(st.handlers, on)
		e.doc.gc(e.node, st)
		return
	}

	e.doc.nodeState(e.node, true).handlers[on] = handler
}

func (e Element) Listen(eventType string, handler dom.EventHandler) (unlisten func()) {
	st := e.doc.nodeState(e.node, true)
	l := &listener{handler}
	st.listeners[eventType] = append(st.listeners[eventType], l)

	return func() {
		list := st.listeners[eventType]
		for i, x := range list {
			if x == l {
				st.listeners[eventType] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(st.listeners[eventType]) == 0 {
			delete(st.listeners, eventType)
		}
		e.doc.gc(e.node, st)
	}
}

func (d *Document) gc(node *html.Node, st *nodeState) {
	if len(st.handlers) == 0 && len(st.listeners) == 0 {
		delete(d.state, node)
	}
}

// Listening returns the number of listeners registered for eventType.
func (e Element) Listening(eventType string) int {
	st := e.doc.nodeState(e.node, false)
	if st == nil {
		return 0
	}

	return len(st.listeners[eventType])
}

func (e Element) DispatchEvent(evt dom.Event) bool {
	return e.doc.dispatch(e.node, evt)
}

func (e Element) Focus() {
	if e.Connected() {
		e.doc.active = e.node
	}
}

func (e Element) Connected() bool {
	return e.doc.connected(e.node)
}

func (e Element) OuterHTML() string {
	s, _ := goquery.OuterHtml(e.selection())
	return s
}
