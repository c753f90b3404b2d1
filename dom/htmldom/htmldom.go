// Package htmldom implements the dom interfaces on top of a
// golang.org/x/net/html tree, using goquery for selector matching.
//
// There is no layout engine and no live form state separate from the
// markup: properties such as value, checked or disabled are reflected into
// attributes, so rendering the tree back to HTML shows the bound state.
// Event handlers, listeners and focus are kept in a side table owned by the
// Document.
package htmldom

import (
	"bytes"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gowade/vmr/dom"
)

type (
	listener struct {
		handler dom.EventHandler
	}

	nodeState struct {
		handlers  map[string]dom.EventHandler
		listeners map[string][]*listener
	}

	task struct {
		at  time.Duration
		seq int
		fn  func()
	}

	Document struct {
		root   *html.Node
		state  map[*html.Node]*nodeState
		active *html.Node

		tasks   []task
		taskSeq int
	}
)

// Parse parses a complete HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	return newDocument(root), nil
}

func ParseString(source string) (*Document, error) {
	return Parse(strings.NewReader(source))
}

// MustParse is like ParseString but panics on error, for tests and
// static markup.
func MustParse(source string) *Document {
	d, err := ParseString(source)
	if err != nil {
		panic(err)
	}

	return d
}

func newDocument(root *html.Node) *Document {
	return &Document{
		root:  root,
		state: map[*html.Node]*nodeState{},
	}
}

func (d *Document) wrap(node *html.Node) dom.Element {
	if node == nil || node.Type != html.ElementNode {
		return nil
	}

	return Element{node: node, doc: d}
}

func (d *Document) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(d.root).Selection
}

func (d *Document) nodeState(node *html.Node, create bool) *nodeState {
	st, ok := d.state[node]
	if !ok && create {
		st = &nodeState{
			handlers:  map[string]dom.EventHandler{},
			listeners: map[string][]*listener{},
		}
		d.state[node] = st
	}

	return st
}

// Root returns the <html> element.
func (d *Document) Root() dom.Element {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.wrap(c)
		}
	}

	return nil
}

func (d *Document) Body() dom.Element {
	return d.first("body")
}

func (d *Document) first(selector string) dom.Element {
	sel := d.selection().Find(selector)
	if sel.Length() == 0 {
		return nil
	}

	return d.wrap(sel.Nodes[0])
}

func (d *Document) GetElementByID(id string) dom.Element {
	var found *html.Node
	d.selection().Find("[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, _ := s.Attr("id"); v == id {
			found = s.Nodes[0]
			return false
		}
		return true
	})

	return d.wrap(found)
}

func (d *Document) QuerySelectorAll(selector string) []dom.Element {
	return d.wrapAll(d.selection().Find(selector).Nodes)
}

func (d *Document) wrapAll(nodes []*html.Node) []dom.Element {
	list := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		if el := d.wrap(n); el != nil {
			list = append(list, el)
		}
	}

	return list
}

func (d *Document) CreateElement(tag string) dom.Element {
	tag = strings.ToLower(tag)
	return d.wrap(&html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	})
}

func (d *Document) ActiveElement() dom.Element {
	if d.active == nil || !d.connected(d.active) {
		return nil
	}

	return d.wrap(d.active)
}

func (d *Document) connected(node *html.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}

	return false
}

// Schedule queues fn, it runs when RunPending is called. Tasks run in
// order of delay, then of scheduling.
func (d *Document) Schedule(delay time.Duration, fn func()) {
	d.taskSeq++
	d.tasks = append(d.tasks, task{at: delay, seq: d.taskSeq, fn: fn})
}

// Pending returns the number of queued tasks.
func (d *Document) Pending() int {
	return len(d.tasks)
}

// RunPending runs the queued tasks, including the ones they schedule, and
// returns how many ran.
func (d *Document) RunPending() int {
	n := 0
	for len(d.tasks) > 0 {
		tasks := d.tasks
		d.tasks = nil
		sort.SliceStable(tasks, func(i, j int) bool {
			if tasks[i].at != tasks[j].at {
				return tasks[i].at < tasks[j].at
			}
			return tasks[i].seq < tasks[j].seq
		})

		for _, t := range tasks {
			t.fn()
			n++
		}
	}

	return n
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func (d *Document) String() string {
	buf := bytes.NewBufferString("")
	d.Render(buf)
	return buf.String()
}

// dispatch runs the target phase then bubbles up the ancestors.
func (d *Document) dispatch(target *html.Node, evt dom.Event) bool {
	if be, ok := evt.(*dom.BasicEvent); ok {
		be.SetTarget(d.wrap(target))
	}

	for n := target; n != nil && n.Type == html.ElementNode; n = n.Parent {
		st := d.nodeState(n, false)
		if st != nil {
			if h := st.handlers["on"+evt.Type()]; h != nil {
				h(evt)
			}

			for _, l := range append([]*listener{}, st.listeners[evt.Type()]...) {
				l.handler(evt)
			}
		}

		if evt.PropagationStopped() || !evt.Bubbles() {
			break
		}
	}

	return !evt.DefaultPrevented()
}
