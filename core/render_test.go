package core

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/dom/htmldom"
	"github.com/gowade/vmr/scope"
	"github.com/gowade/vmr/utils"
)

type (
	todo struct {
		Title string
		Done  bool
	}

	todoList struct {
		Name  string
		Todos []*todo
		Extra map[string]interface{}
	}

	namedVM struct {
		Name string
		id   string
	}
)

func (vm *namedVM) VMID() string {
	return vm.id
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEngine has a minimal set of directives, the built-in ones are
// tested with the directives package.
func testEngine(t *testing.T, opts ...Option) *Engine {
	e := NewEngine(append([]Option{WithLogger(quietLogger())}, opts...)...)
	reg := e.Registry()

	require.NoError(t, reg.Register("text", HandlerFunc(func(b *Binding) error {
		b.Elem.SetText(utils.ToString(b.Result))
		return nil
	})))
	require.NoError(t, reg.Register("class", HandlerFunc(func(b *Binding) error {
		dom.SetClass(b.Elem, b.Param, scope.Truthy(b.Result))
		return nil
	})))
	require.NoError(t, reg.Register("value", HandlerFunc(func(b *Binding) error {
		b.Elem.SetValue(utils.ToString(b.Result))
		return nil
	})))
	require.NoError(t, reg.Register("container", HandlerFunc(func(b *Binding) error {
		return nil
	})))

	return e
}

func newTodoList() *todoList {
	return &todoList{
		Name: "groceries",
		Todos: []*todo{
			{Title: "milk"},
			{Title: "eggs", Done: true},
			{Title: "bread"},
		},
		Extra: map[string]interface{}{},
	}
}

const listMarkup = `<html><body>
<div id="app">
	<h1 id="name" vm-text="Name"></h1>
	<ul id="list">
		<li vm-each="Todos" vm-text="Title" vm-class-complete="Done"></li>
	</ul>
	<p id="after" vm-text="Todos.length"></p>
</div>
</body></html>`

func rows(d *htmldom.Document) []dom.Element {
	return d.GetElementByID("list").Children()
}

func TestRender(t *testing.T) {
	d := htmldom.MustParse(listMarkup)
	e := testEngine(t)
	vm := newTodoList()

	require.NoError(t, e.Render(d.GetElementByID("app"), vm))
	require.Equal(t, "groceries", d.GetElementByID("name").Text())
	require.Equal(t, "3", d.GetElementByID("after").Text())

	marker, ok := d.GetElementByID("app").Attr("vm-container")
	require.True(t, ok)
	require.Equal(t, e.Identity(vm), marker)

	lis := rows(d)
	require.Len(t, lis, 4)
	require.True(t, dom.Hidden(lis[0]))
	for i, li := range lis[1:] {
		require.False(t, dom.Hidden(li))
		require.Equal(t, vm.Todos[i].Title, li.Text())
		idx, _ := li.Attr(IndexAttr)
		require.Equal(t, utils.ToString(i), idx)
		with, _ := li.Attr("vm-with")
		require.Equal(t, "Todos", with)
		_, hasEach := li.Attr("vm-each")
		require.False(t, hasEach)
	}

	require.False(t, lis[1].HasClass("complete"))
	require.True(t, lis[2].HasClass("complete"))

	vm.Todos[1].Done = false
	require.NoError(t, e.Render(d.GetElementByID("app"), vm))
	require.False(t, rows(d)[2].HasClass("complete"))
}

func TestRenderIdempotent(t *testing.T) {
	d := htmldom.MustParse(listMarkup)
	e := testEngine(t)
	vm := newTodoList()
	app := d.GetElementByID("app")

	require.NoError(t, e.Render(app, vm))
	first := d.String()

	require.NoError(t, e.Render(app, vm))
	if diff := cmp.Diff(first, d.String()); diff != "" {
		t.Fatalf("second render changed the DOM (-first +second):\n%v", diff)
	}
}

func TestReconcile(t *testing.T) {
	d := htmldom.MustParse(listMarkup)
	e := testEngine(t)
	vm := newTodoList()
	app := d.GetElementByID("app")

	check := func(n int) {
		lis := rows(d)
		require.Len(t, lis, n+1)
		require.True(t, dom.Hidden(lis[0]))
		for i := 0; i < n; i++ {
			require.Equal(t, i, ClosestIndex(lis[i+1]))
			require.False(t, dom.Hidden(lis[i+1]))
		}
	}

	require.NoError(t, e.Render(app, vm))
	check(3)
	before := rows(d)

	vm.Todos = vm.Todos[:1]
	require.NoError(t, e.Render(app, vm))
	check(1)
	require.True(t, dom.Same(before[1], rows(d)[1]))

	vm.Todos = append(vm.Todos, &todo{Title: "tea"}, &todo{Title: "jam"})
	require.NoError(t, e.Render(app, vm))
	check(3)
	require.True(t, dom.Same(before[1], rows(d)[1]))
	require.Equal(t, "jam", rows(d)[3].Text())

	vm.Todos = nil
	require.NoError(t, e.Render(app, vm))
	check(0)
	require.Equal(t, "0", d.GetElementByID("after").Text())
}

func TestReconcileSwapReusesPositions(t *testing.T) {
	d := htmldom.MustParse(listMarkup)
	e := testEngine(t)
	vm := newTodoList()
	app := d.GetElementByID("app")

	require.NoError(t, e.Render(app, vm))
	before := rows(d)

	vm.Todos[0], vm.Todos[2] = vm.Todos[2], vm.Todos[0]
	require.NoError(t, e.Render(app, vm))

	after := rows(d)
	require.True(t, dom.Same(before[1], after[1]))
	require.Equal(t, "bread", after[1].Text())
	require.Equal(t, "milk", after[3].Text())
}

func TestEachUndefined(t *testing.T) {
	d := htmldom.MustParse(`<html><body><ul id="list">
		<li vm-each="Extra.missing" vm-text="Title"></li>
		<li id="other" vm-text="Name"></li>
	</ul></body></html>`)
	e := testEngine(t)

	err := e.Render(d.GetElementByID("list"), newTodoList())
	require.True(t, errors.Is(err, ErrEachUndefined))
	require.Len(t, rows(d), 2)
	require.True(t, dom.Hidden(rows(d)[0]))
	require.Equal(t, "groceries", d.GetElementByID("other").Text())
}

func TestMarkerIsolation(t *testing.T) {
	d := htmldom.MustParse(`<html><body>
	<div id="outer">
		<span id="title" vm-text="Name"></span>
		<div id="inner" vm-container="B">
			<span id="owned" vm-text="Name">untouched</span>
		</div>
	</div></body></html>`)
	e := testEngine(t)
	a := &namedVM{Name: "A", id: "A"}
	b := &namedVM{Name: "B", id: "B"}

	require.NoError(t, e.Render(d.GetElementByID("outer"), a))
	require.Equal(t, "A", d.GetElementByID("title").Text())
	require.Equal(t, "untouched", d.GetElementByID("owned").Text())

	require.NoError(t, e.Render(d.GetElementByID("inner"), b))
	require.Equal(t, "B", d.GetElementByID("owned").Text())

	a.Name = "A2"
	require.NoError(t, e.Render(d.GetElementByID("outer"), a))
	require.Equal(t, "A2", d.GetElementByID("title").Text())
	require.Equal(t, "B", d.GetElementByID("owned").Text())
}

func TestIdentity(t *testing.T) {
	e := testEngine(t)

	require.Equal(t, "x", e.Identity(&namedVM{id: "x"}))
	require.Equal(t, "42", e.Identity(map[string]interface{}{"id": 42}))
	require.Equal(t, "k", e.Identity(&struct{ ID string }{ID: "k"}))

	vm := newTodoList()
	id := e.Identity(vm)
	require.NotEmpty(t, id)
	other := newTodoList()
	require.NotEqual(t, id, e.Identity(other))
	require.Equal(t, id, e.Identity(vm))
	require.Empty(t, e.Identity(nil))
}

func TestIdentityOfValueStructs(t *testing.T) {
	e := testEngine(t)

	type plain struct{ Name string }
	a := e.Identity(plain{Name: "a"})
	b := e.Identity(plain{Name: "b"})
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
	require.NotEqual(t, a, e.Identity(plain{Name: "a"}))

	p := &plain{Name: "a"}
	require.Equal(t, e.Identity(p), e.Identity(p))
}

func TestFailSoftRead(t *testing.T) {
	d := htmldom.MustParse(`<html><body><div id="app">
		<span id="bad" vm-text="foo.bar">x</span>
		<span id="missing" vm-text="Extra.nothing">x</span>
		<span id="good" vm-text="name">x</span>
	</div></body></html>`)
	e := testEngine(t)
	vm := map[string]interface{}{
		"name":  "ok",
		"Extra": map[string]interface{}{},
	}

	require.NoError(t, e.Render(d.GetElementByID("app"), vm))
	require.Equal(t, "", d.GetElementByID("bad").Text())
	require.Equal(t, DefaultPlaceholder, d.GetElementByID("missing").Text())
	require.Equal(t, "ok", d.GetElementByID("good").Text())

	v, defined := vm["foo.bar"]
	require.True(t, defined)
	require.Nil(t, v)
}

func TestUnknownDirective(t *testing.T) {
	d := htmldom.MustParse(`<html><body><div id="app">
		<div id="typo" vm-txet="Name"><span id="child" vm-text="Name">old</span></div>
		<span id="next" vm-text="Name"></span>
	</div></body></html>`)
	e := testEngine(t)

	err := e.Render(d.GetElementByID("app"), newTodoList())
	require.True(t, errors.Is(err, ErrUnknownDirective))

	var ee *ElementError
	require.True(t, errors.As(err, &ee))
	require.Equal(t, "vm-txet", ee.Directive)
	require.True(t, dom.Same(d.GetElementByID("typo"), ee.Elem))

	require.Equal(t, "old", d.GetElementByID("child").Text())
	require.Equal(t, "groceries", d.GetElementByID("next").Text())
}

func TestWithAndHide(t *testing.T) {
	d := htmldom.MustParse(`<html><body><div id="app">
		<div id="sel" vm-with="Selected" style="display: none"><b id="title" vm-text="Title"></b></div>
		<div id="none" vm-with="Nothing"><b id="inner" vm-text="Title">keep</b></div>
	</div></body></html>`)
	e := testEngine(t)
	vm := map[string]interface{}{
		"Selected": &todo{Title: "picked"},
		"Nothing":  nil,
	}

	require.NoError(t, e.Render(d.GetElementByID("app"), vm))
	require.False(t, dom.Hidden(d.GetElementByID("sel")))
	require.Equal(t, "picked", d.GetElementByID("title").Text())
	require.True(t, dom.Hidden(d.GetElementByID("none")))
	require.Equal(t, "keep", d.GetElementByID("inner").Text())

	vm["Selected"] = nil
	require.NoError(t, e.Render(d.GetElementByID("app"), vm))
	require.True(t, dom.Hidden(d.GetElementByID("sel")))
}

func TestRenderNilViewModel(t *testing.T) {
	d := htmldom.MustParse(`<html><body><div id="app"><span vm-text="Name"></span></div></body></html>`)
	e := testEngine(t)

	var vm *todoList
	require.NoError(t, e.Render(d.GetElementByID("app"), vm))
	require.True(t, dom.Hidden(d.GetElementByID("app")))

	require.True(t, errors.Is(e.Render(nil, newTodoList()), ErrNilContainer))
}

func TestAfterActions(t *testing.T) {
	d := htmldom.MustParse(`<html><body><div id="app">
		<i vm-after="'first'"></i><i vm-after="'second'"></i>
	</div></body></html>`)
	e := testEngine(t)

	var ran []string
	require.NoError(t, e.Registry().Register("after", HandlerFunc(func(b *Binding) error {
		name := b.Result.(string)
		b.After(func() { ran = append(ran, name) })
		return nil
	})))

	require.NoError(t, e.Render(d.GetElementByID("app"), newTodoList()))
	require.Equal(t, []string{"second", "first"}, ran)

	require.NoError(t, e.Render(d.GetElementByID("app"), newTodoList()))
	require.Len(t, ran, 4)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := HandlerFunc(func(*Binding) error { return nil })

	require.NoError(t, r.Register("x", noop))
	require.True(t, errors.Is(r.Register("x", noop), ErrDuplicateDirective))
	r.Replace("x", noop)
	r.Replace("a", noop)
	require.Equal(t, []string{"a", "x"}, r.Names())

	_, ok := r.Lookup("nope")
	require.False(t, ok)
}

func TestHelpers(t *testing.T) {
	d := htmldom.MustParse(`<html><body><div id="app">
		<span id="up" vm-text="shout(Name)"></span>
		<span id="len" vm-text="len(Todos)"></span>
	</div></body></html>`)
	e := testEngine(t)
	require.NoError(t, e.RegisterHelper("shout", func(s string) string { return s + "!" }))
	require.Error(t, e.RegisterHelper("shout", func(s string) string { return s }))
	require.Error(t, e.RegisterHelper("bad", 3))

	require.NoError(t, e.Render(d.GetElementByID("app"), newTodoList()))
	require.Equal(t, "groceries!", d.GetElementByID("up").Text())
	require.Equal(t, "3", d.GetElementByID("len").Text())
}

func TestTimeResult(t *testing.T) {
	d := htmldom.MustParse(`<html><body><div id="app">
		<span id="day" vm-text="Day"></span>
		<span id="at" vm-text="At"></span>
	</div></body></html>`)
	e := testEngine(t)
	at := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	vm := map[string]interface{}{
		"Day": time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		"At":  &at,
	}

	require.NoError(t, e.Render(d.GetElementByID("app"), vm))
	require.Equal(t, "2024-03-05", d.GetElementByID("day").Text())
	require.Equal(t, "2024-03-05T10:30", d.GetElementByID("at").Text())
}
