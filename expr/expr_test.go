package expr

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gowade/vmr/scope"
)

type (
	Address struct {
		City string
	}

	Person struct {
		Name    string
		Age     int
		Address *Address
		Tags    []string
		Extra   map[string]interface{}
		greeted string
	}

	Root struct {
		Title  string
		Person *Person
		People []*Person
		Count  int
	}
)

func (p *Person) Greet(greeting string) string {
	p.greeted = greeting
	return greeting + ", " + p.Name
}

func (r *Root) Double(n int) int {
	return n * 2
}

func newRoot() *Root {
	p := &Person{
		Name:    "Ann",
		Age:     31,
		Address: &Address{City: "Oslo"},
		Tags:    []string{"a", "b"},
		Extra:   map[string]interface{}{"k": "v"},
	}

	return &Root{
		Title:  "t",
		Person: p,
		People: []*Person{p, {Name: "Bob", Age: 25}},
		Count:  2,
	}
}

func TestEval(t *testing.T) {
	root := newRoot()
	s := scope.New(root).With(root.Person).WithIndex(1)
	s.Helpers = scope.DefaultHelpers()
	e := New()

	cases := []struct {
		expr string
		want interface{}
	}{
		{`1`, 1},
		{`1.5`, 1.5},
		{`'it\'s'`, "it's"},
		{`"x" + 'y'`, "xy"},
		{`Name`, "Ann"},
		{`name`, "Ann"},
		{`Title`, "t"},
		{`Address.City`, "Oslo"},
		{`Tags.length`, 2},
		{`Tags[1]`, "b"},
		{`Tags.item(0)`, "a"},
		{`Tags[5]`, Undefined},
		{`Extra.k`, "v"},
		{`Extra['k']`, "v"},
		{`Extra.missing`, Undefined},
		{`People[index].Name`, "Bob"},
		{`root.Person.Age + 1`, 32},
		{`this.Age`, 31},
		{`Age > 30 && Name == 'Ann'`, true},
		{`Age < 30 || 'fallback'`, "fallback"},
		{`!Tags`, false},
		{`-Age`, -31},
		{`Age / 2`, 15.5},
		{`Age % 10`, 1},
		{`Count === 2`, true},
		{`Count == '2'`, true},
		{`Count === '2'`, false},
		{`null == undefined`, true},
		{`Count > 1 ? 'many' : 'one'`, "many"},
		{`Greet('Hi')`, "Hi, Ann"},
		{`Double(Count)`, 4},
		{`upper(Name)`, "ANN"},
		{`len(People)`, 2},
		{`concat(Name, '-', Age)`, "Ann-31"},
		{`not(Count)`, false},
		{`(1 + 2) * 3`, 9},
		{`1 + 2 * 3`, 7},
	}

	for _, c := range cases {
		v, err := e.Eval(c.expr, s)
		require.NoError(t, err, c.expr)
		require.Equal(t, c.want, v, c.expr)
	}

	require.True(t, e.Cached() > 0)
}

func TestEvalFailures(t *testing.T) {
	root := newRoot()
	s := scope.New(root)
	e := New()

	_, err := e.Eval(`Nobody`, s)
	require.True(t, errors.Is(err, ErrUnknownIdentifier))

	root.Person.Address = nil
	_, err = e.Eval(`Person.Address.City`, s)
	require.Error(t, err)

	_, err = e.Eval(`Title(1)`, s)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "not a function"))

	_, err = e.Eval(`1 +`, s)
	require.Error(t, err)

	_, err = e.Eval(`'open`, s)
	require.Error(t, err)

	_, err = e.Eval(``, s)
	require.Error(t, err)
}

func TestFuncReceiver(t *testing.T) {
	root := newRoot()
	e := New()

	v, err := e.Eval(`Person.Greet`, scope.New(root))
	require.NoError(t, err)
	f, ok := v.(scope.Func)
	require.True(t, ok)
	require.Equal(t, root.Person, f.Receiver)
	require.Equal(t, "Greet", f.Name)

	out, err := f.Call("Yo", "ignored")
	require.NoError(t, err)
	require.Equal(t, "Yo, Ann", out)
	require.Equal(t, "Yo", root.Person.greeted)

	v, err = e.Eval(`Double`, scope.New(root).With(root.Person))
	require.NoError(t, err)
	require.Equal(t, root, v.(scope.Func).Receiver)

	fn := func() string { return "plain" }
	v, err = e.Eval(`fn`, scope.New(map[string]interface{}{"fn": fn}))
	require.NoError(t, err)
	out, err = v.(scope.Func).Call()
	require.NoError(t, err)
	require.Equal(t, "plain", out)
}

func TestAssign(t *testing.T) {
	root := newRoot()
	e := New()
	s := scope.New(root).With(root.Person)

	require.NoError(t, e.Assign("Bea", `Name`, s))
	require.Equal(t, "Bea", root.Person.Name)

	require.NoError(t, e.Assign("40", `Age`, s))
	require.Equal(t, 40, root.Person.Age)

	require.NoError(t, e.Assign("x", `Title`, s))
	require.Equal(t, "x", root.Title)

	require.NoError(t, e.Assign("Rome", `Address.City`, s))
	require.Equal(t, "Rome", root.Person.Address.City)

	require.NoError(t, e.Assign("z", `Tags[0]`, s))
	require.Equal(t, "z", root.Person.Tags[0])

	require.NoError(t, e.Assign("w", `Extra['k']`, s))
	require.Equal(t, "w", root.Person.Extra["k"])

	require.NoError(t, e.Assign(nil, `Age`, s))
	require.Equal(t, 0, root.Person.Age)

	m := map[string]interface{}{}
	require.NoError(t, e.Assign(true, `done`, scope.New(root).With(m)))
	require.Equal(t, true, m["done"])

	err := e.Assign(1, `Age + 1`, s)
	require.True(t, errors.Is(err, ErrNotAssignable))

	require.Error(t, e.Assign("abc", `Age`, s))
	require.Error(t, e.Assign(1, `Unknown`, s))
}
