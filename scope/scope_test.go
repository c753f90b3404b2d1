package scope

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type (
	Test struct {
		C9    int
		Name  string
		Ptr   *int
		When  time.Time
		inner int
	}

	list []string
)

func (t *Test) Double() int {
	return t.C9 * 2
}

func (l list) Len() int { return len(l) }

func TestLookup(t *testing.T) {
	root := &Test{C9: 1, Name: "root"}
	s := New(root)

	v, ok, err := s.Lookup("C9")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok, _ = s.Lookup("name")
	require.True(t, ok)
	require.Equal(t, "root", v)

	_, ok, err = s.Lookup("Nonexistant")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, _ = s.Lookup("inner")
	require.False(t, ok)

	v, ok, _ = s.Lookup("Double")
	require.True(t, ok)
	rets, err := Call(reflect.ValueOf(v), nil)
	require.NoError(t, err)
	require.Equal(t, 2, rets)

	m := map[string]interface{}{
		"a":  map[string]interface{}{"b": true},
		"C9": 5,
	}
	s = New(root).With(m).WithIndex(3)

	v, _, _ = s.Lookup("C9")
	require.Equal(t, 5, v, "current shadows root")
	v, _, _ = s.Lookup("Name")
	require.Equal(t, "root", v, "falls back to root")
	v, _, _ = s.Lookup("index")
	require.Equal(t, 3, v)
	v, _, _ = s.Lookup("this")
	require.Equal(t, m, v)
	v, _, _ = s.Lookup("root")
	require.Equal(t, root, v)

	a, _, _ := s.Lookup("a")
	v, ok, err = Get(a, "b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, true, v)
}

func TestSet(t *testing.T) {
	root := &Test{}
	m := map[string]interface{}{"x": 1}
	s := New(root).With(m)

	require.NoError(t, s.Set("C9", "42"))
	require.Equal(t, 42, root.C9)

	require.NoError(t, s.Set("x", "str"))
	require.Equal(t, "str", m["x"])

	require.NoError(t, s.Set("fresh", 7))
	require.Equal(t, 7, m["fresh"])

	require.NoError(t, s.Set("Ptr", "3"))
	require.Equal(t, 3, *root.Ptr)
	require.NoError(t, s.Set("Ptr", nil))
	require.Nil(t, root.Ptr)

	require.NoError(t, s.Set("When", "2024-03-05T10:30"))
	require.Equal(t, time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), root.When)

	err := New(root).Set("missing", 1)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "Unable to find"))

	err = Set(Test{}, "C9", 1)
	require.Error(t, err, "struct values are not settable")

	err = s.Set("C9", "abc")
	require.Error(t, err)
}

func TestTouch(t *testing.T) {
	m := map[string]interface{}{}
	New(nil).With(m).Touch("missing")
	v, ok := m["missing"]
	require.True(t, ok)
	require.Nil(t, v)
}

func TestLengthItem(t *testing.T) {
	n, ok := Length([]int{1, 2, 3})
	require.True(t, ok)
	require.Equal(t, 3, n)

	n, ok = Length(list{"a"})
	require.True(t, ok)
	require.Equal(t, 1, n)

	n, ok = Length(map[string]interface{}{"length": 4.0})
	require.True(t, ok)
	require.Equal(t, 1, n, "maps count their keys")

	_, ok = Length(12)
	require.False(t, ok)

	it, err := Item([]string{"a", "b"}, 1)
	require.NoError(t, err)
	require.Equal(t, "b", it)

	_, err = Item([]string{"a"}, 4)
	require.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	cases := []struct {
		t   time.Time
		out string
	}{
		{time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "2024-03-05"},
		{time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), "2024-03-05T10:30"},
		{time.Date(2024, 3, 5, 10, 30, 15, 0, time.UTC), "2024-03-05T10:30:15"},
		{time.Date(2024, 3, 5, 10, 30, 15, 250*int(time.Millisecond), time.UTC), "2024-03-05T10:30:15.250"},
		{time.Date(2024, 3, 5, 12, 30, 0, 0, time.FixedZone("X", 2*3600)), "2024-03-05T10:30"},
	}

	for _, c := range cases {
		require.Equal(t, c.out, FormatTime(c.t))
		back, err := ParseTime(c.out)
		require.NoError(t, err)
		require.True(t, back.Equal(c.t))
	}
}

func TestAddressableStructs(t *testing.T) {
	type nested struct {
		Inner Test
		Items []Test
	}
	root := &nested{Inner: Test{C9: 1}, Items: []Test{{Name: "a"}}}

	v, ok, err := Get(root, "Inner")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, Set(v, "C9", 7))
	require.Equal(t, 7, root.Inner.C9)

	it, err := Item(root.Items, 0)
	require.NoError(t, err)
	require.NoError(t, Set(it, "Name", "b"))
	require.Equal(t, "b", root.Items[0].Name)

	when, _, _ := Get(&root.Inner, "When")
	require.IsType(t, time.Time{}, when)

	v, _, _ = Get(nested{}, "Inner")
	require.IsType(t, Test{}, v, "fields of a struct value are copies")
}
