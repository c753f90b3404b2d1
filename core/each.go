package core

import (
	"strconv"

	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/scope"
)

// indexSentinel is used when a row being deleted has no index.
const indexSentinel = 8888

func indexOf(el dom.Element) (int, bool) {
	if el == nil {
		return 0, false
	}

	v, ok := el.Attr(IndexAttr)
	if !ok {
		return 0, false
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}

	return i, true
}

func hasIndex(el dom.Element, i int) bool {
	j, ok := indexOf(el)
	return ok && j == i
}

// reconcile makes the siblings following the vm-each template tmpl the
// clones of its items: the clone at position i carries index="i" and a
// vm-with of the each expression. Existing clones are reused by
// position, new ones are inserted, leftovers are emptied and removed. The
// template itself is always hidden.
func (p *pass) reconcile(tmpl dom.Element, s scope.Scope) (bool, error) {
	eachAttr := p.e.attr(DirEach)
	expression, _ := tmpl.Attr(eachAttr)

	list := p.e.Eval(expression, s, tmpl)
	dom.Hide(tmpl)

	if scope.IsUndefined(list) {
		return false, ErrEachUndefined
	}

	n := 0
	if scope.Truthy(list) {
		n, _ = scope.Length(list)
	}

	parent := tmpl.Parent()
	if parent == nil {
		return false, nil
	}

	next := tmpl.NextElementSibling()
	for i := 0; i < n; i++ {
		if hasIndex(next, i) {
			dom.Show(next)
			next = next.NextElementSibling()
			continue
		}

		clone := tmpl.Clone()
		clone.RemoveAttr(eachAttr)
		clone.SetAttr(p.e.attr(DirWith), expression)
		dom.Show(clone)
		clone.SetAttr(IndexAttr, strconv.Itoa(i))

		if next != nil {
			parent.InsertBefore(clone, next)
		} else {
			parent.AppendChild(clone)
		}
	}

	for i := n; hasIndex(next, i); i++ {
		dead := next
		next = next.NextElementSibling()
		p.e.Empty(dead)
		parent.RemoveChild(dead)
	}

	return n > 0, nil
}

// ClosestIndex returns the index of the each clone el is in, or -1.
func ClosestIndex(el dom.Element) int {
	for ; el != nil; el = el.Parent() {
		if v, ok := el.Attr(IndexAttr); ok && v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return -1
			}
			return i
		}
	}

	return -1
}

// DeleteEachElem removes one clone outside of a render, the clones after
// it are renumbered so the indices stay contiguous.
func (e *Engine) DeleteEachElem(el dom.Element) {
	if el == nil {
		return
	}

	index, ok := indexOf(el)
	if !ok {
		e.logger.Error("Deleted element has no index", "elem", dom.DebugInfo(el), "error", ErrMissingIndex)
		index = indexSentinel
	}

	for next := el.NextElementSibling(); hasIndex(next, index+1); next = next.NextElementSibling() {
		next.SetAttr(IndexAttr, strconv.Itoa(index))
		index++
	}

	e.Empty(el)
	if parent := el.Parent(); parent != nil {
		parent.RemoveChild(el)
	}
}
