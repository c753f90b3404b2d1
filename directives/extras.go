package directives

import (
	"fmt"

	"github.com/russross/blackfriday/v2"

	"github.com/gowade/vmr/core"
	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/utils"
)

// SyncTdThDirective lines up the column widths of a header table with a
// scrolling body table, once the render is complete. The element is the
// body table, its parent the scrolling container, and the header table
// is the sibling before that container:
//
//	<table class="header"><tr><th>A</th><th>B</th></tr></table>
//	<div class="scroll">
//		<table vm-synctdth="true"><tbody><tr><td>..</td><td>..</td></tr></tbody></table>
//	</div>
type SyncTdThDirective struct{}

func (SyncTdThDirective) Apply(b *core.Binding) error {
	table := b.Elem
	logger := b.Logger()
	b.After(func() {
		if err := syncColumnWidths(table); err != nil {
			logger.Warn("Cannot sync column widths", "elem", dom.DebugInfo(table), "error", err)
		}
	})

	return nil
}

func previousElementSibling(el dom.Element) dom.Element {
	parent := el.Parent()
	if parent == nil {
		return nil
	}

	var prev dom.Element
	for _, c := range parent.Children() {
		if dom.Same(c, el) {
			return prev
		}
		prev = c
	}

	return nil
}

func firstChild(el dom.Element) dom.Element {
	if el == nil {
		return nil
	}

	if children := el.Children(); len(children) > 0 {
		return children[0]
	}

	return nil
}

func syncColumnWidths(body dom.Element) error {
	parent := body.Parent()
	if parent == nil {
		return fmt.Errorf("table has no parent")
	}

	header := previousElementSibling(parent)
	if header == nil {
		return fmt.Errorf("cannot find the header table")
	}

	row := firstChild(firstChild(body))
	for row != nil && dom.Hidden(row) {
		row = row.NextElementSibling()
	}
	if row == nil {
		return fmt.Errorf("cannot find a visible body row")
	}

	headerRow := firstChild(firstChild(header))
	if headerRow == nil {
		return fmt.Errorf("cannot find the header row")
	}

	td, th := firstChild(row), firstChild(headerRow)
	for td != nil && th != nil {
		th.SetStyle("width", fmt.Sprintf("%vpx", td.Width()))
		td, th = td.NextElementSibling(), th.NextElementSibling()
	}

	return nil
}

// MarkdownDirective renders the result as Markdown into the inner markup.
//
// Usage:
//
//	vm-markdown="Description"
type MarkdownDirective struct{}

func (MarkdownDirective) Apply(b *core.Binding) error {
	out := blackfriday.Run([]byte(utils.ToString(b.Result)))
	return b.Elem.SetHTML(string(out))
}
