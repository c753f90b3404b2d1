//go:build js

package vmr

import (
	"fmt"

	"github.com/gowade/vmr/dom/jsdom"
)

// RenderByID renders vm into the element of the page with the given id.
func RenderByID(id string, vm interface{}) error {
	el := jsdom.Current().GetElementByID(id)
	if el == nil {
		return fmt.Errorf("no element with id %q", id)
	}

	return Render(el, vm)
}

// SyncByID syncs the inputs of the element of the page with the given
// id back into vm.
func SyncByID(id string, vm interface{}) error {
	el := jsdom.Current().GetElementByID(id)
	if el == nil {
		return fmt.Errorf("no element with id %q", id)
	}

	return Sync(el, vm)
}
