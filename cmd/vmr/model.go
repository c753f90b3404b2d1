package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/dom/htmldom"
)

// loadModel reads a YAML or JSON file. JSON is read by the YAML decoder
// as well, maps come out as map[string]interface{}.
func loadModel(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var model interface{}
	if err := yaml.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("model %v: %w", path, err)
	}

	if model == nil {
		model = map[string]interface{}{}
	}

	return model, nil
}

// writeModel writes model as JSON when path ends in .json, as YAML
// otherwise.
func writeModel(w io.Writer, path string, model interface{}) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(model)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(model); err != nil {
		return err
	}

	return enc.Close()
}

func loadPage(path string) (*htmldom.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	d, err := htmldom.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("page %v: %w", path, err)
	}

	return d, nil
}

// containerOf returns the element with the given id, or the body when id
// is empty.
func containerOf(d *htmldom.Document, id string) (dom.Element, error) {
	if id == "" {
		if body := d.Body(); body != nil {
			return body, nil
		}

		return nil, fmt.Errorf("page has no body")
	}

	el := d.GetElementByID(id)
	if el == nil {
		return nil, fmt.Errorf("no element with id %q", id)
	}

	return el, nil
}

// output opens path for writing, "" and "-" are the given stdout.
func output(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	return f, f.Close, nil
}
