package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gowade/vmr/config"
	"github.com/gowade/vmr/dom"
	"github.com/gowade/vmr/dom/htmldom"
)

const (
	listPage = `<html><body><div id="app">
<h1 vm-text="title"></h1>
<ul><li vm-each="items" vm-text="name"></li></ul>
</div></body></html>`

	listModel = `title: Groceries
items:
  - name: milk
  - name: eggs
`

	formPage = `<html><body><form id="form">
<input id="name" vm-value="name" value="Bob" />
<input id="admin" type="checkbox" vm-value="admin" checked />
</form></body></html>`
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", listPage)
	model := writeFile(t, dir, "model.yaml", listModel)

	out, err := execute(t, "render", page, "--model", model, "--container", "app")
	require.NoError(t, err)

	d, err := htmldom.ParseString(out)
	require.NoError(t, err)
	require.Equal(t, "Groceries", d.QuerySelectorAll("h1")[0].Text())

	lis := d.QuerySelectorAll("li")
	require.Len(t, lis, 3)
	require.True(t, dom.Hidden(lis[0]))
	require.Equal(t, "milk", lis[1].Text())
	require.Equal(t, "eggs", lis[2].Text())

	outFile := filepath.Join(dir, "out.html")
	_, err = execute(t, "render", page, "-m", model, "-o", outFile)
	require.NoError(t, err)
	written, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Contains(t, string(written), "eggs")
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "page.html", `<html><body><p vm-bogus="x"></p></body></html>`)
	model := writeFile(t, dir, "model.json", `{"x": 1}`)

	out, err := execute(t, "render", page, "--model", model)
	require.Error(t, err)
	require.Contains(t, out, "vm-bogus")

	_, err = execute(t, "render", page)
	require.Error(t, err)

	_, err = execute(t, "render", page, "--model", model, "--container", "nope")
	require.Error(t, err)

	_, err = execute(t, "render", page, "--model", model, "--evaluator", "lua")
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestSync(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "form.html", formPage)
	model := writeFile(t, dir, "user.yaml", "name: Ann\nadmin: false\nage: 30\n")

	out, err := execute(t, "sync", page, "--model", model)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	require.Equal(t, map[string]interface{}{"name": "Bob", "admin": true, "age": 30}, got)

	jsonModel := writeFile(t, dir, "user.json", `{"name": "Ann"}`)
	out, err = execute(t, "sync", page, "--model", jsonModel, "--container", "form")
	require.NoError(t, err)
	require.Contains(t, out, `"name": "Bob"`)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.html", listPage)
	bad := writeFile(t, dir, "bad.html", `<html><body><div vm-colour="c"><span vm-text="t"></span></div></body></html>`)

	out, err := execute(t, "check", good)
	require.NoError(t, err)
	require.Empty(t, out)

	out, err = execute(t, "check", good, bad)
	require.Error(t, err)
	require.Contains(t, out, "bad.html")
	require.Contains(t, out, "vm-colour")

	out, err = execute(t, "check", "--list", "--prefix", "bind", "--extras")
	require.NoError(t, err)
	require.Contains(t, out, "bind-text\n")
	require.Contains(t, out, "bind-markdown\n")

	_, err = execute(t, "check")
	require.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "custom.toml", "prefix = \"x\"\n[log]\nlevel = \"debug\"\n")
	page := writeFile(t, dir, "page.html", `<html><body><p id="p" x-text="t"></p></body></html>`)
	model := writeFile(t, dir, "m.yaml", "t: hello\n")

	out, err := execute(t, "render", page, "-m", model, "--config", cfg)
	require.NoError(t, err)
	require.Contains(t, out, `<p id="p" x-text="t">hello</p>`)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.Log{Level: "warn"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger, err = newLogger(&buf, config.Log{Format: config.FormatText})
	require.NoError(t, err)
	logger.Info("plain")
	require.Contains(t, buf.String(), "msg=plain")
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "page.html", listPage)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, logger, []string{file}, func() { calls <- struct{}{} })
	}()

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte(listPage+"\n"), 0o644))

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("no call after a write")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return")
	}
}
