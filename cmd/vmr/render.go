package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/fsnotify.v1"

	"github.com/gowade/vmr"
	"github.com/gowade/vmr/core"
)

type renderOptions struct {
	model       string
	container   string
	output      string
	watch       bool
	metricsAddr string
}

func renderCmd(flags *globalFlags) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render PAGE",
		Short: "Render a page against a model",
		Long: `Render applies the directives of PAGE to the model and writes the
resulting HTML. With --watch the page is rendered again whenever the page
or the model changes, until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, logger, err := flags.setup(cmd)
			if err != nil {
				return err
			}

			page := args[0]
			run := func() error {
				return renderOnce(cmd, e, logger, page, opts)
			}

			if !opts.watch {
				return run()
			}

			if opts.metricsAddr != "" {
				if e, err = watchEngine(cmd, flags, logger, opts.metricsAddr); err != nil {
					return err
				}
			}

			if err := run(); err != nil {
				logger.Error("Render failed", "page", page, "error", err)
			}

			return watch(cmd.Context(), logger, []string{page, opts.model}, func() {
				if err := run(); err != nil {
					logger.Error("Render failed", "page", page, "error", err)
				}
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.model, "model", "m", "", "YAML or JSON model file")
	f.StringVarP(&opts.container, "container", "c", "", "id of the container element (default: body)")
	f.StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	f.BoolVarP(&opts.watch, "watch", "w", false, "render again on changes")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while watching")
	cmd.MarkFlagRequired("model")

	return cmd
}

func renderOnce(cmd *cobra.Command, e *core.Engine, logger *slog.Logger, page string, opts renderOptions) error {
	d, err := loadPage(page)
	if err != nil {
		return err
	}

	model, err := loadModel(opts.model)
	if err != nil {
		return err
	}

	container, err := containerOf(d, opts.container)
	if err != nil {
		return err
	}

	renderErr := e.RenderContext(cmd.Context(), container, model)
	reportErrors(logger, page, renderErr)
	d.RunPending()

	w, closeFn, err := output(opts.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if err := d.Render(w); err != nil {
		closeFn()
		return err
	}

	if err := closeFn(); err != nil {
		return err
	}

	if renderErr != nil {
		return fmt.Errorf("%v: render completed with errors", page)
	}

	logger.Debug("Rendered", "page", page, "model", opts.model, "output", opts.output)
	return nil
}

// watchEngine builds an engine that reports to a registry served on addr.
func watchEngine(cmd *cobra.Command, flags *globalFlags, logger *slog.Logger, addr string) (*core.Engine, error) {
	cfg, err := flags.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	cfg.Metrics = true
	e, err := vmr.New(cfg, vmr.Options{Logger: logger, Registerer: reg})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()

	go func() {
		<-cmd.Context().Done()
		srv.Close()
	}()

	logger.Info("Serving metrics", "addr", addr)
	return e, nil
}

// watch calls fn whenever one of files is written, until ctx is done.
// Files replaced by a rename, as editors do, are watched again.
func watch(ctx context.Context, logger *slog.Logger, files []string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := map[string]bool{}
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}

		if err := watcher.Add(abs); err != nil {
			return fmt.Errorf("watch %v: %w", file, err)
		}
		watched[abs] = true
	}

	logger.Info("Watching for changes", "files", files)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if !watched[event.Name] {
				continue
			}

			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				// the new file may not be there yet
				time.Sleep(50 * time.Millisecond)
				if err := watcher.Add(event.Name); err != nil {
					logger.Warn("Cannot watch again", "file", event.Name, "error", err)
					continue
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Info("Modified", "file", event.Name)
				fn()
			}

		case err := <-watcher.Errors:
			logger.Warn("Watcher error", "error", err)
		}
	}
}
