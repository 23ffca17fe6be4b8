package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/sigslot/internal/config"
	"github.com/dshills/sigslot/internal/logging"
	"github.com/dshills/sigslot/internal/luabind"
	"github.com/dshills/sigslot/internal/model"
	"github.com/dshills/sigslot/internal/signal"
	"github.com/dshills/sigslot/internal/watch"
)

// errNoScripts is returned when neither arguments nor config name a script.
var errNoScripts = errors.New("no scripts to run")

func runCmd(flags *globalFlags) *cobra.Command {
	var (
		watchFlag  bool
		bufferName string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run [scripts...]",
		Short: "Run Lua scripts against a fresh buffer",
		Long: `Run executes each script in order inside one Lua state, then prints the
final buffer text. Without arguments the scripts listed under [run] in the
config file are used.

With --watch the scripts are run again, in a fresh state with a fresh
buffer, whenever one of them changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			fs := cmd.Flags()
			if fs.Changed("watch") {
				cfg.Run.Watch = watchFlag
			}
			if fs.Changed("buffer-name") {
				cfg.Run.BufferName = bufferName
			}
			if fs.Changed("timeout") {
				cfg.Lua.Timeout = config.Duration(timeout)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			scripts := args
			if len(scripts) == 0 {
				scripts = cfg.Run.Scripts
			}
			if len(scripts) == 0 {
				return errNoScripts
			}

			r := &runner{cfg: cfg, log: log, out: cmd.OutOrStdout(), scripts: scripts}
			ctx := cmd.Context()
			err = r.run(ctx)
			if !cfg.Run.Watch {
				return err
			}
			if err != nil {
				log.WithError(err).Error("run failed")
			}
			return r.watch(ctx)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&watchFlag, "watch", "w", false, "re-run the scripts when they change")
	f.StringVar(&bufferName, "buffer-name", "", "name of the scripted buffer")
	f.DurationVar(&timeout, "timeout", 0, "time limit for a script or a Lua slot call")
	return cmd
}

// runner executes the configured scripts.
type runner struct {
	cfg     *config.Config
	log     logrus.FieldLogger
	out     io.Writer
	scripts []string
	runs    int
}

// run executes every script against a new host and buffer and prints the
// final text.
func (r *runner) run(ctx context.Context) error {
	r.runs++
	log := r.log.WithFields(logrus.Fields{
		"run_id": uuid.New().String(),
		"run":    r.runs,
	})

	host, err := luabind.New(
		luabind.WithLogger(logging.WithComponent(log, "lua")),
		luabind.WithTimeout(r.cfg.Lua.Timeout.Std()),
		luabind.WithLibraries(r.cfg.Lua.Libraries...),
	)
	if err != nil {
		return err
	}
	defer host.Close()

	opts := []model.Option{model.WithText(r.cfg.Buffer.Text)}
	if r.cfg.Buffer.CRLF {
		opts = append(opts, model.WithCRLF())
	}
	buf := model.NewBuffer(r.cfg.Run.BufferName, opts...)
	if err := host.Expose("buffer", model.BufferClass, buf); err != nil {
		return err
	}
	if err := publish(host, buf); err != nil {
		return err
	}

	start := time.Now()
	for _, script := range r.scripts {
		if err := host.DoFile(ctx, script); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"buffer":  buf.ID().String(),
		"name":    buf.Name(),
		"version": buf.Version(),
		"length":  buf.Len(),
		"lines":   buf.Lines(),
		"elapsed": time.Since(start),
	}).Info("run finished")
	_, err = fmt.Fprintln(r.out, buf.Text())
	return err
}

// watch re-runs the scripts on every change until ctx is done.
func (r *runner) watch(ctx context.Context) error {
	w, err := watch.New(r.scripts, watch.WithLogger(logging.WithComponent(r.log, "watch")))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Changed().Connect(r.rerunSlot(ctx)); err != nil {
		return err
	}
	r.log.WithField("files", len(w.Files())).Info("watching for changes")
	return w.Run(ctx)
}

// rerunSlot returns rerun with ctx bound, matching the watcher's
// changed(path) contract.
func (r *runner) rerunSlot(ctx context.Context) *signal.PartialFunc {
	return signal.Partial(signal.Lambda(r.rerun, signal.Arg("ctx"), signal.Arg("path")), ctx)
}

// rerun runs the scripts again after path changed.
func (r *runner) rerun(ctx context.Context, path string) error {
	r.log.WithField("path", path).Info("script changed, running again")
	return r.run(ctx)
}
