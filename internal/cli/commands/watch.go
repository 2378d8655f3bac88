package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/worker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Trace    bool
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-evaluate a file every time it changes",
		Long: `Evaluate a file as a group of lines and evaluate it again whenever it is
saved. Only the result of the latest save is shown; evaluations of older
contents are discarded.`,
		Example: `  leapcalc watch notes.calc --trace`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Trace, "trace", "t", false, "Show the step-by-step trace")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 0, "Delay after the last change before re-evaluating (default from config)")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, path string, opts *WatchOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	logger := cmdCtx.Logger

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("cannot watch %s: %w", path, err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = cmdCtx.Cfg.Watch.Debounce
	}

	evaluator := worker.New(worker.Config{
		Options: cmdCtx.Options(),
		Prelude: cmdCtx.Prelude,
		Logger:  logger,
	})
	results := evaluator.Subscribe()
	defer evaluator.Close()

	submit := func() {
		data, err := os.ReadFile(abs)
		if err != nil {
			logger.Error("failed to read watched file", slog.String("file", abs), slog.Any("error", err))
			return
		}
		rev := evaluator.Submit(string(data))
		logger.Debug("file submitted", slog.String("file", abs), slog.Uint64("revision", rev))
	}

	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return watchFile(egctx, abs, debounce, logger, submit)
	})

	eg.Go(func() error {
		for {
			select {
			case <-egctx.Done():
				return nil
			case res, ok := <-results:
				if !ok {
					return nil
				}
				renderWatchResult(cmdCtx.Renderer, path, res, opts.Trace)
			}
		}
	})

	submit()
	return eg.Wait()
}

func renderWatchResult(r *output.Renderer, path string, res worker.Result, trace bool) {
	if r.IsTTY() && r.EffectiveMode() == output.ModeText {
		r.Printf("\033[H\033[2J")
	}
	if r.EffectiveMode() == output.ModeText || r.EffectiveMode() == output.ModeMarkdown {
		r.Header(2, fmt.Sprintf("%s (revision %d, %s)", path, res.Revision, res.Elapsed.Round(time.Microsecond)))
	}
	out := output.NewEvalOutput(res.Input, res.Group, res.Err)
	if err := r.Evaluation(out, trace); err != nil {
		r.Error(err.Error())
	}
}

// watchFile calls onChange once changes to path have settled for debounce.
// The parent directory is watched so that editors replacing the file by
// rename are seen.
func watchFile(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	// Debounce timer
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				logger.Debug("file changed, re-evaluating", "file", event.Name)
				onChange()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
