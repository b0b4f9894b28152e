package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-cellflow/internal/config"
	"github.com/askiada/go-cellflow/internal/formula"
	"github.com/askiada/go-cellflow/pkg/bus"
	"github.com/askiada/go-cellflow/pkg/cell"
	"github.com/askiada/go-cellflow/pkg/pipeline/drawer"
	"github.com/askiada/go-cellflow/pkg/pipeline/measure"
	"github.com/askiada/go-cellflow/pkg/sheet"
)

const referencesFile = "references.dot"

type runOptions struct {
	*rootOptions
	watch    bool
	duration time.Duration
	drawDir  string
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "run <sheet-file>",
		Short: "Run a sheet and print every published value as a JSON line",
		Long: `Run evaluates every cell of the sheet file and prints each published value as a JSON
line until it is interrupted.

Examples:
  cellflow run sheet.yaml --for 5s
  cellflow run sheet.toml --watch --draw out/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSheet(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.watch, "watch", false, "apply the formulas changed in the sheet file while running")
	cmd.Flags().DurationVar(&opts.duration, "for", 0, "stop after this duration, run until interrupted when 0")
	cmd.Flags().StringVar(&opts.drawDir, "draw", "", "directory receiving the DOT graph of every cell pipeline and of the references")

	return cmd
}

func runSheet(ctx context.Context, out, errOut io.Writer, path string, opts *runOptions) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger, err := newLogger(errOut, opts.rootOptions, cfg)
	if err != nil {
		return err
	}

	sheetOpts := []sheet.Option{
		sheet.WithLogger(logger),
		sheet.WithDebounce(time.Duration(cfg.Debounce)),
	}

	if opts.drawDir != "" {
		err = os.MkdirAll(opts.drawDir, 0o755)
		if err != nil {
			return errors.Wrapf(err, "unable to create %s", opts.drawDir)
		}

		sheetOpts = append(sheetOpts, sheet.WithCellOptions(drawCell(opts.drawDir)))
	}

	sh, err := newSheet(cfg, sheetOpts...)
	if err != nil {
		return err
	}

	if opts.duration > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	updates, unsubscribe := sh.Subscribe()
	defer unsubscribe()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return sh.Run(groupCtx)
	})

	group.Go(func() error {
		return printUpdates(out, updates)
	})

	if opts.watch {
		group.Go(func() error {
			return watchSheet(groupCtx, path, sh, logger)
		})
	}

	err = group.Wait()
	if err != nil {
		return err
	}

	if opts.drawDir != "" {
		err = writeReferences(sh, filepath.Join(opts.drawDir, referencesFile))
		if err != nil {
			return err
		}
	}

	return nil
}

func newSheet(cfg config.Sheet, opts ...sheet.Option) (*sheet.Sheet, error) {
	sh, err := sheet.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create sheet")
	}

	for _, c := range cfg.Cells {
		err = sh.AddCell(c.ID, c.Formula)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add cell %s", c.ID)
		}
	}

	return sh, nil
}

// printUpdates writes the updates until the stream is closed.
func printUpdates(out io.Writer, updates <-chan bus.Update[formula.Value]) error {
	enc := json.NewEncoder(out)

	for update := range updates {
		err := enc.Encode(update)
		if err != nil {
			return errors.Wrap(err, "unable to print update")
		}
	}

	return nil
}

// drawCell measures the pipeline of every cell and draws it in dir once the cell stops.
func drawCell(dir string) func(id string) []cell.Option[formula.Value] {
	return func(id string) []cell.Option[formula.Value] {
		msr := measure.NewDefaultMeasure()
		name := strings.NewReplacer("/", "_", string(os.PathSeparator), "_").Replace(id) + ".dot"

		return []cell.Option[formula.Value]{
			cell.WithMeasure[formula.Value](msr),
			cell.WithPipelineOptions[formula.Value](drawer.PipelineDrawer(drawer.NewDOTDrawer(filepath.Join(dir, name)), msr)),
		}
	}
}

func writeReferences(sh *sheet.Sheet, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}
	defer file.Close()

	err = sh.WriteReferences(file)
	if err != nil {
		return err
	}

	return file.Close()
}

// applySheet pushes the formulas of cfg that differ from the running sheet. New cells are added.
func applySheet(ctx context.Context, sh *sheet.Sheet, cfg config.Sheet, logger *slog.Logger) error {
	known := make(map[string]struct{})

	for _, id := range sh.IDs() {
		known[id] = struct{}{}
	}

	formulas := cfg.Formulas()

	for _, c := range cfg.Cells {
		id := cell.NormalizeID(c.ID)
		delete(known, id)

		current, err := sh.Formula(id)
		if errors.Is(err, sheet.ErrUnknownCell) {
			logger.Info("cell added", slog.String("cell", id))

			err = sh.AddCell(id, formulas[id])
			if err != nil {
				return errors.Wrapf(err, "unable to add cell %s", id)
			}

			continue
		}

		if err != nil {
			return err
		}

		if current == formulas[id] {
			continue
		}

		logger.Info("formula changed", slog.String("cell", id), slog.String("formula", formulas[id]))

		err = sh.SetFormula(ctx, id, formulas[id])
		if err != nil {
			return errors.Wrapf(err, "unable to set formula of %s", id)
		}
	}

	for id := range known {
		logger.Warn("removed cells keep running", slog.String("cell", id))
	}

	return nil
}
