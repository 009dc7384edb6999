package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"survival/pkg/model"
	"survival/pkg/report"
	"survival/pkg/survival"
)

type scoreOptions struct {
	dbPath   string
	plotPath string
	bins     int
}

// NewScoreCommand creates the score command.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score [data-file]",
		Short: "Predict survival with the persisted pipeline",
		Long: `Restore the fitted pipeline from the config and artifacts, predict the
rows of data-file (data.path when omitted) and report metrics when the file
carries the target column. Predictions can be stored in SQLite with --db and
their distribution plotted with --plot.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(rootOpts, opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite database to store predictions in")
	cmd.Flags().StringVar(&opts.plotPath, "plot", "", "write a probability histogram (png, svg or pdf)")
	cmd.Flags().IntVar(&opts.bins, "bins", report.DefaultBins, "histogram bins")

	return cmd
}

func runScore(rootOpts *RootOptions, opts *scoreOptions, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup(rootOpts, cmd)
	if err != nil {
		return err
	}
	path := cfg.Data.Path
	if len(args) == 1 {
		path = args[0]
	}

	p, modelRun, err := survival.Load(cfg, logger)
	if err != nil {
		return err
	}
	tbl, err := survival.LoadDataFrom(ctx, cfg, path)
	if err != nil {
		return err
	}
	x, y, err := survival.Features(cfg, tbl)
	if err != nil {
		return err
	}
	proba, err := p.PredictProba(x)
	if err != nil {
		return err
	}

	run := report.Run{
		ID:        uuid.NewString(),
		Source:    path,
		Threshold: cfg.Model.Threshold,
	}
	logger = logger.With("score_id", run.ID, "model_run", modelRun)
	logger.Info("rows scored", "path", path, "rows", len(proba))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scored %d rows with model %s\n", len(proba), modelRun)
	if y != nil {
		r := model.Evaluate(y, proba, cfg.Model.Threshold)
		run.Score = &r
		printReport(out, "score", r)
	}

	if opts.dbPath != "" {
		store, err := report.Open(ctx, opts.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveRun(ctx, run, report.NewPredictions(proba, cfg.Model.Threshold)); err != nil {
			return err
		}
		logger.Info("predictions stored", "db", opts.dbPath)
		fmt.Fprintf(out, "stored run %s in %s\n", run.ID, opts.dbPath)
	}
	if opts.plotPath != "" {
		if err := report.PlotProbabilities(proba, cfg.Model.Threshold, opts.bins, opts.plotPath); err != nil {
			return fmt.Errorf("plotting probabilities: %w", err)
		}
		logger.Info("histogram written", "path", opts.plotPath)
	}
	return nil
}
