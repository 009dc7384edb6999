package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"survival/pkg/config"
	"survival/pkg/dataprep"
	"survival/pkg/model"
	"survival/pkg/survival"
)

type trainOptions struct {
	dataPath     string
	fittedConfig string
	folds        int
}

// NewTrainCommand creates the train command.
func NewTrainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &trainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the pipeline and persist its artifacts",
		Long: `Split the dataset, fit the preprocessing steps and the classifier on the
training part, report accuracy on both parts and write the scaler and model
artifacts. The learned medians, frequent labels and dummy columns are written
to --fitted-config, which the score and transform commands read back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.dataPath, "data", "", "override data.path")
	cmd.Flags().StringVar(&opts.fittedConfig, "fitted-config", "fitted.yaml", "where to write the config with learned parameters")
	cmd.Flags().IntVar(&opts.folds, "folds", 0, "also run k-fold cross-validation on the training part (0 disables)")

	return cmd
}

func runTrain(rootOpts *RootOptions, opts *trainOptions, cmd *cobra.Command) error {
	cfg, logger, err := setup(rootOpts, cmd)
	if err != nil {
		return err
	}
	if opts.dataPath != "" {
		cfg.Data.Path = opts.dataPath
	}

	tbl, err := survival.LoadData(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded", "path", cfg.Data.Path, "rows", tbl.NumRows(), "columns", tbl.NumCols())
	for _, p := range dataprep.Profile(tbl) {
		logger.Debug("column profile",
			"column", p.Name,
			"missing", p.Missing,
			"missing_ratio", p.MissingRatio,
			"numeric", p.Numeric,
			"levels", p.Levels,
			"mean", p.Mean,
			"std", p.Std,
			"min", p.Min,
			"p25", p.P25,
			"median", p.Median,
			"p75", p.P75,
			"max", p.Max,
			"skew", p.Skew,
		)
	}

	res, err := survival.Train(cfg, tbl, logger)
	if err != nil {
		return err
	}
	if err := survival.SaveArtifacts(cfg, res); err != nil {
		return err
	}
	cfg.Fitted = res.Fitted
	if err := cfg.Save(opts.fittedConfig); err != nil {
		return err
	}
	logger.Info("artifacts written",
		"run_id", res.RunID,
		"scaler", cfg.Artifacts.Scaler,
		"model", cfg.Artifacts.Model,
		"fitted_config", opts.fittedConfig,
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n", res.RunID)
	printReport(out, "train", res.Train)
	printReport(out, "test", res.Test)

	if opts.folds > 0 {
		if err := crossValidate(out, cfg, res, opts.folds, logger); err != nil {
			return err
		}
	}
	return nil
}

func crossValidate(out io.Writer, cfg *config.Config, res *survival.Result, k int, logger *slog.Logger) error {
	scores, err := survival.CrossValidate(cfg, res.Split.XTrain, res.Split.YTrain, k, logger)
	if err != nil {
		return fmt.Errorf("cross-validation: %w", err)
	}
	mean, std := stat.MeanStdDev(scores, nil)
	fmt.Fprintf(out, "cv accuracy (%d folds): %.4f ± %.4f\n", k, mean, std)
	return nil
}

func printReport(w io.Writer, part string, r model.Report) {
	fmt.Fprintf(w, "%s accuracy: %.4f  precision: %.4f  recall: %.4f  f1: %.4f  log loss: %.4f\n",
		part, r.Accuracy, r.Precision, r.Recall, r.F1, r.LogLoss)
	c := r.Confusion
	fmt.Fprintf(w, "%s confusion: tp=%d fp=%d tn=%d fn=%d\n", part, c.TP, c.FP, c.TN, c.FN)
}
