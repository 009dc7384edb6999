package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"survival/pkg/data"
	"survival/pkg/survival"
)

type transformOptions struct {
	preview int
	outPath string
}

// NewTransformCommand creates the transform command.
func NewTransformCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &transformOptions{}

	cmd := &cobra.Command{
		Use:   "transform [data-file]",
		Short: "Apply the fitted preprocessing steps without predicting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(rootOpts, opts, cmd, args)
		},
	}

	cmd.Flags().IntVar(&opts.preview, "preview", 5, "number of engineered rows to print")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "write the engineered table to a Parquet file")

	return cmd
}

func runTransform(rootOpts *RootOptions, opts *transformOptions, cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(rootOpts, cmd)
	if err != nil {
		return err
	}
	path := cfg.Data.Path
	if len(args) == 1 {
		path = args[0]
	}

	p, _, err := survival.Load(cfg, logger)
	if err != nil {
		return err
	}
	tbl, err := survival.LoadDataFrom(cmd.Context(), cfg, path)
	if err != nil {
		return err
	}
	x, y, err := survival.Features(cfg, tbl)
	if err != nil {
		return err
	}
	engineered, err := p.Transform(x)
	if err != nil {
		return err
	}
	logger.Info("rows transformed", "path", path, "rows", engineered.NumRows(), "features", engineered.NumCols())

	if opts.preview > 0 {
		if err := previewData(cmd.OutOrStdout(), engineered, y, opts.preview); err != nil {
			return err
		}
	}
	if opts.outPath != "" {
		if y != nil {
			if err := engineered.Set(cfg.Data.Target, data.Nums(y...)); err != nil {
				return err
			}
		}
		if err := data.WriteParquet(opts.outPath, engineered); err != nil {
			return err
		}
		logger.Info("engineered table written", "path", opts.outPath)
	}
	return nil
}

// previewData prints the first n rows of t with headers, plus the label
// column when y is set.
func previewData(w io.Writer, t *data.Table, y []float64, n int) error {
	n = min(n, t.NumRows())
	names := t.Names()
	X, err := t.Matrix(names)
	if err != nil {
		return err
	}

	for _, h := range names {
		fmt.Fprintf(w, "%-15s", h)
	}
	if y != nil {
		fmt.Fprintf(w, "%-15s", "Label")
	}
	fmt.Fprintln(w)

	for i := 0; i < n; i++ {
		for _, val := range X[i] {
			fmt.Fprintf(w, "%-15.6f", val)
		}
		if y != nil {
			fmt.Fprintf(w, "%-15.6f", y[i])
		}
		fmt.Fprintln(w)
	}
	return nil
}
