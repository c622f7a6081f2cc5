// Command reportgen builds the evaluation report for a classification run:
// a text summary with the headline metrics, the best and worst performing
// subjects per confusion category, and ROC/PR curve plots.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mhartwell/clinimetrics/dataset"
	"github.com/mhartwell/clinimetrics/report"
	"github.com/mhartwell/clinimetrics/subjectlog"
)

type options struct {
	valCSV     string
	testCSV    string
	hue        string
	k          int
	datasetDir string
	configPath string
	outDir     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "reportgen",
		Short: "Build an evaluation report from per-subject metrics files",
		Long: "reportgen reads the per-subject metrics CSV files of a validation and a " +
			"test split, derives the decision threshold from the validation split, and " +
			"writes a metrics summary, a best/worst subject listing and ROC/PR plots.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(afero.NewOsFs(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.valCSV, "val", "", "validation split metrics CSV (required)")
	cmd.Flags().StringVar(&opts.testCSV, "test", "", "test split metrics CSV (required)")
	cmd.Flags().StringVar(&opts.hue, "hue", subjectlog.DefaultHue, "prediction target to report on")
	cmd.Flags().IntVar(&opts.k, "k", 5, "number of best/worst subjects to list per category")
	cmd.Flags().StringVar(&opts.datasetDir, "dataset", "", "dataset directory for image path and label lookups (optional)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "dataset column configuration YAML (optional)")
	cmd.Flags().StringVar(&opts.outDir, "out", "report", "output directory")
	cobra.CheckErr(cmd.MarkFlagRequired("val"))
	cobra.CheckErr(cmd.MarkFlagRequired("test"))
	return cmd
}

func run(fs afero.Fs, opts options) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := fs.MkdirAll(opts.outDir, 0o755); err != nil {
		return err
	}

	val, err := report.ReadSplit(fs, opts.valCSV, opts.hue)
	if err != nil {
		return err
	}
	test, err := report.ReadSplit(fs, opts.testCSV, opts.hue)
	if err != nil {
		return err
	}
	logger.Info("loaded metrics files",
		zap.String("hue", opts.hue),
		zap.Int("val_subjects", len(val.SubjectIDs)),
		zap.Int("test_subjects", len(test.SubjectIDs)))

	summaryPath := filepath.Join(opts.outDir, "report.txt")
	f, err := fs.Create(summaryPath)
	if err != nil {
		return err
	}
	defer f.Close()
	out := io.MultiWriter(os.Stdout, f)

	if err := report.WriteSummary(out, val, test); err != nil {
		return err
	}

	results, err := report.KBestAndWorstPerforming(fs, opts.valCSV, opts.testCSV, opts.k, opts.hue)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	report.WriteTopK(out, results, opts.k)

	if opts.datasetDir != "" {
		if err := writeSubjectDetails(fs, out, results, opts); err != nil {
			return err
		}
	}

	rocPath := filepath.Join(opts.outDir, "roc.png")
	if err := report.SaveROCCurve(fs, test, "ROC: "+opts.hue, rocPath); err != nil {
		return err
	}
	prPath := filepath.Join(opts.outDir, "pr.png")
	if err := report.SavePRCurve(fs, test, "PR: "+opts.hue, prPath); err != nil {
		return err
	}
	logger.Info("report written",
		zap.String("summary", summaryPath),
		zap.String("roc", rocPath),
		zap.String("pr", prPath))
	return nil
}

// writeSubjectDetails resolves each listed subject against the dataset table
// and prints its image files and ground-truth class names.
func writeSubjectDetails(fs afero.Fs, out io.Writer, results *report.Results, opts options) error {
	cfg := dataset.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := dataset.LoadConfig(fs, opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	table, err := dataset.LoadTable(fs, opts.datasetDir, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	categories := []struct {
		name string
		rows []subjectlog.PredictionRecord
	}{
		{"False positives", results.FalsePositives},
		{"False negatives", results.FalseNegatives},
		{"True positives", results.TruePositives},
		{"True negatives", results.TrueNegatives},
	}
	for _, cat := range categories {
		fmt.Fprintf(out, "%s\n", cat.name)
		for _, row := range cat.rows {
			labels, err := table.LabelNames(row.Patient)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  ID %s Labels: %v\n", row.Patient, labels)
			for _, path := range table.ImagePaths(row.Patient) {
				fmt.Fprintf(out, "    %s\n", path)
			}
		}
	}
	return nil
}
