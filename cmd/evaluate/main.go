// Command evaluate scores the catalog's models against a labelled CSV of
// sensor readings and prints accuracy, macro-F1 and macro-recall next to the
// published figures, followed by each model's confusion matrix.
//
// Usage:
//
//	go run ./cmd/evaluate -data readings.csv
//	go run ./cmd/evaluate -catalog ./catalog/catalog.yaml -data readings.csv -model "Random Forest con SMOTE"
//
// The CSV needs a header with the zone column, every catalog indicator and the
// target column. True labels are the target's severity bucket.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/couchcryptid/air-quality-classifier/internal/catalog"
	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	"github.com/couchcryptid/air-quality-classifier/internal/evaluation"
	"github.com/couchcryptid/air-quality-classifier/internal/observability"
	"github.com/couchcryptid/air-quality-classifier/internal/prediction"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	catalogPath := flag.String("catalog", "", "catalog YAML (default: embedded catalog)")
	dataPath := flag.String("data", "", "labelled CSV of readings")
	model := flag.String("model", "", "evaluate only this model")
	zoneCol := flag.String("zone-column", evaluation.DefaultZoneColumn, "CSV column holding the zone")
	target := flag.String("target", "Polución (ICA)", "CSV column bucketed into the true label")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	if *dataPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	logger := observability.NewLogger(*logLevel, "text")
	if err := run(context.Background(), os.Stdout, logger, *catalogPath, *dataPath, *model, *zoneCol, *target); err != nil {
		logger.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, logger *slog.Logger, catalogPath, dataPath, model, zoneCol, target string) error {
	cat, err := catalog.Default()
	if catalogPath != "" {
		cat, err = catalog.Load(catalogPath)
	}
	if err != nil {
		return err
	}

	disc, err := cat.Discretizer()
	if err != nil {
		return err
	}
	builder, err := cat.FeatureBuilder()
	if err != nil {
		return err
	}
	registry, err := cat.Registry(nil)
	if err != nil {
		return err
	}

	f, err := os.Open(dataPath)
	if err != nil {
		return err
	}
	defer f.Close()

	samples, err := evaluation.ReadSamples(f, evaluation.Schema{
		Zone:       zoneCol,
		Indicators: cat.Indicators,
		Target:     target,
	}, disc)
	if err != nil {
		return fmt.Errorf("read %s: %w", dataPath, err)
	}
	logger.Info("samples loaded", "count", len(samples), "path", dataPath)

	svc := prediction.New(builder, registry, cat.Labels, logger, observability.NewMetricsWithRegistry(prometheus.NewRegistry()))

	names := registry.Names()
	if model != "" {
		if _, err := registry.Lookup(model); err != nil {
			return err
		}
		names = []string{model}
	}

	results := make([]evaluation.Result, 0, len(names))
	for _, name := range names {
		res, err := evaluation.Evaluate(ctx, svc, name, cat.Labels, samples)
		if err != nil {
			return fmt.Errorf("model %q: %w", name, err)
		}
		results = append(results, res)
	}

	return report(out, registry, results, len(samples))
}

func report(out io.Writer, registry *domain.ModelRegistry, results []evaluation.Result, total int) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "model\tsamples\tfailed\taccuracy\tf1_macro\trecall_macro\tpublished accuracy\tpublished f1_macro\tpublished recall_macro\n")
	for _, res := range results {
		m, err := registry.Lookup(res.Model)
		if err != nil {
			return err
		}
		got, pub := res.Metrics(), m.Metrics
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			res.Model, total, res.Failed,
			got.Accuracy, got.F1Macro, got.RecallMacro,
			pub.Accuracy, pub.F1Macro, pub.RecallMacro)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, res := range results {
		fmt.Fprintf(out, "\n%s (rows: true label, columns: predicted)\n%s", res.Model, res.Matrix)
	}
	return nil
}
