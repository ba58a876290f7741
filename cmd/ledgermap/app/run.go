package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/ledgermap"
	"github.com/agentstation/ledgermap/internal/cmd/output"
	"github.com/agentstation/ledgermap/pkg/config"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/idmap"
	"github.com/agentstation/ledgermap/pkg/ingest"
	"github.com/agentstation/ledgermap/pkg/logging"
	"github.com/agentstation/ledgermap/pkg/metrics"
	"github.com/agentstation/ledgermap/pkg/types"
)

type runFlags struct {
	inputs      []string
	output      string
	dryRun      bool
	strategies  []string
	idmap       string
	workers     int
	metricsFile string
	timeout     time.Duration
	failFast    bool
	format      string
}

// NewRunCommand creates the run command.
func (a *App) NewRunCommand() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:     "run",
		GroupID: "core",
		Short:   "Reconcile exports into the canonical dataset",
		Long: `Run reads the configured exports plus every --input, resolves the customer
of every record and writes the canonical customers, sales, lineage and review
files together with the audit report.

Inputs have the form SOURCE/STORE/KIND=PATH, where KIND is customer or sale.
The command exits with a non-zero status when any store failed; the other
stores are still written.`,
		Example: `  ledgermap run --config pipeline.yaml --output out
  ledgermap run --config pipeline.yaml \
    --input VIXEN/loja01/customer=exports/clientes.csv \
    --input OSS/loja01/sale=exports/vendas.csv --dry-run
  ledgermap run --config pipeline.yaml --strategies EMAIL,PHONE
  ledgermap run --config pipeline.yaml --format json > report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringArrayVarP(&flags.inputs, "input", "i", nil, "input file as SOURCE/STORE/KIND=PATH (repeatable)")
	cmd.Flags().StringVar(&flags.output, "output", a.config.OutputDir, "output directory")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "compute the report without writing outputs or the ID map")
	cmd.Flags().StringSliceVar(&flags.strategies, "strategies", nil, "matching strategies to run, in priority order (default all)")
	cmd.Flags().StringVar(&flags.idmap, "idmap", a.config.IDMap, "ID map database (default from the pipeline configuration)")
	cmd.Flags().IntVar(&flags.workers, "workers", a.config.Workers, "stores processed in parallel (default from the pipeline configuration)")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", a.config.MetricsFile, "write run metrics in Prometheus text format")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "abort the run after this duration")
	cmd.Flags().BoolVar(&flags.failFast, "fail-fast", false, "stop the remaining stores after the first failure")
	cmd.Flags().StringVarP(&flags.format, "format", "f", string(output.FormatTable), "report format: table, json, yaml")

	return cmd
}

func (a *App) run(ctx context.Context, flags *runFlags) error {
	ctx = logging.WithLogger(ctx, a.logger)

	format, err := output.ParseFormat(flags.format)
	if err != nil {
		return errors.NewValidationError("format", flags.format, err.Error())
	}

	cfg, err := a.pipelineConfig()
	if err != nil {
		return err
	}

	inputs, err := parseInputs(flags.inputs)
	if err != nil {
		return err
	}
	strategies := parseStrategies(flags.strategies)

	store, err := a.openIDMap(ctx, firstNonEmpty(flags.idmap, cfg.IDMap), flags.dryRun)
	if err != nil {
		return err
	}

	opts := []ledgermap.Option{ledgermap.WithIDMap(store)}
	if flags.workers > 0 {
		opts = append(opts, ledgermap.WithWorkers(flags.workers))
	}
	var reg *metrics.Registry
	if flags.metricsFile != "" {
		reg = metrics.NewRegistry()
		opts = append(opts, ledgermap.WithMetrics(reg))
	}

	p, err := ledgermap.New(cfg, opts...)
	if err != nil {
		return err
	}

	res, runErr := p.Run(ctx,
		ledgermap.WithInputs(inputs...),
		ledgermap.WithOutputDir(flags.output),
		ledgermap.WithDryRun(flags.dryRun),
		ledgermap.WithStrategies(strategies...),
		ledgermap.WithTimeout(flags.timeout),
		ledgermap.WithFailFast(flags.failFast),
	)
	if rep := res.Report(); rep != nil {
		if err := output.WriteReport(a.out, format, rep); err != nil {
			return errors.Join(runErr, err)
		}
		if res.OutputDir != "" {
			if format == output.FormatTable {
				fmt.Fprintf(a.out, "Output written to %s\n", res.OutputDir)
			} else {
				logging.Ctx(ctx).Info().Str("dir", res.OutputDir).Msg("Output written")
			}
		}
	}

	if reg != nil && res != nil && !flags.dryRun {
		if err := reg.WriteTextfile(flags.metricsFile); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

// pipelineConfig loads the pipeline configuration named by --config.
func (a *App) pipelineConfig() (*config.Pipeline, error) {
	if a.config.PipelineFile == "" {
		return nil, errors.NewValidationError("config", "", "a pipeline configuration file is required (--config)")
	}
	return config.Load(a.config.PipelineFile)
}

// openIDMap opens the SQLite ID map. A dry run never creates the database:
// when it does not exist yet the run starts from an empty map.
func (a *App) openIDMap(ctx context.Context, path string, dryRun bool) (idmap.Store, error) {
	if dryRun {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			logging.Ctx(ctx).Debug().Str("path", path).Msg("No ID map yet, dry run starts empty")
			return idmap.NewMemoryStore(), nil
		}
	}
	store, err := idmap.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	a.track(store)
	return store, nil
}

func parseInputs(values []string) ([]ingest.Input, error) {
	inputs := make([]ingest.Input, 0, len(values))
	for _, v := range values {
		in, err := ingest.ParseInput(v)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func parseStrategies(values []string) []types.MatchMethod {
	var methods []types.MatchMethod
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		methods = append(methods, types.ParseMatchMethod(v))
	}
	return methods
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
