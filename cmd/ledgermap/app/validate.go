package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/ledgermap/pkg/types"
)

// NewValidateCommand creates the validate command.
func (a *App) NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		GroupID: "core",
		Short:   "Check a pipeline configuration",
		Long: `Validate loads the pipeline configuration, checks the partitions for overlaps,
the source formats, schema extensions and matching strategies, and verifies
that every configured input has an ID partition for its store.`,
		Example: `  ledgermap validate --config pipeline.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.validate()
		},
	}
}

func (a *App) validate() error {
	cfg, err := a.pipelineConfig()
	if err != nil {
		return err
	}
	set, err := cfg.PartitionSet()
	if err != nil {
		return err
	}

	sources := make(map[types.StoreID][]types.SourceID)
	for _, in := range cfg.Inputs {
		sources[in.Store] = append(sources[in.Store], in.Source)
	}
	for _, store := range cfg.Stores() {
		if err := set.Require(store, sources[store]); err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Configuration OK: %s\n", a.config.PipelineFile)
	fmt.Fprintf(a.out, "Partitions: %d\n", len(set.List()))
	for _, p := range set.List() {
		fmt.Fprintf(a.out, "  %s\n", p)
	}
	fmt.Fprintf(a.out, "Inputs: %d\n", len(cfg.Inputs))
	for _, in := range cfg.Inputs {
		fmt.Fprintf(a.out, "  %s\n", in)
	}
	return nil
}
