package ledgermap

import (
	"context"

	"github.com/agentstation/ledgermap/pkg/logging"
)

// persist writes the canonical files and saves the new ID map. The ID map
// is saved last so that a failed write leaves the previous decisions in
// place for the next run.
func (p *pipeline) persist(ctx context.Context, result *Result, outputDir string) error {
	ds := result.Dataset
	if outputDir != "" {
		if err := ds.Write(outputDir); err != nil {
			return err
		}
		result.OutputDir = outputDir
		logging.Ctx(ctx).Info().Str("dir", outputDir).Msg("Canonical dataset written")
	}
	if err := p.options.idmap.Save(ctx, ds.Snapshot); err != nil {
		return err
	}
	result.Persisted = true
	logging.Ctx(ctx).Debug().
		Int("entities", len(ds.Snapshot.Entities)).
		Int("assignments", len(ds.Snapshot.Assignments)).
		Msg("ID map saved")
	return nil
}
