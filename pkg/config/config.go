// Package config loads the pipeline configuration file: per-source file
// formats, schema alias extensions, ID partitions, inputs, matching and
// normalization settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"github.com/agentstation/ledgermap/pkg/authority"
	"github.com/agentstation/ledgermap/pkg/constants"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/identity"
	"github.com/agentstation/ledgermap/pkg/ingest"
	"github.com/agentstation/ledgermap/pkg/matcher"
	"github.com/agentstation/ledgermap/pkg/normalize"
	"github.com/agentstation/ledgermap/pkg/schema"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Pipeline is the content of a pipeline configuration file.
type Pipeline struct {
	// Namespace seeds the deterministic UUIDs. Changing it changes every
	// identity, so it is fixed once the first ID map is written.
	Namespace string `yaml:"namespace,omitempty"`

	Workers int    `yaml:"workers,omitempty"`
	IDMap   string `yaml:"idmap,omitempty"`

	Sources     map[types.SourceID]ingest.Format `yaml:"sources,omitempty"`
	Schema      []SchemaExtension                `yaml:"schema,omitempty"`
	Partitions  []identity.Partition             `yaml:"partitions"`
	Inputs      []ingest.Input                   `yaml:"inputs,omitempty"`
	Matching    Matching                         `yaml:"matching,omitempty"`
	Normalize   Normalize                        `yaml:"normalize,omitempty"`
	Authorities []authority.Field                `yaml:"authorities,omitempty"`
}

// SchemaExtension adds accepted column names for one export variant.
type SchemaExtension struct {
	Source  types.SourceID     `yaml:"source"`
	Kind    types.ResourceType `yaml:"kind"`
	Aliases schema.Aliases     `yaml:"aliases"`
}

// Matching selects the strategies to run.
type Matching struct {
	Strategies []types.MatchMethod `yaml:"strategies,omitempty"`
}

// Normalize holds the value cleaning settings. Empty lists fall back to the
// built-in defaults.
type Normalize struct {
	DateFormats        []string       `yaml:"date_formats,omitempty"`
	SaleNumberPrefixes []string       `yaml:"sale_number_prefixes,omitempty"`
	NoCustomerMarkers  []string       `yaml:"no_customer_markers,omitempty"`
	EmailBlacklist     EmailBlacklist `yaml:"email_blacklist,omitempty"`
}

// EmailBlacklist lists placeholder e-mails added to the built-in ones.
type EmailBlacklist struct {
	Addresses  []string `yaml:"addresses,omitempty"`
	LocalParts []string `yaml:"local_parts,omitempty"`
	Domains    []string `yaml:"domains,omitempty"`
}

// Default returns a configuration with no partitions or inputs.
func Default() *Pipeline {
	return &Pipeline{
		Workers: constants.DefaultWorkers,
		IDMap:   constants.DefaultIDMapPath,
		Sources: make(map[types.SourceID]ingest.Format),
	}
}

// Load reads and validates the configuration file at path. Unknown keys
// are rejected. Relative input paths are taken from the file's directory.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, in := range p.Inputs {
		if !filepath.IsAbs(in.Path) {
			p.Inputs[i].Path = filepath.Join(dir, in.Path)
		}
	}
	return p, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Pipeline, error) {
	p := Default()
	if err := yaml.UnmarshalWithOptions(data, p, yaml.Strict()); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) applyDefaults() {
	if p.Workers <= 0 {
		p.Workers = constants.DefaultWorkers
	}
	if p.IDMap == "" {
		p.IDMap = constants.DefaultIDMapPath
	}
	if p.Sources == nil {
		p.Sources = make(map[types.SourceID]ingest.Format)
	}
}

// Validate reports every problem found, joined into one error.
func (p *Pipeline) Validate() error {
	var errs []error
	add := func(component string, err error) {
		switch {
		case err == nil:
		case errors.IsConfiguration(err):
			errs = append(errs, err)
		default:
			errs = append(errs, errors.NewConfigError(component, err.Error(), err))
		}
	}

	if p.Workers < 1 {
		add("workers", fmt.Errorf("workers must be at least 1, got %d", p.Workers))
	}
	if _, err := p.NamespaceUUID(); err != nil {
		add("namespace", err)
	}
	for _, id := range sortedSources(p.Sources) {
		if !id.IsValid() {
			add("sources", fmt.Errorf("unknown source %q (valid: %v)", id, types.SourceIDs()))
			continue
		}
		add("sources."+string(id), p.Sources[id].Validate())
	}
	if _, err := p.Table(); err != nil {
		add("schema", err)
	}
	if _, err := p.PartitionSet(); err != nil {
		add("partitions", err)
	}
	if _, err := p.Matcher(); err != nil {
		add("matching", err)
	}
	for i, in := range p.Inputs {
		if err := in.Validate(); err != nil {
			add(fmt.Sprintf("inputs[%d]", i), err)
		}
	}
	for i, a := range p.Authorities {
		if a.Path == "" || !a.Source.IsValid() {
			add(fmt.Sprintf("authorities[%d]", i), fmt.Errorf("authority needs a path and a known source, got %q/%q", a.Path, a.Source))
		}
	}
	return errors.Join(errs...)
}

// Format returns the file format of source.
func (p *Pipeline) Format(source types.SourceID) ingest.Format {
	f, ok := p.Sources[source]
	if !ok {
		return ingest.DefaultFormat()
	}
	def := ingest.DefaultFormat()
	if f.Delimiter == "" {
		f.Delimiter = def.Delimiter
	}
	if f.Encoding == "" {
		f.Encoding = def.Encoding
	}
	return f
}

// Table returns the built-in alias table extended with the configured
// aliases, validated.
func (p *Pipeline) Table() (*schema.Table, error) {
	t := schema.DefaultTable()
	for _, ext := range p.Schema {
		t.Extend(ext.Source, ext.Kind, ext.Aliases)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// PartitionSet returns the validated ID partitions.
func (p *Pipeline) PartitionSet() (*identity.Set, error) {
	return identity.NewSet(p.Partitions...)
}

// Matcher returns a matcher running the configured strategies.
func (p *Pipeline) Matcher() (*matcher.Matcher, error) {
	strategies, err := matcher.Select(p.Matching.Strategies)
	if err != nil {
		return nil, err
	}
	return matcher.New(strategies...), nil
}

// Authority returns the field authorities.
func (p *Pipeline) Authority() authority.Authority {
	return authority.New(p.Authorities...)
}

// NamespaceUUID returns the UUID namespace.
func (p *Pipeline) NamespaceUUID() (uuid.UUID, error) {
	if p.Namespace == "" {
		return identity.DefaultNamespace, nil
	}
	return identity.ParseNamespace(p.Namespace)
}

// Blacklist returns the built-in e-mail blacklist extended with the
// configured entries.
func (p *Pipeline) Blacklist() *normalize.Blacklist {
	bl := p.Normalize.EmailBlacklist
	return normalize.NewBlacklist(
		append(slices.Clone(normalize.DefaultBlacklistAddresses), bl.Addresses...),
		append(slices.Clone(normalize.DefaultBlacklistLocalParts), bl.LocalParts...),
		bl.Domains,
	)
}

// ExtractOptions returns the extractor settings.
func (p *Pipeline) ExtractOptions() []ingest.ExtractOption {
	opts := []ingest.ExtractOption{ingest.WithBlacklist(p.Blacklist())}
	if len(p.Normalize.DateFormats) > 0 {
		opts = append(opts, ingest.WithDateFormats(p.Normalize.DateFormats))
	}
	if len(p.Normalize.SaleNumberPrefixes) > 0 {
		opts = append(opts, ingest.WithSaleNumberPrefixes(p.Normalize.SaleNumberPrefixes))
	}
	if len(p.Normalize.NoCustomerMarkers) > 0 {
		opts = append(opts, ingest.WithNoCustomerMarkers(p.Normalize.NoCustomerMarkers))
	}
	return opts
}

// Stores returns the stores named by the inputs, in first-appearance order.
func (p *Pipeline) Stores() []types.StoreID {
	var stores []types.StoreID
	for _, in := range p.Inputs {
		if !slices.Contains(stores, in.Store) {
			stores = append(stores, in.Store)
		}
	}
	return stores
}

func sortedSources(m map[types.SourceID]ingest.Format) []types.SourceID {
	ids := make([]types.SourceID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
