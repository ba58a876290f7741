// Package provenance provides field-level tracking of where canonical
// customer attributes came from and which values lost to a more
// authoritative source.
package provenance

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/ledgermap/pkg/constants"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Provenance records one value offered for a field.
type Provenance struct {
	Source        types.SourceID `yaml:"source"`
	Store         types.StoreID  `yaml:"store"`
	RecordID      string         `yaml:"record_id"` // source record that offered the value
	Field         string         `yaml:"field"`
	Value         any            `yaml:"value"`
	Priority      int            `yaml:"priority"` // authority of the source for this field
	Applied       bool           `yaml:"applied"`  // false when a more authoritative value was kept
	Reason        string         `yaml:"reason,omitempty"`
	PreviousValue any            `yaml:"previous_value,omitempty"`
}

// Map tracks provenance for multiple resources.
type Map map[string][]Provenance // key is "resourceType:resourceID:field"

// Tracker manages provenance tracking during resolution.
type Tracker interface {
	// Track records provenance for a field
	Track(resourceType types.ResourceType, resourceID string, field string, history Provenance)

	// FindByField retrieves provenance for a specific field
	FindByField(resourceType types.ResourceType, resourceID string, field string) []Provenance

	// FindByResource retrieves all provenance for a resource
	FindByResource(resourceType types.ResourceType, resourceID string) map[string][]Provenance

	// Map returns the complete provenance map
	Map() Map

	// Merge appends every entry of m
	Merge(m Map)

	// Clear removes all provenance data
	Clear()
}

// tracker is the default implementation. It is owned by one store run.
type tracker struct {
	provenance Map
	enabled    bool
}

// NewTracker creates a new provenance tracker.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

// Track records provenance for a field.
func (p *tracker) Track(resourceType types.ResourceType, resourceID string, field string, history Provenance) {
	if !p.enabled {
		return
	}
	if history.Field == "" {
		history.Field = field
	}
	key := makeKey(string(resourceType), resourceID, field)
	p.provenance[key] = append(p.provenance[key], history)
}

// FindByField retrieves provenance for a specific field.
func (p *tracker) FindByField(resourceType types.ResourceType, resourceID string, field string) []Provenance {
	if !p.enabled {
		return nil
	}
	return p.provenance[makeKey(string(resourceType), resourceID, field)]
}

// FindByResource retrieves all provenance for a resource.
func (p *tracker) FindByResource(resourceType types.ResourceType, resourceID string) map[string][]Provenance {
	if !p.enabled {
		return nil
	}

	result := make(map[string][]Provenance)
	prefix := fmt.Sprintf("%s:%s:", string(resourceType), resourceID)
	for key, info := range p.provenance {
		if field, found := strings.CutPrefix(key, prefix); found {
			result[field] = info
		}
	}
	return result
}

// Map returns the complete provenance map.
func (p *tracker) Map() Map {
	if !p.enabled {
		return nil
	}

	// Return a copy to prevent external modification
	result := make(Map)
	for k, v := range p.provenance {
		result[k] = append([]Provenance{}, v...)
	}
	return result
}

// Merge appends the entries of m in key order.
func (p *tracker) Merge(m Map) {
	if !p.enabled {
		return
	}
	for _, k := range m.Keys() {
		p.provenance[k] = append(p.provenance[k], m[k]...)
	}
}

// Clear removes all provenance data.
func (p *tracker) Clear() {
	p.provenance = make(Map)
}

func makeKey(resourceType string, resourceID string, field string) string {
	return fmt.Sprintf("%s:%s:%s", resourceType, resourceID, field)
}

// Keys returns the map keys sorted.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Report summarizes provenance per resource.
type Report struct {
	Resources map[string]ResourceProvenance // key is "resourceType:resourceID"
}

// ResourceProvenance contains provenance for a single resource.
type ResourceProvenance struct {
	Type   types.ResourceType
	ID     string
	Fields map[string]Field
}

// Field contains provenance history for a single field.
type Field struct {
	Current   Provenance   // last applied value
	History   []Provenance // every offered value in order
	Conflicts []Provenance // values rejected in favour of a more authoritative source
}

// GenerateReport creates a provenance report from a Map.
func GenerateReport(provenance Map) *Report {
	report := &Report{
		Resources: make(map[string]ResourceProvenance),
	}

	for key, infos := range provenance {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		resourceKey := parts[0] + ":" + parts[1]

		resource, exists := report.Resources[resourceKey]
		if !exists {
			resource = ResourceProvenance{
				Type:   types.ResourceType(parts[0]),
				ID:     parts[1],
				Fields: make(map[string]Field),
			}
		}

		fieldProv := Field{History: infos}
		for _, info := range infos {
			if info.Applied {
				fieldProv.Current = info
			} else {
				fieldProv.Conflicts = append(fieldProv.Conflicts, info)
			}
		}
		resource.Fields[parts[2]] = fieldProv
		report.Resources[resourceKey] = resource
	}

	return report
}

// ConflictCount returns how many offered values were rejected.
func (r *Report) ConflictCount() int {
	n := 0
	for _, res := range r.Resources {
		for _, f := range res.Fields {
			n += len(f.Conflicts)
		}
	}
	return n
}

// String generates a string representation of the provenance report.
func (r *Report) String() string {
	var sb strings.Builder

	sb.WriteString("Provenance Report\n")
	sb.WriteString("=================\n\n")

	resourceKeys := make([]string, 0, len(r.Resources))
	for key := range r.Resources {
		resourceKeys = append(resourceKeys, key)
	}
	sort.Strings(resourceKeys)

	for _, key := range resourceKeys {
		resource := r.Resources[key]
		sb.WriteString(fmt.Sprintf("%s: %s\n", resource.Type, resource.ID))
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n")

		var fieldKeys []string
		for field := range resource.Fields {
			fieldKeys = append(fieldKeys, field)
		}
		sort.Strings(fieldKeys)

		for _, field := range fieldKeys {
			fieldProv := resource.Fields[field]
			sb.WriteString(fmt.Sprintf("  %s: %v (from %s %s)\n",
				field, fieldProv.Current.Value, fieldProv.Current.Source, fieldProv.Current.RecordID))
			for _, c := range fieldProv.Conflicts {
				sb.WriteString(fmt.Sprintf("    rejected %v from %s %s\n", c.Value, c.Source, c.RecordID))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// ProvenanceFile represents a provenance file stored on disk.
//
//nolint:revive // Name is intentionally descriptive for external clarity
type ProvenanceFile struct {
	Provenance Map `yaml:"provenance"`
}

// Save writes m as YAML to path.
func Save(path string, m Map) error {
	data, err := yaml.MarshalWithOptions(ProvenanceFile{Provenance: m}, yaml.UseLiteralStyleIfMultiline(true))
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Load reads provenance data from a YAML file.
// Returns nil, nil if the file doesn't exist (not an error).
func Load(path string) (*ProvenanceFile, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the output directory
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var pf ProvenanceFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &pf, nil
}
