package ingest

import (
	"fmt"
	"strings"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Input names one export file and what it contains.
type Input struct {
	Source types.SourceID     `yaml:"source"`
	Store  types.StoreID      `yaml:"store"`
	Kind   types.ResourceType `yaml:"kind"`
	Path   string             `yaml:"path"`
}

// String renders the input in the command-line form SOURCE/STORE/KIND=PATH.
func (in Input) String() string {
	return fmt.Sprintf("%s/%s/%s=%s", in.Source, in.Store, in.Kind, in.Path)
}

// Validate checks that every part of the input is present and the kind is known.
func (in Input) Validate() error {
	switch {
	case in.Source == "":
		return errors.NewValidationError("source", in.Source, "source is required")
	case in.Store == "":
		return errors.NewValidationError("store", in.Store, "store is required")
	case !in.Kind.IsValid():
		return errors.NewValidationError("kind", in.Kind, fmt.Sprintf("kind must be one of %v", types.ResourceTypes()))
	case in.Path == "":
		return errors.NewValidationError("path", in.Path, "path is required")
	}
	return nil
}

// ParseInput parses SOURCE/STORE/KIND=PATH, for example
// "OSS/loja01/sale=exports/oss_2021.csv".
func ParseInput(s string) (Input, error) {
	key, path, ok := strings.Cut(s, "=")
	if !ok {
		return Input{}, errors.NewValidationError("input", s, "expected SOURCE/STORE/KIND=PATH")
	}
	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return Input{}, errors.NewValidationError("input", s, "expected SOURCE/STORE/KIND=PATH")
	}
	in := Input{
		Source: types.ParseSourceID(parts[0]),
		Store:  types.StoreID(strings.TrimSpace(parts[1])),
		Kind:   types.ResourceType(strings.ToLower(strings.TrimSpace(parts[2]))),
		Path:   strings.TrimSpace(path),
	}
	if err := in.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}
