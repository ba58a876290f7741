//nolint:revive // Package types provides common type definitions
package types

import (
	"slices"
	"strings"
)

// SourceID identifies a legacy system export in the reconciliation pipeline.
type SourceID string

// String returns the string representation of a source ID.
func (id SourceID) String() string {
	return string(id)
}

// Known legacy systems, listed from most to least authoritative.
const (
	// VixenID identifies the VIXEN point-of-sale/CRM export, the reference
	// source for pre-existing customer identifiers.
	VixenID SourceID = "VIXEN"

	// OSSID identifies the service-order ("ordem de serviço") export.
	OSSID SourceID = "OSS"

	// CXSID identifies the cash-register movement extraction sheets.
	CXSID SourceID = "CXS"
)

// SourceIDs returns all built-in source identifiers in authority order.
func SourceIDs() []SourceID {
	return []SourceID{
		VixenID,
		OSSID,
		CXSID,
	}
}

// IsValid returns true if the SourceID is one of the built-in constants.
func (id SourceID) IsValid() bool {
	return slices.Contains(SourceIDs(), id)
}

// ParseSourceID upper-cases and trims s.
func ParseSourceID(s string) SourceID {
	return SourceID(strings.ToUpper(strings.TrimSpace(s)))
}

// StoreID identifies one physical store. Every store is processed as an
// independent unit with its own ID partitions.
type StoreID string

// String returns the string representation of a store ID.
func (id StoreID) String() string {
	return string(id)
}
