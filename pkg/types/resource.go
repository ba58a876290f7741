package types

// ResourceType identifies the kind of record carried by an input file.
// Customer files feed the entity pool; sale files feed the deduplicator.
type ResourceType string

const (
	// ResourceTypeCustomer represents a customer record (one person per row).
	ResourceTypeCustomer ResourceType = "customer"

	// ResourceTypeSale represents a sale line (one payment or service line per row).
	ResourceTypeSale ResourceType = "sale"
)

// String returns the string representation of a resource type.
func (rt ResourceType) String() string {
	return string(rt)
}

// ResourceTypes returns all known resource types.
func ResourceTypes() []ResourceType {
	return []ResourceType{ResourceTypeCustomer, ResourceTypeSale}
}

// IsValid reports whether rt is a known resource type.
func (rt ResourceType) IsValid() bool {
	return rt == ResourceTypeCustomer || rt == ResourceTypeSale
}
