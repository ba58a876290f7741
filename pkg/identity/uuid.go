package identity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/agentstation/ledgermap/pkg/types"
)

// DefaultNamespace is the UUID v5 namespace of every identity minted by
// ledgermap unless the configuration names another one.
var DefaultNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/agentstation/ledgermap"))

// ParseNamespace parses a configured namespace; empty selects the default.
func ParseNamespace(s string) (uuid.UUID, error) {
	if s == "" {
		return DefaultNamespace, nil
	}
	ns, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID namespace %q: %w", s, err)
	}
	return ns, nil
}

// CustomerUUID derives the UUID of the customer minted from partition value n.
func CustomerUUID(ns uuid.UUID, source types.SourceID, store types.StoreID, n int64) string {
	return uuid.NewSHA1(ns, []byte(fmt.Sprintf("customer:%s:%s:%d", source, store, n))).String()
}

// SaleUUID derives the UUID of a consolidated sale from its uniqueness key.
func SaleUUID(ns uuid.UUID, store types.StoreID, saleNumber string) string {
	return uuid.NewSHA1(ns, []byte("sale:"+string(store)+":"+saleNumber)).String()
}
