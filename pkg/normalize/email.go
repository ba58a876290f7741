package normalize

import "strings"

// EmailAddress is a normalized e-mail and whether it may be used for matching.
type EmailAddress struct {
	Address   string
	Matchable bool
}

// Blacklist lists placeholder e-mails that must never be used to match
// customers: exact addresses, local parts such as "naotem", and generic
// store domains. Entries are compared after normalization.
type Blacklist struct {
	addresses  map[string]struct{}
	localParts map[string]struct{}
	domains    map[string]struct{}
}

// DefaultBlacklistAddresses are placeholder addresses seen in the exports.
var DefaultBlacklistAddresses = []string{
	"naotem@naotem.com",
	"naotem@gmail.com",
	"sememail@sememail.com",
	"sem@email.com",
	"nao@tem.com",
	"noemail@noemail.com",
	"email@email.com",
	"cliente@cliente.com",
	"teste@teste.com",
}

// DefaultBlacklistLocalParts are "no e-mail" markers used as local parts.
var DefaultBlacklistLocalParts = []string{
	"naotem",
	"naopossui",
	"naoinformado",
	"sememail",
	"semmail",
	"noemail",
	"nao",
	"sem",
	"xxx",
}

// NewBlacklist builds a blacklist from addresses, local-part markers and domains.
func NewBlacklist(addresses, localParts, domains []string) *Blacklist {
	bl := &Blacklist{
		addresses:  make(map[string]struct{}, len(addresses)),
		localParts: make(map[string]struct{}, len(localParts)),
		domains:    make(map[string]struct{}, len(domains)),
	}
	for _, a := range addresses {
		bl.addresses[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	for _, l := range localParts {
		bl.localParts[Text(l)] = struct{}{}
	}
	for _, d := range domains {
		bl.domains[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return bl
}

// DefaultBlacklist returns the built-in placeholder list.
func DefaultBlacklist() *Blacklist {
	return NewBlacklist(DefaultBlacklistAddresses, DefaultBlacklistLocalParts, nil)
}

// Blocks reports whether a lower-cased, trimmed address is a placeholder.
func (bl *Blacklist) Blocks(address string) bool {
	if bl == nil {
		return false
	}
	if _, ok := bl.addresses[address]; ok {
		return true
	}
	local, domain, _ := strings.Cut(address, "@")
	if _, ok := bl.localParts[Text(local)]; ok {
		return true
	}
	_, ok := bl.domains[domain]
	return ok
}

// Email lower-cases and trims s. Placeholders and strings that are not
// shaped like an address are returned normalized but not matchable. A nil
// blacklist uses DefaultBlacklist.
func Email(s string, blacklist *Blacklist) EmailAddress {
	address := strings.ToLower(strings.TrimSpace(s))
	if address == "" || address == nanMarker {
		return EmailAddress{}
	}
	if blacklist == nil {
		blacklist = DefaultBlacklist()
	}
	return EmailAddress{
		Address:   address,
		Matchable: wellFormed(address) && !blacklist.Blocks(address),
	}
}

func wellFormed(address string) bool {
	if strings.Count(address, "@") != 1 || strings.ContainsAny(address, " ,;") {
		return false
	}
	local, domain, _ := strings.Cut(address, "@")
	return local != "" && strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
