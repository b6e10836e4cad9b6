package providers

import "strings"

// ProviderRef is one entry of a provider list such as "openai:primary".
// Name selects the implementation; KeyAlias picks its credential or model.
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

// ParseProviderList splits a "|" separated list, dropping blanks and exact
// duplicates. An empty list falls back to the offline mock provider.
func ParseProviderList(raw string) []ProviderRef {
	seen := map[string]bool{}
	var out []ProviderRef
	for _, item := range strings.Split(raw, "|") {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		name, alias, _ := strings.Cut(item, ":")
		out = append(out, ProviderRef{
			Raw:      item,
			Name:     strings.ToLower(strings.TrimSpace(name)),
			KeyAlias: strings.TrimSpace(alias),
		})
	}
	if len(out) == 0 {
		return []ProviderRef{{Raw: "mock", Name: "mock"}}
	}
	return out
}
