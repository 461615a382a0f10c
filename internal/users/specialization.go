package users

import (
	"sort"
	"strings"
)

// specializationAliases maps a canonical specialization to the spellings a
// doctor record or a patient may use for it.
var specializationAliases = map[string][]string{
	"cardiologist":         {"cardiologist", "cardiology", "heart"},
	"pulmonologist":        {"pulmonologist", "pulmonology", "lung", "respiratory"},
	"neurologist":          {"neurologist", "neurology", "brain", "nerve"},
	"gastroenterologist":   {"gastroenterologist", "gastroenterology", "digestive"},
	"dermatologist":        {"dermatologist", "dermatology", "skin"},
	"orthopedist":          {"orthopedist", "orthopedic", "orthopaedic", "orthopedics", "bone"},
	"ophthalmologist":      {"ophthalmologist", "ophthalmology", "eye"},
	"nephrologist":         {"nephrologist", "nephrology", "kidney"},
	"endocrinologist":      {"endocrinologist", "endocrinology", "hormone", "diabetes"},
	"psychiatrist":         {"psychiatrist", "psychiatry", "psychologist", "mental health"},
	"gynecologist":         {"gynecologist", "gynecology", "gynaecologist"},
	"urologist":            {"urologist", "urology"},
	"rheumatologist":       {"rheumatologist", "rheumatology"},
	"allergist":            {"allergist", "allergy", "immunologist"},
	"obstetrician":         {"obstetrician", "obstetrics"},
	"general practitioner": {"general practitioner", "general practice", "family medicine", "primary care"},
}

// SpecializationMapper resolves free-text specializations to the set of
// spellings stored on doctor records.
type SpecializationMapper struct {
	aliases map[string][]string
}

func NewSpecializationMapper() *SpecializationMapper {
	return &SpecializationMapper{aliases: specializationAliases}
}

// Canonical returns the canonical name for query, or the normalized input when
// no alias matches.
func (m *SpecializationMapper) Canonical(query string) string {
	needle := normalizeSpecialization(query)
	if _, ok := m.aliases[needle]; ok {
		return needle
	}
	for canonical, aliases := range m.aliases {
		for _, alias := range aliases {
			if alias == needle {
				return canonical
			}
		}
	}
	return needle
}

// Terms returns every spelling that should match query, canonical first.
func (m *SpecializationMapper) Terms(query string) []string {
	canonical := m.Canonical(query)
	if canonical == "" {
		return nil
	}
	aliases, ok := m.aliases[canonical]
	if !ok {
		return []string{canonical}
	}
	terms := []string{canonical}
	rest := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		if alias != canonical {
			rest = append(rest, alias)
		}
	}
	sort.Strings(rest)
	return append(terms, rest...)
}

// Patterns returns SQL LIKE patterns for lower(trim(specialization)).
func (m *SpecializationMapper) Patterns(query string) []string {
	terms := m.Terms(query)
	patterns := make([]string, 0, len(terms))
	for _, term := range terms {
		patterns = append(patterns, "%"+escapeLike(term)+"%")
	}
	return patterns
}

// Matches reports whether a stored specialization satisfies query.
func (m *SpecializationMapper) Matches(stored, query string) bool {
	stored = normalizeSpecialization(stored)
	for _, term := range m.Terms(query) {
		if strings.Contains(stored, term) {
			return true
		}
	}
	return false
}

func normalizeSpecialization(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
