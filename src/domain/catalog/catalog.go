package catalog

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
)

// Variant is one member of the closed set of provenance relations.
type Variant int

const (
	WasAssociatedWith Variant = iota + 1
	WasAttributedTo
	Used
	WasGeneratedBy
	WasInvalidatedBy
	WasDerivedFrom
)

var variantNames = map[Variant]string{
	WasAssociatedWith: "WasAssociatedWith",
	WasAttributedTo:   "WasAttributedTo",
	Used:              "Used",
	WasGeneratedBy:    "WasGeneratedBy",
	WasInvalidatedBy:  "WasInvalidatedBy",
	WasDerivedFrom:    "WasDerivedFrom",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// Rule is the variant-specific check run after uniqueness.
type Rule int

const (
	RuleNone Rule = iota
	// The activity must not already use the entity it generates.
	RuleNotUsedByActivity
	// The entity must be soft-deleted before it can be invalidated.
	RuleEntityDeleted
)

// Definition describes a variant: allowed endpoint kinds and its stable names.
type Definition struct {
	Variant          Variant
	Name             string
	Kind             string
	RelationshipType string
	EdgeLabel        string
	From             []string
	To               []string
	Rule             Rule
}

func (d Definition) AllowsFrom(kind string) bool {
	return slices.Contains(d.From, kind)
}

func (d Definition) AllowsTo(kind string) bool {
	return slices.Contains(d.To, kind)
}

var agents = []string{kinds.User, kinds.SoftwareAgent}

var definitions = []Definition{
	define(WasAssociatedWith, agents, []string{kinds.Activity}, RuleNone),
	define(WasAttributedTo, []string{kinds.FileVersion}, agents, RuleNone),
	define(Used, []string{kinds.Activity}, []string{kinds.FileVersion}, RuleNone),
	define(WasGeneratedBy, []string{kinds.FileVersion}, []string{kinds.Activity}, RuleNotUsedByActivity),
	define(WasInvalidatedBy, []string{kinds.FileVersion}, []string{kinds.Activity}, RuleEntityDeleted),
	define(WasDerivedFrom, []string{kinds.FileVersion}, []string{kinds.FileVersion}, RuleNone),
}

var (
	byName             = make(map[string]Definition)
	byRelationshipType = make(map[string]Definition)
)

func init() {
	for _, def := range definitions {
		byName[normalize(def.Name)] = def
		byRelationshipType[def.RelationshipType] = def
		kinds.Default.MustRegister(def.Kind, entities.Relation{})
	}
}

func define(v Variant, from []string, to []string, rule Rule) Definition {
	words := splitWords(v.String())
	return Definition{
		Variant:          v,
		Name:             v.String(),
		Kind:             relationKind(words),
		RelationshipType: relationshipType(words),
		EdgeLabel:        edgeLabel(words),
		From:             from,
		To:               to,
		Rule:             rule,
	}
}

// Lookup accepts "WasGeneratedBy", "was_generated_by" or "was-generated-by".
func Lookup(name string) (Definition, error) {
	def, ok := byName[normalize(name)]
	if !ok {
		return Definition{}, fmt.Errorf("catalog.Lookup - %q: %w", name, domain.ErrUnknownVariant)
	}
	return def, nil
}

func ForVariant(v Variant) Definition {
	return byName[normalize(v.String())]
}

// ByRelationshipType is the reverse lookup from a persisted tag.
func ByRelationshipType(relationshipType string) (Definition, error) {
	def, ok := byRelationshipType[relationshipType]
	if !ok {
		return Definition{}, fmt.Errorf("catalog.ByRelationshipType - %q: %w", relationshipType, domain.ErrUnknownVariant)
	}
	return def, nil
}

func All() []Definition {
	return slices.Clone(definitions)
}

func relationshipType(words []string) string {
	return strings.Join(words, "-")
}

func edgeLabel(words []string) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}

func relationKind(words []string) string {
	return "dds-" + strings.Join(words, "_") + "_prov_relation"
}

func normalize(name string) string {
	return strings.Join(splitWords(name), "-")
}

// splitWords breaks a compound name on case changes, '-', '_' and spaces,
// returning lower-cased words.
func splitWords(name string) []string {
	var words []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '-' || r == '_' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()

	return words
}
