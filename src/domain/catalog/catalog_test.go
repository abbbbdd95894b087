package catalog_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/catalog"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
)

var _ = Describe("Catalog", func() {
	DescribeTable("stable names per variant",
		func(variant catalog.Variant, kind string, relationshipType string, edgeLabel string) {
			def := catalog.ForVariant(variant)

			Expect(def.Variant).To(Equal(variant))
			Expect(def.Kind).To(Equal(kind))
			Expect(def.RelationshipType).To(Equal(relationshipType))
			Expect(def.EdgeLabel).To(Equal(edgeLabel))
		},
		Entry("WasAssociatedWith", catalog.WasAssociatedWith, "dds-was_associated_with_prov_relation", "was-associated-with", "WasAssociatedWith"),
		Entry("WasAttributedTo", catalog.WasAttributedTo, "dds-was_attributed_to_prov_relation", "was-attributed-to", "WasAttributedTo"),
		Entry("Used", catalog.Used, "dds-used_prov_relation", "used", "Used"),
		Entry("WasGeneratedBy", catalog.WasGeneratedBy, "dds-was_generated_by_prov_relation", "was-generated-by", "WasGeneratedBy"),
		Entry("WasInvalidatedBy", catalog.WasInvalidatedBy, "dds-was_invalidated_by_prov_relation", "was-invalidated-by", "WasInvalidatedBy"),
		Entry("WasDerivedFrom", catalog.WasDerivedFrom, "dds-was_derived_from_prov_relation", "was-derived-from", "WasDerivedFrom"),
	)

	DescribeTable("allowed endpoint kinds",
		func(variant catalog.Variant, from []string, to []string) {
			def := catalog.ForVariant(variant)

			Expect(def.From).To(ConsistOf(from))
			Expect(def.To).To(ConsistOf(to))
		},
		Entry("WasAssociatedWith", catalog.WasAssociatedWith, []string{kinds.User, kinds.SoftwareAgent}, []string{kinds.Activity}),
		Entry("WasAttributedTo", catalog.WasAttributedTo, []string{kinds.FileVersion}, []string{kinds.User, kinds.SoftwareAgent}),
		Entry("Used", catalog.Used, []string{kinds.Activity}, []string{kinds.FileVersion}),
		Entry("WasGeneratedBy", catalog.WasGeneratedBy, []string{kinds.FileVersion}, []string{kinds.Activity}),
		Entry("WasInvalidatedBy", catalog.WasInvalidatedBy, []string{kinds.FileVersion}, []string{kinds.Activity}),
		Entry("WasDerivedFrom", catalog.WasDerivedFrom, []string{kinds.FileVersion}, []string{kinds.FileVersion}),
	)

	Context("when looking up a variant by name", func() {
		DescribeTable("accepts the usual spellings",
			func(name string) {
				def, err := catalog.Lookup(name)

				Expect(err).ToNot(HaveOccurred())
				Expect(def.Variant).To(Equal(catalog.WasGeneratedBy))
			},
			Entry("camel case", "WasGeneratedBy"),
			Entry("snake case", "was_generated_by"),
			Entry("kebab case", "was-generated-by"),
			Entry("surrounding spaces", "  was-generated-by "),
		)

		It("returns ErrUnknownVariant for anything else", func() {
			_, err := catalog.Lookup("wasFollowedBy")

			Expect(err).To(MatchError(domain.ErrUnknownVariant))
		})

		It("returns ErrUnknownVariant for an empty name", func() {
			_, err := catalog.Lookup("")

			Expect(err).To(MatchError(domain.ErrUnknownVariant))
		})
	})

	Context("when reversing a persisted relationship type", func() {
		It("finds the definition for every variant", func() {
			for _, def := range catalog.All() {
				found, err := catalog.ByRelationshipType(def.RelationshipType)

				Expect(err).ToNot(HaveOccurred())
				Expect(found.Variant).To(Equal(def.Variant))
			}
		})

		It("does not accept the edge label", func() {
			_, err := catalog.ByRelationshipType("WasGeneratedBy")

			Expect(err).To(MatchError(domain.ErrUnknownVariant))
		})
	})

	Context("with the kind registry", func() {
		It("registers every relation kind without making it a node kind", func() {
			for _, def := range catalog.All() {
				_, err := kinds.Resolve(def.Kind)

				Expect(err).ToNot(HaveOccurred())
				Expect(kinds.IsEntityKind(def.Kind)).To(BeFalse())
			}
		})

		It("resolves a relation's kind from its own tag", func() {
			relation := entities.Relation{Kind: catalog.ForVariant(catalog.WasDerivedFrom).Kind}

			kind, err := kinds.KindOf(relation)

			Expect(err).ToNot(HaveOccurred())
			Expect(kind).To(Equal("dds-was_derived_from_prov_relation"))
		})
	})

	It("lists six distinct variants", func() {
		seen := map[string]bool{}
		for _, def := range catalog.All() {
			seen[def.RelationshipType] = true
		}

		Expect(seen).To(HaveLen(6))
	})

	It("keeps All isolated from callers", func() {
		all := catalog.All()
		all[0].Name = "changed"

		Expect(catalog.All()[0].Name).To(Equal("WasAssociatedWith"))
	})

	It("names unknown variants by number", func() {
		Expect(catalog.Variant(42).String()).To(Equal("Variant(42)"))
	})
})
