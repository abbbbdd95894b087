package projection_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/catalog"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
	"provenancegraph/src/services/graphsync"
	"provenancegraph/src/services/projection"
	"provenancegraph/src/services/provenance"
	"provenancegraph/src/test_artefacts/fakes"
	"provenancegraph/src/test_artefacts/stubs"
)

var _ = Describe("RelationsTouching", func() {
	var (
		ctx               context.Context
		entityStore       *fakes.EntityStore
		relationStore     *fakes.RelationStore
		graph             *fakes.Graph
		provenanceService *provenance.ProvenanceService
		projector         *projection.Projector

		activity  entities.Entity
		user      entities.Entity
		usedFile  entities.Entity
		generated entities.Entity
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewJSONHandler(GinkgoWriter, nil))

		entityStore = fakes.NewEntityStore()
		relationStore = fakes.NewRelationStore(entityStore)
		graph = fakes.NewGraph()

		synchronizer := graphsync.NewSynchronizer(graph, nil, logger)
		provenanceService = provenance.NewProvenanceService(
			logger,
			relationStore,
			relationStore,
			entityStore,
			graphsync.NewInlineDispatcher(synchronizer),
			&fakes.AuditRecorder{},
		)
		projector = projection.NewProjector(logger, graph, relationStore, entityStore)

		activity = entityStore.Put(stubs.NewActivityStub().WithReference("A").Get())
		user = entityStore.Put(stubs.NewEntityStub().WithReference("U").Get())
		usedFile = entityStore.Put(stubs.NewFileVersionStub().WithReference("F").Get())
		generated = entityStore.Put(stubs.NewFileVersionStub().WithReference("B").Get())
	})

	relate := func(variant string, from entities.Entity, to entities.Entity) *entities.Relation {
		relation, err := provenanceService.CreateRelation(ctx, domain.CreateRelationRequest{
			Variant:   variant,
			CreatorID: user.Reference,
			From:      from.Ref(),
			To:        to.Ref(),
		})
		Expect(err).ToNot(HaveOccurred())
		return relation
	}

	refsOf := func(nodes []domain.NodeProjection) []entities.Reference {
		refs := make([]entities.Reference, len(nodes))
		for i, node := range nodes {
			refs[i] = node.Ref()
		}
		return refs
	}

	Context("when another activity shares the neighbours", func() {
		var associated, used *entities.Relation

		BeforeEach(func() {
			associated = relate("WasAssociatedWith", user, activity)
			used = relate("Used", activity, usedFile)

			other := entityStore.Put(stubs.NewActivityStub().WithReference("B").Get())
			relate("WasAssociatedWith", user, other)
			relate("Used", other, usedFile)
		})

		It("returns exactly the two edges of A and the nodes U, A and F", func() {
			// ACT
			result, err := projector.RelationsTouching(ctx, activity.Ref(), domain.FullVisibility)

			// ASSERT
			Expect(err).ToNot(HaveOccurred())
			Expect(refsOf(result.Nodes)).To(ConsistOf(user.Ref(), activity.Ref(), usedFile.Ref()))
			Expect(result.Relationships).To(HaveLen(2))
			Expect(result.Relationships).To(ConsistOf(
				HaveField("ID", associated.ID.String()),
				HaveField("ID", used.ID.String()),
			))
		})
	})

	Context("when an activity has relations in both directions", func() {
		var associated, used, generatedBy *entities.Relation

		BeforeEach(func() {
			associated = relate("WasAssociatedWith", user, activity)
			used = relate("Used", activity, usedFile)
			generatedBy = relate("WasGeneratedBy", generated, activity)
		})

		It("returns every neighbour and every live edge", func() {
			// ACT
			result, err := projector.RelationsTouching(ctx, activity.Ref(), domain.FullVisibility)

			// ASSERT
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Origin).To(Equal(activity.Ref()))
			Expect(refsOf(result.Nodes)).To(Equal([]entities.Reference{
				activity.Ref(),
				generated.Ref(),
				usedFile.Ref(),
				user.Ref(),
			}))

			ids := make([]string, len(result.Relationships))
			for i, edge := range result.Relationships {
				ids[i] = edge.ID
			}
			Expect(ids).To(Equal([]string{
				used.ID.String(),
				associated.ID.String(),
				generatedBy.ID.String(),
			}))
		})

		It("pairs each edge with the far node", func() {
			result, err := projector.RelationsTouching(ctx, activity.Ref(), domain.FullVisibility)
			Expect(err).ToNot(HaveOccurred())

			far := map[string]entities.Reference{}
			for _, pair := range result.Pairs() {
				far[pair.Edge.RelationshipType] = pair.Node.Ref()
			}

			Expect(far).To(Equal(map[string]entities.Reference{
				"was-associated-with": user.Ref(),
				"used":                usedFile.Ref(),
				"was-generated-by":    generated.Ref(),
			}))
		})

		It("answers from the file side with one hop only", func() {
			result, err := projector.RelationsTouching(ctx, usedFile.Ref(), domain.FullVisibility)

			Expect(err).ToNot(HaveOccurred())
			Expect(refsOf(result.Nodes)).To(Equal([]entities.Reference{activity.Ref(), usedFile.Ref()}))
			Expect(result.Relationships).To(HaveLen(1))
			Expect(result.Relationships[0].ID).To(Equal(used.ID.String()))
		})

		It("exposes node and edge details under full visibility", func() {
			result, err := projector.RelationsTouching(ctx, usedFile.Ref(), domain.FullVisibility)
			Expect(err).ToNot(HaveOccurred())

			Expect(string(result.Nodes[1].Properties)).To(MatchJSON(string(usedFile.Properties)))

			var details map[string]any
			Expect(json.Unmarshal(result.Relationships[0].Properties, &details)).To(Succeed())
			Expect(details).To(HaveKeyWithValue("creator_id", user.Reference))
			Expect(details).To(HaveKey("created_at"))
			Expect(details).To(HaveKey("updated_at"))
		})

		It("leaves out soft deleted relations from both endpoints", func() {
			Expect(provenanceService.SoftDeleteRelation(ctx, used.ID, user.Reference)).To(Succeed())

			fromActivity, err := projector.RelationsTouching(ctx, activity.Ref(), domain.FullVisibility)
			Expect(err).ToNot(HaveOccurred())
			fromFile, err := projector.RelationsTouching(ctx, usedFile.Ref(), domain.FullVisibility)
			Expect(err).ToNot(HaveOccurred())

			Expect(fromActivity.Relationships).To(HaveLen(2))
			Expect(refsOf(fromActivity.Nodes)).ToNot(ContainElement(usedFile.Ref()))
			Expect(fromFile.Relationships).To(BeEmpty())
			Expect(refsOf(fromFile.Nodes)).To(Equal([]entities.Reference{usedFile.Ref()}))
		})

		It("is a pure read", func() {
			writes := graph.Writes

			first, err := projector.RelationsTouching(ctx, activity.Ref(), domain.FullVisibility)
			Expect(err).ToNot(HaveOccurred())
			second, err := projector.RelationsTouching(ctx, activity.Ref(), domain.FullVisibility)
			Expect(err).ToNot(HaveOccurred())

			Expect(second).To(BeComparableTo(first))
			Expect(graph.Writes).To(Equal(writes))
		})
	})

	Context("when the caller cannot see some objects", func() {
		var used *entities.Relation

		BeforeEach(func() {
			relate("WasAssociatedWith", user, activity)
			used = relate("Used", activity, usedFile)
		})

		It("restricts the hidden node and every edge touching it", func() {
			hidden := domain.VisibilityFunc(func(_ context.Context, ref entities.Reference) bool {
				return ref != usedFile.Ref()
			})

			result, err := projector.RelationsTouching(ctx, activity.Ref(), hidden)

			Expect(err).ToNot(HaveOccurred())
			for _, node := range result.Nodes {
				if node.Ref() == usedFile.Ref() {
					Expect(node.Restricted).To(BeTrue())
					Expect(node.Properties).To(BeEmpty())
				} else {
					Expect(node.Restricted).To(BeFalse())
				}
			}
			for _, edge := range result.Relationships {
				Expect(edge.Restricted).To(Equal(edge.ID == used.ID.String()), edge.RelationshipType)
			}
		})

		It("restricts an edge whose relation record is hidden", func() {
			hidden := domain.VisibilityFunc(func(_ context.Context, ref entities.Reference) bool {
				return ref != used.Ref()
			})

			result, err := projector.RelationsTouching(ctx, activity.Ref(), hidden)

			Expect(err).ToNot(HaveOccurred())
			for _, edge := range result.Relationships {
				if edge.ID == used.ID.String() {
					Expect(edge.Restricted).To(BeTrue())
					Expect(edge.Properties).To(BeEmpty())
				}
			}
			for _, node := range result.Nodes {
				Expect(node.Restricted).To(BeFalse())
			}
		})

		It("gives restricted and full projections different keys", func() {
			hidden := domain.VisibilityFunc(func(_ context.Context, ref entities.Reference) bool {
				return ref != usedFile.Ref()
			})

			full, err := projector.RelationsTouching(ctx, usedFile.Ref(), domain.FullVisibility)
			Expect(err).ToNot(HaveOccurred())
			restricted, err := projector.RelationsTouching(ctx, usedFile.Ref(), hidden)
			Expect(err).ToNot(HaveOccurred())

			Expect(full.Relationships[0].Key()).ToNot(Equal(restricted.Relationships[0].Key()))
			Expect(full.Relationships[0].ID).To(Equal(restricted.Relationships[0].ID))
		})
	})

	Context("when a node was logically deleted", func() {
		It("keeps it in the result flagged as deleted", func() {
			relate("Used", activity, usedFile)
			Expect(provenanceService.SoftDeleteEntity(ctx, usedFile.Ref(), user.Reference)).To(Succeed())

			result, err := projector.RelationsTouching(ctx, activity.Ref(), domain.FullVisibility)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Nodes).To(ContainElement(SatisfyAll(
				HaveField("ID", "F"),
				HaveField("IsDeleted", true),
			)))
			Expect(result.Relationships).To(HaveLen(1))
		})

		It("trusts the relational flag when the mirror missed it", func() {
			relate("Used", activity, usedFile)
			graph.WriteErr = errors.New("neo4j: unavailable")
			Expect(provenanceService.SoftDeleteEntity(ctx, usedFile.Ref(), user.Reference)).To(Succeed())
			graph.WriteErr = nil

			result, err := projector.RelationsTouching(ctx, activity.Ref(), domain.FullVisibility)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Nodes).To(ContainElement(HaveField("IsDeleted", true)))
		})
	})

	Context("when the node has no relations", func() {
		It("returns only the origin", func() {
			lonely := entities.Reference{Kind: kinds.Activity, ID: "lonely"}
			_, err := provenanceService.UpsertEntity(ctx, lonely, json.RawMessage(`{}`), user.Reference)
			Expect(err).ToNot(HaveOccurred())

			result, err := projector.RelationsTouching(ctx, lonely, domain.FullVisibility)

			Expect(err).ToNot(HaveOccurred())
			Expect(refsOf(result.Nodes)).To(Equal([]entities.Reference{lonely}))
			Expect(result.Relationships).To(BeEmpty())
		})
	})

	Context("when the request cannot be answered", func() {
		It("returns ErrNotFound for a node missing from the mirror", func() {
			_, err := projector.RelationsTouching(ctx, entities.Reference{Kind: kinds.Activity, ID: "ghost"}, domain.FullVisibility)

			Expect(err).To(MatchError(domain.ErrNotFound))
		})

		It("returns ErrUnknownKind for an unregistered kind", func() {
			_, err := projector.RelationsTouching(ctx, entities.Reference{Kind: "dds-folder", ID: "x"}, domain.FullVisibility)

			Expect(err).To(MatchError(domain.ErrUnknownKind))
		})

		It("returns ErrUnknownKind for a relation kind", func() {
			ref := entities.Reference{Kind: catalog.ForVariant(catalog.Used).Kind, ID: "x"}

			_, err := projector.RelationsTouching(ctx, ref, domain.FullVisibility)

			Expect(err).To(MatchError(domain.ErrUnknownKind))
		})

		It("propagates graph read failures", func() {
			relate("Used", activity, usedFile)
			graph.ReadErr = errors.New("neo4j: session expired")

			_, err := projector.RelationsTouching(ctx, activity.Ref(), domain.FullVisibility)

			Expect(err).To(MatchError(ContainSubstring("session expired")))
		})
	})
})
