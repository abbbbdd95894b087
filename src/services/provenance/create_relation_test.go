package provenance_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/catalog"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/services/graphsync"
	"provenancegraph/src/services/provenance"
	"provenancegraph/src/test_artefacts/fakes"
	"provenancegraph/src/test_artefacts/stubs"
)

var _ = Describe("CreateRelation", func() {
	var (
		ctx               context.Context
		entityStore       *fakes.EntityStore
		relationStore     *fakes.RelationStore
		graph             *fakes.Graph
		auditRecorder     *fakes.AuditRecorder
		provenanceService *provenance.ProvenanceService

		activity entities.Entity
		file     entities.Entity
		user     entities.Entity
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewJSONHandler(GinkgoWriter, nil))

		entityStore = fakes.NewEntityStore()
		relationStore = fakes.NewRelationStore(entityStore)
		graph = fakes.NewGraph()
		auditRecorder = &fakes.AuditRecorder{}

		synchronizer := graphsync.NewSynchronizer(graph, &fakes.Invalidator{}, logger)
		provenanceService = provenance.NewProvenanceService(
			logger,
			relationStore,
			relationStore,
			entityStore,
			graphsync.NewInlineDispatcher(synchronizer),
			auditRecorder,
		)

		activity = entityStore.Put(stubs.NewActivityStub().Get())
		file = entityStore.Put(stubs.NewFileVersionStub().Get())
		user = entityStore.Put(stubs.NewEntityStub().Get())
	})

	request := func(variant string, from entities.Entity, to entities.Entity) domain.CreateRelationRequest {
		return domain.CreateRelationRequest{
			Variant:   variant,
			CreatorID: user.Reference,
			From:      from.Ref(),
			To:        to.Ref(),
		}
	}

	Context("when the request is valid", func() {
		It("persists the relation with the catalog names", func() {
			// ACT
			relation, err := provenanceService.CreateRelation(ctx, request("used", activity, file))

			// ASSERT
			Expect(err).ToNot(HaveOccurred())
			Expect(relation.Kind).To(Equal("dds-used_prov_relation"))
			Expect(relation.RelationshipType).To(Equal("used"))
			Expect(relation.CreatorID).To(Equal(user.Reference))
			Expect(relation.From).To(Equal(activity.Ref()))
			Expect(relation.To).To(Equal(file.Ref()))
			Expect(relation.IsDeleted).To(BeFalse())
			Expect(relation.CreatedAt).ToNot(BeZero())

			stored, err := relationStore.FindByID(ctx, relation.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(*stored).To(BeComparableTo(*relation))
		})

		It("ignores a relationship type supplied by the caller", func() {
			req := request("WasDerivedFrom", file, entityStore.Put(stubs.NewFileVersionStub().Get()))
			req.RelationshipType = "something-else"

			relation, err := provenanceService.CreateRelation(ctx, req)

			Expect(err).ToNot(HaveOccurred())
			Expect(relation.RelationshipType).To(Equal("was-derived-from"))
		})

		It("mirrors the relation as a typed edge between both nodes", func() {
			relation, err := provenanceService.CreateRelation(ctx, request("was_associated_with", user, activity))
			Expect(err).ToNot(HaveOccurred())

			edges := graph.Edges()
			Expect(edges).To(HaveLen(1))
			Expect(edges[0].Label).To(Equal("WasAssociatedWith"))
			Expect(edges[0].ModelID).To(Equal(relation.ID.String()))
			Expect(edges[0].ModelKind).To(Equal(relation.Kind))
			Expect(edges[0].From.Ref()).To(Equal(user.Ref()))
			Expect(edges[0].To.Ref()).To(Equal(activity.Ref()))
			Expect(graph.Nodes()).To(HaveLen(2))
		})

		It("records a create audit event for the creator", func() {
			relation, err := provenanceService.CreateRelation(ctx, request("Used", activity, file))
			Expect(err).ToNot(HaveOccurred())

			events := auditRecorder.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Action).To(Equal(domain.ActionCreate))
			Expect(events[0].ActorID).To(Equal(user.Reference))
			Expect(events[0].Auditable).To(Equal(relation.Ref()))
			Expect(events[0].Changes).To(HaveKeyWithValue("relationship_type", "used"))
		})

		It("accepts both agent kinds for attribution", func() {
			agent := entityStore.Put(stubs.NewSoftwareAgentStub().Get())

			_, err := provenanceService.CreateRelation(ctx, request("WasAttributedTo", file, agent))
			Expect(err).ToNot(HaveOccurred())

			_, err = provenanceService.CreateRelation(ctx, request("WasAttributedTo", file, user))
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Context("when the variant is unknown", func() {
		It("returns ErrUnknownVariant and persists nothing", func() {
			_, err := provenanceService.CreateRelation(ctx, request("wasFollowedBy", activity, file))

			Expect(err).To(MatchError(domain.ErrUnknownVariant))
			Expect(errors.Is(err, domain.ErrValidationFailed)).To(BeFalse())
			Expect(relationStore.All()).To(BeEmpty())
		})
	})

	Context("when a required field is missing", func() {
		DescribeTable("reports the blank field",
			func(mutate func(*domain.CreateRelationRequest), field string) {
				req := request("used", activity, file)
				mutate(&req)

				_, err := provenanceService.CreateRelation(ctx, req)

				var validationErr *domain.ValidationError
				Expect(errors.As(err, &validationErr)).To(BeTrue())
				Expect(validationErr.Field).To(Equal(field))
				Expect(validationErr.Reason).To(Equal("can't be blank"))
				Expect(relationStore.All()).To(BeEmpty())
			},
			Entry("creator", func(r *domain.CreateRelationRequest) { r.CreatorID = "" }, "creator"),
			Entry("from", func(r *domain.CreateRelationRequest) { r.From = entities.Reference{} }, "relatable_from"),
			Entry("to id", func(r *domain.CreateRelationRequest) { r.To.ID = "" }, "relatable_to"),
		)
	})

	Context("when an endpoint kind is not registered", func() {
		It("fails validation with ErrUnknownKind", func() {
			req := request("used", activity, file)
			req.To.Kind = "dds-spreadsheet"

			_, err := provenanceService.CreateRelation(ctx, req)

			Expect(err).To(MatchError(domain.ErrValidationFailed))
			Expect(err).To(MatchError(domain.ErrUnknownKind))
		})
	})

	Context("when an endpoint kind is not allowed for the variant", func() {
		It("rejects Used from a file version", func() {
			_, err := provenanceService.CreateRelation(ctx, request("used", file, activity))

			Expect(err).To(MatchError(domain.ErrValidationFailed))
			Expect(err).To(MatchError(domain.ErrEndpointKindMismatch))
			Expect(relationStore.All()).To(BeEmpty())
			Expect(graph.Edges()).To(BeEmpty())
			Expect(auditRecorder.Events()).To(BeEmpty())
		})

		It("rejects a relation kind as an endpoint", func() {
			req := request("used", activity, file)
			req.To = entities.Reference{Kind: catalog.ForVariant(catalog.Used).Kind, ID: "x"}

			_, err := provenanceService.CreateRelation(ctx, req)

			Expect(err).To(MatchError(domain.ErrEndpointKindMismatch))
		})
	})

	Context("when an endpoint does not exist", func() {
		It("returns ErrNotFound without a validation error", func() {
			missing := stubs.NewFileVersionStub().Get()

			_, err := provenanceService.CreateRelation(ctx, request("used", activity, missing))

			Expect(err).To(MatchError(domain.ErrNotFound))
			Expect(errors.Is(err, domain.ErrValidationFailed)).To(BeFalse())
			Expect(relationStore.All()).To(BeEmpty())
		})
	})

	Context("when the same active relation already exists", func() {
		It("rejects the duplicate on relationship_type", func() {
			_, err := provenanceService.CreateRelation(ctx, request("used", activity, file))
			Expect(err).ToNot(HaveOccurred())

			_, err = provenanceService.CreateRelation(ctx, request("used", activity, file))

			var validationErr *domain.ValidationError
			Expect(errors.As(err, &validationErr)).To(BeTrue())
			Expect(validationErr.Field).To(Equal("relationship_type"))
			Expect(validationErr.Reason).To(Equal("has already been taken"))
			Expect(err).To(MatchError(domain.ErrDuplicateRelation))
			Expect(relationStore.All()).To(HaveLen(1))
		})

		It("allows it again once the first one is soft deleted", func() {
			first, err := provenanceService.CreateRelation(ctx, request("used", activity, file))
			Expect(err).ToNot(HaveOccurred())
			Expect(provenanceService.SoftDeleteRelation(ctx, first.ID, user.Reference)).To(Succeed())

			second, err := provenanceService.CreateRelation(ctx, request("used", activity, file))

			Expect(err).ToNot(HaveOccurred())
			Expect(second.ID).ToNot(Equal(first.ID))
		})

		It("lets exactly one of many concurrent creates win", func() {
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				succeeded int
				rejected  int
			)

			for range 10 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()

					_, err := provenanceService.CreateRelation(ctx, request("used", activity, file))

					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						succeeded++
					} else {
						Expect(err).To(MatchError(domain.ErrDuplicateRelation))
						rejected++
					}
				}()
			}
			wg.Wait()

			Expect(succeeded).To(Equal(1))
			Expect(rejected).To(Equal(9))
			Expect(relationStore.All()).To(HaveLen(1))
		})
	})

	Context("when the activity already used the entity it would generate", func() {
		It("rejects WasGeneratedBy with ErrConflictingRelation", func() {
			_, err := provenanceService.CreateRelation(ctx, request("used", activity, file))
			Expect(err).ToNot(HaveOccurred())

			_, err = provenanceService.CreateRelation(ctx, request("was-generated-by", file, activity))

			var validationErr *domain.ValidationError
			Expect(errors.As(err, &validationErr)).To(BeTrue())
			Expect(validationErr.Field).To(Equal("relatable_from"))
			Expect(err).To(MatchError(domain.ErrConflictingRelation))
		})

		It("allows WasGeneratedBy once the Used relation is soft deleted", func() {
			used, err := provenanceService.CreateRelation(ctx, request("used", activity, file))
			Expect(err).ToNot(HaveOccurred())
			Expect(provenanceService.SoftDeleteRelation(ctx, used.ID, user.Reference)).To(Succeed())

			_, err = provenanceService.CreateRelation(ctx, request("was-generated-by", file, activity))

			Expect(err).ToNot(HaveOccurred())
		})

		It("still allows Used after WasGeneratedBy", func() {
			_, err := provenanceService.CreateRelation(ctx, request("was-generated-by", file, activity))
			Expect(err).ToNot(HaveOccurred())

			_, err = provenanceService.CreateRelation(ctx, request("used", activity, file))

			Expect(err).ToNot(HaveOccurred())
			Expect(relationStore.All()).To(HaveLen(2))
		})

		It("is not affected by another activity using the entity", func() {
			other := entityStore.Put(stubs.NewActivityStub().Get())
			_, err := provenanceService.CreateRelation(ctx, request("used", other, file))
			Expect(err).ToNot(HaveOccurred())

			_, err = provenanceService.CreateRelation(ctx, request("was-generated-by", file, activity))

			Expect(err).ToNot(HaveOccurred())
		})
	})

	Context("when invalidating an entity", func() {
		It("rejects WasInvalidatedBy while the entity is alive", func() {
			_, err := provenanceService.CreateRelation(ctx, request("WasInvalidatedBy", file, activity))

			Expect(err).To(MatchError(domain.ErrValidationFailed))
			Expect(err).To(MatchError(domain.ErrEntityNotYetDeleted))
			Expect(relationStore.All()).To(BeEmpty())
		})

		It("accepts WasInvalidatedBy after the entity is soft deleted", func() {
			Expect(provenanceService.SoftDeleteEntity(ctx, file.Ref(), user.Reference)).To(Succeed())

			relation, err := provenanceService.CreateRelation(ctx, request("WasInvalidatedBy", file, activity))

			Expect(err).ToNot(HaveOccurred())
			Expect(relation.RelationshipType).To(Equal("was-invalidated-by"))

			edges := graph.Edges()
			Expect(edges).To(HaveLen(1))
			Expect(edges[0].From.IsDeleted).To(BeTrue())
		})
	})

	Context("when the graph mirror is unavailable", func() {
		It("still commits the relation and audits it", func() {
			graph.WriteErr = errors.New("neo4j: connection refused")

			relation, err := provenanceService.CreateRelation(ctx, request("used", activity, file))

			Expect(err).ToNot(HaveOccurred())
			Expect(relationStore.FindByID(ctx, relation.ID)).ToNot(BeNil())
			Expect(graph.Edges()).To(BeEmpty())
			Expect(auditRecorder.Events()).To(HaveLen(1))
		})
	})

	Context("when the audit collaborator fails", func() {
		It("still returns the committed relation", func() {
			auditRecorder.Err = errors.New("kafka: leader not available")

			relation, err := provenanceService.CreateRelation(ctx, request("used", activity, file))

			Expect(err).ToNot(HaveOccurred())
			Expect(relationStore.FindByID(ctx, relation.ID)).ToNot(BeNil())
			Expect(graph.Edges()).To(HaveLen(1))
		})
	})

	Context("when the relational store fails", func() {
		It("propagates the error and mirrors nothing", func() {
			relationStore.Err = errors.New("postgres: too many connections")

			_, err := provenanceService.CreateRelation(ctx, request("used", activity, file))

			Expect(err).To(MatchError(ContainSubstring("too many connections")))
			Expect(graph.Writes).To(BeZero())
			Expect(auditRecorder.Events()).To(BeEmpty())
		})
	})
})
