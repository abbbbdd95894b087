package domain_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
)

var _ = Describe("Value objects", func() {
	Context("ValidationError", func() {
		It("matches both the generic failure and its cause", func() {
			err := fmt.Errorf("wrapped: %w", domain.NewValidationError("relationship_type", "has already been taken", domain.ErrDuplicateRelation))

			Expect(errors.Is(err, domain.ErrValidationFailed)).To(BeTrue())
			Expect(errors.Is(err, domain.ErrDuplicateRelation)).To(BeTrue())
			Expect(errors.Is(err, domain.ErrConflictingRelation)).To(BeFalse())
		})

		It("exposes field and reason through errors.As", func() {
			err := fmt.Errorf("wrapped: %w", domain.NewValidationError("creator", "can't be blank", nil))

			var validationErr *domain.ValidationError
			Expect(errors.As(err, &validationErr)).To(BeTrue())
			Expect(validationErr.Field).To(Equal("creator"))
			Expect(validationErr.Reason).To(Equal("can't be blank"))
			Expect(err.Error()).To(ContainSubstring("creator can't be blank"))
		})
	})

	Context("SyncError", func() {
		It("matches ErrSyncFailed and keeps the underlying error", func() {
			cause := errors.New("connection refused")
			err := &domain.SyncError{Operation: "create_edge", Target: entities.Reference{Kind: "k", ID: "1"}, Err: cause}

			Expect(errors.Is(err, domain.ErrSyncFailed)).To(BeTrue())
			Expect(errors.Is(err, cause)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("create_edge for k:1"))
		})
	})

	Context("ProjectionKey", func() {
		It("separates restricted and full projections of the same object", func() {
			full := domain.NodeProjection{Kind: "dds-activity", ID: "A"}
			restricted := domain.NodeProjection{Kind: "dds-activity", ID: "A", Restricted: true}

			Expect(full.Key()).ToNot(Equal(restricted.Key()))
			Expect(full.Key()).To(Equal(domain.NodeProjection{Kind: "dds-activity", ID: "A", IsDeleted: true}.Key()))
		})
	})

	Context("ProvenanceGraph.Pairs", func() {
		origin := entities.Reference{Kind: "dds-activity", ID: "A"}
		file := entities.Reference{Kind: "dds-fileversion", ID: "F"}
		user := entities.Reference{Kind: "dds-user", ID: "U"}

		It("pairs each edge with the endpoint opposite to the origin", func() {
			graph := domain.ProvenanceGraph{
				Origin: origin,
				Nodes: []domain.NodeProjection{
					{Kind: origin.Kind, ID: origin.ID},
					{Kind: file.Kind, ID: file.ID},
					{Kind: user.Kind, ID: user.ID},
				},
				Relationships: []domain.EdgeProjection{
					{ID: "1", From: origin, To: file},
					{ID: "2", From: user, To: origin},
				},
			}

			pairs := graph.Pairs()

			Expect(pairs).To(HaveLen(2))
			Expect(pairs[0].Node.Ref()).To(Equal(file))
			Expect(pairs[0].Edge.ID).To(Equal("1"))
			Expect(pairs[1].Node.Ref()).To(Equal(user))
			Expect(pairs[1].Edge.ID).To(Equal("2"))
		})

		It("pairs a self loop with the origin", func() {
			graph := domain.ProvenanceGraph{
				Origin:        origin,
				Nodes:         []domain.NodeProjection{{Kind: origin.Kind, ID: origin.ID}},
				Relationships: []domain.EdgeProjection{{ID: "1", From: origin, To: origin}},
			}

			Expect(graph.Pairs()[0].Node.Ref()).To(Equal(origin))
		})
	})

	Context("Reference", func() {
		It("is zero when either half is missing", func() {
			Expect(entities.Reference{Kind: "k"}.IsZero()).To(BeTrue())
			Expect(entities.Reference{ID: "1"}.IsZero()).To(BeTrue())
			Expect(entities.Reference{Kind: "k", ID: "1"}.IsZero()).To(BeFalse())
		})
	})
})
