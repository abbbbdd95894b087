package http_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"

	httpadapter "provenancegraph/src/adapters/http"
	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/services/graphsync"
	"provenancegraph/src/services/projection"
	"provenancegraph/src/services/provenance"
	"provenancegraph/src/test_artefacts/fakes"
	"provenancegraph/src/test_artefacts/stubs"
)

var _ = Describe("Server", func() {
	var (
		entityStore   *fakes.EntityStore
		relationStore *fakes.RelationStore
		graph         *fakes.Graph
		authorizer    *fakes.Authorizer
		handler       http.Handler

		activity entities.Entity
		file     entities.Entity
		actorID  string
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewJSONHandler(GinkgoWriter, nil))

		entityStore = fakes.NewEntityStore()
		relationStore = fakes.NewRelationStore(entityStore)
		graph = fakes.NewGraph()
		authorizer = &fakes.Authorizer{}

		synchronizer := graphsync.NewSynchronizer(graph, nil, logger)
		provenanceService := provenance.NewProvenanceService(
			logger,
			relationStore,
			relationStore,
			entityStore,
			graphsync.NewInlineDispatcher(synchronizer),
			&fakes.AuditRecorder{},
		)
		projector := projection.NewProjector(logger, graph, relationStore, entityStore)

		// O ponteiro deixa cada teste mudar a política depois do setup.
		handler = httpadapter.NewServer(logger, 0, provenanceService, projector, authorizer).Handler()

		activity = entityStore.Put(stubs.NewActivityStub().Get())
		file = entityStore.Put(stubs.NewFileVersionStub().Get())
		actorID = "user-" + uuid.NewString()
	})

	do := func(method string, path string, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("X-Actor-ID", actorID)

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		return recorder
	}

	decode := func(recorder *httptest.ResponseRecorder, target any) {
		Expect(json.Unmarshal(recorder.Body.Bytes(), target)).To(Succeed())
	}

	usedBody := func() string {
		return `{"activity":{"id":"` + activity.Reference + `"},"entity":{"id":"` + file.Reference + `"}}`
	}

	Context("POST /v1/relations/{variant}", func() {
		It("creates the relation from the variant aliases", func() {
			// ACT
			recorder := do(http.MethodPost, "/v1/relations/used", usedBody())

			// ASSERT
			Expect(recorder.Code).To(Equal(http.StatusCreated))

			var response httpadapter.RelationDTO
			decode(recorder, &response)
			Expect(response.RelationshipType).To(Equal("used"))
			Expect(response.Kind).To(Equal("dds-used_prov_relation"))
			Expect(response.CreatorID).To(Equal(actorID))
			Expect(response.From).To(Equal(httpadapter.ReferenceDTO{Kind: activity.Type, ID: activity.Reference}))
			Expect(response.To).To(Equal(httpadapter.ReferenceDTO{Kind: file.Type, ID: file.Reference}))
			Expect(relationStore.All()).To(HaveLen(1))
		})

		It("accepts explicit from and to", func() {
			other := entityStore.Put(stubs.NewFileVersionStub().Get())
			body := `{"from":{"kind":"dds-fileversion","id":"` + other.Reference + `"},"to":{"kind":"dds-fileversion","id":"` + file.Reference + `"}}`

			recorder := do(http.MethodPost, "/v1/relations/was-derived-from", body)

			Expect(recorder.Code).To(Equal(http.StatusCreated))
		})

		It("maps the derivation aliases", func() {
			other := entityStore.Put(stubs.NewFileVersionStub().Get())
			body := `{"generated_entity":{"id":"` + other.Reference + `"},"used_entity":{"id":"` + file.Reference + `"}}`

			recorder := do(http.MethodPost, "/v1/relations/WasDerivedFrom", body)

			Expect(recorder.Code).To(Equal(http.StatusCreated))
			var response httpadapter.RelationDTO
			decode(recorder, &response)
			Expect(response.From.ID).To(Equal(other.Reference))
			Expect(response.To.ID).To(Equal(file.Reference))
		})

		It("returns 400 with the field for a duplicate", func() {
			Expect(do(http.MethodPost, "/v1/relations/used", usedBody()).Code).To(Equal(http.StatusCreated))

			recorder := do(http.MethodPost, "/v1/relations/used", usedBody())

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			var response httpadapter.ErrorDTO
			decode(recorder, &response)
			Expect(response).To(Equal(httpadapter.ErrorDTO{
				Error:  "validation failed",
				Field:  "relationship_type",
				Reason: "has already been taken",
			}))
		})

		It("returns 400 when the actor is missing", func() {
			actorID = ""

			recorder := do(http.MethodPost, "/v1/relations/used", usedBody())

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			var response httpadapter.ErrorDTO
			decode(recorder, &response)
			Expect(response.Field).To(Equal("creator"))
		})

		It("returns 400 for an invalid body", func() {
			Expect(do(http.MethodPost, "/v1/relations/used", "{").Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown variant", func() {
			Expect(do(http.MethodPost, "/v1/relations/was-followed-by", usedBody()).Code).To(Equal(http.StatusNotFound))
		})

		It("returns 404 when an endpoint does not exist", func() {
			body := `{"activity":{"id":"` + activity.Reference + `"},"entity":{"id":"fv-missing"}}`

			Expect(do(http.MethodPost, "/v1/relations/used", body).Code).To(Equal(http.StatusNotFound))
		})

		It("returns 403 when the policy refuses", func() {
			authorizer.DenyActions = map[string]bool{domain.ActionCreate: true}

			Expect(do(http.MethodPost, "/v1/relations/used", usedBody()).Code).To(Equal(http.StatusForbidden))
			Expect(relationStore.All()).To(BeEmpty())
		})

		It("returns 500 without leaking the cause", func() {
			relationStore.Err = errors.New("pq: password authentication failed")

			recorder := do(http.MethodPost, "/v1/relations/used", usedBody())

			Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
			Expect(recorder.Body.String()).ToNot(ContainSubstring("password"))
		})
	})

	Context("GET and DELETE /v1/relations/{id}", func() {
		var relationID string

		BeforeEach(func() {
			recorder := do(http.MethodPost, "/v1/relations/used", usedBody())
			Expect(recorder.Code).To(Equal(http.StatusCreated))
			var response httpadapter.RelationDTO
			decode(recorder, &response)
			relationID = response.ID
		})

		It("returns the relation", func() {
			recorder := do(http.MethodGet, "/v1/relations/"+relationID, "")

			Expect(recorder.Code).To(Equal(http.StatusOK))
			var response httpadapter.RelationDTO
			decode(recorder, &response)
			Expect(response.ID).To(Equal(relationID))
		})

		It("soft deletes it and answers 204 every time", func() {
			Expect(do(http.MethodDelete, "/v1/relations/"+relationID, "").Code).To(Equal(http.StatusNoContent))
			Expect(do(http.MethodDelete, "/v1/relations/"+relationID, "").Code).To(Equal(http.StatusNoContent))

			recorder := do(http.MethodGet, "/v1/relations/"+relationID, "")
			var response httpadapter.RelationDTO
			decode(recorder, &response)
			Expect(response.IsDeleted).To(BeTrue())
		})

		It("returns 403 when the actor cannot destroy it", func() {
			authorizer.DenyActions = map[string]bool{domain.ActionDestroy: true}

			Expect(do(http.MethodDelete, "/v1/relations/"+relationID, "").Code).To(Equal(http.StatusForbidden))
		})

		It("returns 404 for an unknown id", func() {
			Expect(do(http.MethodGet, "/v1/relations/"+uuid.NewString(), "").Code).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodDelete, "/v1/relations/"+uuid.NewString(), "").Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for an id that is not a uuid", func() {
			Expect(do(http.MethodGet, "/v1/relations/not-a-uuid", "").Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("GET /v1/relations/{kind}/{id}", func() {
		BeforeEach(func() {
			Expect(do(http.MethodPost, "/v1/relations/used", usedBody()).Code).To(Equal(http.StatusCreated))
		})

		It("returns the projection with pairs", func() {
			recorder := do(http.MethodGet, "/v1/relations/dds-activity/"+activity.Reference, "")

			Expect(recorder.Code).To(Equal(http.StatusOK))
			var response httpadapter.ProvenanceDTO
			decode(recorder, &response)
			Expect(response.Origin).To(Equal(httpadapter.ReferenceDTO{Kind: activity.Type, ID: activity.Reference}))
			Expect(response.Nodes).To(HaveLen(2))
			Expect(response.Relationships).To(HaveLen(1))
			Expect(response.Pairs).To(HaveLen(1))
			Expect(response.Pairs[0].Node.ID).To(Equal(file.Reference))
		})

		It("restricts objects the actor cannot see", func() {
			authorizer.DenySubjects = map[entities.Reference]bool{file.Ref(): true}

			recorder := do(http.MethodGet, "/v1/relations/dds-activity/"+activity.Reference, "")

			var response httpadapter.ProvenanceDTO
			decode(recorder, &response)
			Expect(response.Relationships[0].Restricted).To(BeTrue())
			Expect(response.Pairs[0].Node.Restricted).To(BeTrue())
		})

		It("returns 404 for an unknown kind", func() {
			Expect(do(http.MethodGet, "/v1/relations/dds-folder/x", "").Code).To(Equal(http.StatusNotFound))
		})

		It("returns 404 for a node missing from the graph", func() {
			Expect(do(http.MethodGet, "/v1/relations/dds-activity/ghost", "").Code).To(Equal(http.StatusNotFound))
		})
	})

	Context("/v1/entities/{kind}/{id}", func() {
		It("upserts, reads and soft deletes an entity", func() {
			recorder := do(http.MethodPut, "/v1/entities/dds-activity/act-new", `{"properties":{"name":"build"}}`)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			recorder = do(http.MethodGet, "/v1/entities/dds-activity/act-new", "")
			Expect(recorder.Code).To(Equal(http.StatusOK))
			var response httpadapter.EntityDTO
			decode(recorder, &response)
			Expect(string(response.Properties)).To(MatchJSON(`{"name":"build"}`))
			Expect(response.IsDeleted).To(BeFalse())

			Expect(do(http.MethodDelete, "/v1/entities/dds-activity/act-new", "").Code).To(Equal(http.StatusNoContent))

			recorder = do(http.MethodGet, "/v1/entities/dds-activity/act-new", "")
			decode(recorder, &response)
			Expect(response.IsDeleted).To(BeTrue())
		})

		It("returns 404 for an unknown kind", func() {
			Expect(do(http.MethodPut, "/v1/entities/dds-folder/x", `{}`).Code).To(Equal(http.StatusNotFound))
			Expect(do(http.MethodGet, "/v1/entities/dds-folder/x", "").Code).To(Equal(http.StatusNotFound))
		})

		It("returns 404 when deleting a missing entity", func() {
			Expect(do(http.MethodDelete, "/v1/entities/dds-activity/ghost", "").Code).To(Equal(http.StatusNotFound))
		})

		It("returns 403 when the actor cannot read it", func() {
			authorizer.DenyActions = map[string]bool{domain.ActionShow: true}

			Expect(do(http.MethodGet, "/v1/entities/"+activity.Type+"/"+activity.Reference, "").Code).To(Equal(http.StatusForbidden))
		})
	})
})
