package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/catalog"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
	"provenancegraph/src/helper/env"
	graphdb "provenancegraph/src/infra/neo4j"
	"provenancegraph/src/infra/postgres"
	"provenancegraph/src/infra/redis"
	"provenancegraph/src/repositories"
	"provenancegraph/src/services/events"
	"provenancegraph/src/services/graphsync"
	"provenancegraph/src/services/provenance"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-faker/faker/v4"
)

// seed popula um ambiente local com agentes, atividades e versões de
// arquivo ligados por relações de proveniência válidas.
func main() {
	activities := flag.Int("activities", 20, "number of activities to create")
	filesPerActivity := flag.Int("files", 3, "file versions used by each activity")
	flag.Parse()

	log.SetOutput(os.Stdout)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := context.Background()

	readWriteClient, err := postgres.NewReadWriteClient(
		env.MustGetString("DB_READ_HOST"),
		env.MustGetString("DB_WRITE_HOST"),
		env.GetString("DB_READ_PORT", "5432"),
		env.GetString("DB_WRITE_PORT", "5432"),
		env.MustGetString("DB_NAME"),
		env.MustGetString("DB_USER"),
		env.MustGetString("DB_PASSWORD"),
		10,
	)
	if err != nil {
		log.Fatalf("Failed to connect postgres: %v", err)
	}
	defer readWriteClient.Close()

	if err := postgres.RunMigrations(ctx, readWriteClient.GetWritePool()); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	neo4jClient, err := graphdb.NewNeo4jClient(
		env.MustGetString("NEO4J_URI"),
		env.MustGetString("NEO4J_USER"),
		env.MustGetString("NEO4J_PASSWORD"),
		env.GetString("NEO4J_DATABASE", "neo4j"),
		10,
	)
	if err != nil {
		log.Fatalf("Failed to connect neo4j: %v", err)
	}
	defer neo4jClient.Close(ctx)

	redisClient := redis.NewRedisClient(env.MustGetString("REDIS_HOSTS"), 10, 120*time.Second)
	defer redisClient.Close()

	mirrorRepository := repositories.NewGraphMirrorRepository(neo4jClient)
	if err := mirrorRepository.EnsureSchema(ctx, nodeLabels(), edgeLabels()); err != nil {
		log.Fatalf("Failed to ensure graph schema: %v", err)
	}

	cachedGraphQueryRepository := repositories.NewCachedGraphQueryRepository(repositories.NewGraphQueryRepository(neo4jClient), redisClient)
	synchronizer := graphsync.NewSynchronizer(mirrorRepository, cachedGraphQueryRepository, logger)

	service := provenance.NewProvenanceService(
		logger,
		repositories.NewRelationWriteRepository(readWriteClient.GetWritePool()),
		repositories.NewRelationQueryRepository(readWriteClient.GetReadPool()),
		repositories.NewEntityRepository(readWriteClient.GetWritePool(), readWriteClient.GetReadPool()),
		graphsync.NewInlineDispatcher(synchronizer),
		events.NewLogRecorder(logger),
	)

	seeder := &seeder{ctx: ctx, service: service}

	agent := seeder.entity(kinds.SoftwareAgent, "agent-"+faker.UUIDHyphenated(), map[string]any{
		"name":    "ingest-" + faker.Word(),
		"version": gofakeit.AppVersion(),
	})

	for i := 0; i < *activities; i++ {
		user := seeder.entity(kinds.User, "user-"+faker.UUIDHyphenated(), map[string]any{
			"full_name": faker.Name(),
			"username":  faker.Username(),
			"email":     faker.Email(),
		})

		activity := seeder.entity(kinds.Activity, "act-"+faker.UUIDHyphenated(), map[string]any{
			"name":       gofakeit.HackerVerb() + " " + gofakeit.HackerNoun(),
			"started_on": gofakeit.PastDate().Format(time.RFC3339),
		})

		seeder.relate(catalog.WasAssociatedWith, user.ID, user, activity)
		seeder.relate(catalog.WasAssociatedWith, user.ID, agent, activity)

		used := make([]entities.Reference, 0, *filesPerActivity)
		for j := 0; j < *filesPerActivity; j++ {
			file := seeder.fileVersion(j + 1)
			seeder.relate(catalog.Used, user.ID, activity, file)
			used = append(used, file)
		}

		generated := seeder.fileVersion(1)
		seeder.relate(catalog.WasGeneratedBy, user.ID, generated, activity)
		seeder.relate(catalog.WasAttributedTo, user.ID, generated, user)
		seeder.relate(catalog.WasDerivedFrom, user.ID, generated, used[rand.Intn(len(used))])
	}

	log.Printf("Seed complete: %d entities, %d relations, %d failures", seeder.entities, seeder.relations, seeder.failures)
}

type seeder struct {
	ctx       context.Context
	service   *provenance.ProvenanceService
	entities  int
	relations int
	failures  int
}

func (s *seeder) entity(kind string, id string, properties map[string]any) entities.Reference {
	ref := entities.Reference{Kind: kind, ID: id}

	propsJSON, _ := json.Marshal(properties)
	if _, err := s.service.UpsertEntity(s.ctx, ref, propsJSON, "seed"); err != nil {
		log.Fatalf("Failed to seed %s: %v", ref, err)
	}

	s.entities++
	return ref
}

func (s *seeder) fileVersion(version int) entities.Reference {
	return s.entity(kinds.FileVersion, "fv-"+faker.UUIDHyphenated(), map[string]any{
		"label":     gofakeit.Word() + "." + gofakeit.FileExtension(),
		"version":   version,
		"mime_type": gofakeit.FileMimeType(),
		"size":      gofakeit.Number(1024, 50*1024*1024),
	})
}

func (s *seeder) relate(variant catalog.Variant, creatorID string, from entities.Reference, to entities.Reference) {
	_, err := s.service.CreateRelation(s.ctx, domain.CreateRelationRequest{
		Variant:   variant.String(),
		CreatorID: creatorID,
		From:      from,
		To:        to,
	})
	if err != nil {
		s.failures++
		log.Printf("Failed to seed %s %s -> %s: %v", variant, from, to, err)
		return
	}
	s.relations++
}

func nodeLabels() []string {
	var labels []string
	for _, kind := range kinds.Default.EntityKinds() {
		if label, err := kinds.Label(kind); err == nil {
			labels = append(labels, label)
		}
	}
	return labels
}

func edgeLabels() []string {
	var labels []string
	for _, def := range catalog.All() {
		labels = append(labels, def.EdgeLabel)
	}
	return labels
}

