package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	apihttp "provenancegraph/src/adapters/http"
	"provenancegraph/src/domain"
	"provenancegraph/src/domain/catalog"
	"provenancegraph/src/domain/kinds"
	"provenancegraph/src/helper/env"
	"provenancegraph/src/infra/kafka"
	graphdb "provenancegraph/src/infra/neo4j"
	"provenancegraph/src/infra/postgres"
	"provenancegraph/src/infra/redis"
	"provenancegraph/src/repositories"
	"provenancegraph/src/services/authz"
	"provenancegraph/src/services/events"
	"provenancegraph/src/services/graphsync"
	"provenancegraph/src/services/projection"
	"provenancegraph/src/services/provenance"

	"go.uber.org/fx"
)

func main() {
	// Configurar logger
	log.SetOutput(os.Stdout)
	log.Println("Starting provenance API server with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newReadWriteClient,
			newRedisClient,
			newNeo4jClient,
			newKafkaClient,
			newRelationWriteRepository,
			newRelationQueryRepository,
			newEntityRepository,
			newGraphMirrorRepository,
			newCachedGraphQueryRepository,
			newSynchronizer,
			newMirrorDispatcher,
			newAuditRecorder,
			newProvenanceService,
			newProjector,
			newAuthorizer,
			newServer,
		),

		// Invocations
		// Close hooks primeiro: no Stop eles rodam por último.
		fx.Invoke(registerCloseHooks, runMigrations, ensureGraphSchema, registerServerHooks),
	)

	// Start the application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wait for app to exit gracefully
	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}
}

func newLogger() *slog.Logger {
	logLevel := env.GetString("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func newReadWriteClient() (*postgres.ReadWriteClient, error) {
	dbReadHost := env.MustGetString("DB_READ_HOST")
	dbWriteHost := env.MustGetString("DB_WRITE_HOST")
	dbReadPort := env.GetString("DB_READ_PORT", "5432")
	dbWritePort := env.GetString("DB_WRITE_PORT", "5432")
	dbname := env.MustGetString("DB_NAME")
	dbUser := env.MustGetString("DB_USER")
	dbPassword := env.MustGetString("DB_PASSWORD")
	maxConnections := env.GetInt("DB_MAX_POOL_CONNECTIONS", 25)

	return postgres.NewReadWriteClient(dbReadHost, dbWriteHost, dbReadPort, dbWritePort, dbname, dbUser, dbPassword, maxConnections)
}

func newRedisClient() *redis.RedisClient {
	redisHosts := env.MustGetString("REDIS_HOSTS")
	redisPoolSize := env.GetInt("REDIS_POOL_SIZE", 50)
	redisDefaultTTLSeconds := env.GetInt("REDIS_DEFAULT_TTL_SECONDS", 120)
	redisDefaultTTL := time.Duration(redisDefaultTTLSeconds) * time.Second

	return redis.NewRedisClient(redisHosts, redisPoolSize, redisDefaultTTL)
}

func newNeo4jClient() (*graphdb.Neo4jClient, error) {
	uri := env.MustGetString("NEO4J_URI")
	user := env.MustGetString("NEO4J_USER")
	password := env.MustGetString("NEO4J_PASSWORD")
	database := env.GetString("NEO4J_DATABASE", "neo4j")
	maxConnections := env.GetInt("NEO4J_MAX_POOL_CONNECTIONS", 50)

	return graphdb.NewNeo4jClient(uri, user, password, database, maxConnections)
}

// newKafkaClient devolve nil quando não há broker: auditoria vai para o log
// e o espelho só pode rodar em modo sync.
func newKafkaClient() (*kafka.KafkaClient, error) {
	brokers := env.GetString("KAFKA_BROKERS", "")
	if brokers == "" {
		return nil, nil
	}

	batchSize := env.GetInt("KAFKA_BATCH_SIZE", 100)
	return kafka.NewKafkaClient(brokers, "", batchSize)
}

func newRelationWriteRepository(readWriteClient *postgres.ReadWriteClient) *repositories.RelationWriteRepository {
	return repositories.NewRelationWriteRepository(readWriteClient.GetWritePool())
}

func newRelationQueryRepository(readWriteClient *postgres.ReadWriteClient) *repositories.RelationQueryRepository {
	return repositories.NewRelationQueryRepository(readWriteClient.GetReadPool())
}

func newEntityRepository(readWriteClient *postgres.ReadWriteClient) *repositories.EntityRepository {
	return repositories.NewEntityRepository(readWriteClient.GetWritePool(), readWriteClient.GetReadPool())
}

func newGraphMirrorRepository(client *graphdb.Neo4jClient) *repositories.GraphMirrorRepository {
	return repositories.NewGraphMirrorRepository(client)
}

func newCachedGraphQueryRepository(client *graphdb.Neo4jClient, redisClient *redis.RedisClient) *repositories.CachedGraphQueryRepository {
	return repositories.NewCachedGraphQueryRepository(repositories.NewGraphQueryRepository(client), redisClient)
}

func newSynchronizer(
	logger *slog.Logger,
	graphMirrorRepository *repositories.GraphMirrorRepository,
	cachedGraphQueryRepository *repositories.CachedGraphQueryRepository,
) *graphsync.Synchronizer {
	return graphsync.NewSynchronizer(graphMirrorRepository, cachedGraphQueryRepository, logger)
}

func newMirrorDispatcher(
	logger *slog.Logger,
	synchronizer *graphsync.Synchronizer,
	kafkaClient *kafka.KafkaClient,
) (provenance.MirrorDispatcher, error) {
	mode := env.GetString("GRAPH_SYNC_MODE", "sync")

	switch mode {
	case "sync":
		return graphsync.NewInlineDispatcher(synchronizer), nil
	case "async":
		if kafkaClient == nil {
			return nil, fmt.Errorf("GRAPH_SYNC_MODE=async requires KAFKA_BROKERS")
		}
		topic := env.MustGetString("KAFKA_GRAPH_SYNC_TOPIC")
		return graphsync.NewKafkaDispatcher(logger, kafkaClient, topic), nil
	case "cdc":
		// O graph-sync-consumer espelha a partir do fluxo do Debezium.
		return graphsync.NewDeferredDispatcher(logger), nil
	default:
		return nil, fmt.Errorf("unknown GRAPH_SYNC_MODE %q", mode)
	}
}

func newAuditRecorder(logger *slog.Logger, kafkaClient *kafka.KafkaClient) domain.AuditRecorder {
	// Um *KafkaClient nil dentro da interface não seria nil.
	var producer events.MessageProducer
	if kafkaClient != nil {
		producer = kafkaClient
	}
	return events.NewAuditRecorder(logger, producer, env.GetString("KAFKA_AUDIT_TOPIC"))
}

func newProvenanceService(
	logger *slog.Logger,
	relationWriteRepository *repositories.RelationWriteRepository,
	relationQueryRepository *repositories.RelationQueryRepository,
	entityRepository *repositories.EntityRepository,
	dispatcher provenance.MirrorDispatcher,
	auditor domain.AuditRecorder,
) *provenance.ProvenanceService {
	return provenance.NewProvenanceService(logger, relationWriteRepository, relationQueryRepository, entityRepository, dispatcher, auditor)
}

func newProjector(
	logger *slog.Logger,
	cachedGraphQueryRepository *repositories.CachedGraphQueryRepository,
	relationQueryRepository *repositories.RelationQueryRepository,
	entityRepository *repositories.EntityRepository,
) *projection.Projector {
	return projection.NewProjector(logger, cachedGraphQueryRepository, relationQueryRepository, entityRepository)
}

func newAuthorizer() domain.Authorizer {
	return authz.AllowAll{}
}

func newServer(
	logger *slog.Logger,
	provenanceService *provenance.ProvenanceService,
	projector *projection.Projector,
	authorizer domain.Authorizer,
) *apihttp.Server {

	port := 8888 // default value
	if portStr := os.Getenv("SERVER_ADDR"); portStr != "" {
		if val, err := strconv.Atoi(portStr); err == nil {
			port = val
		}
	}

	return apihttp.NewServer(logger, port, provenanceService, projector, authorizer)
}

func runMigrations(lc fx.Lifecycle, logger *slog.Logger, readWriteClient *postgres.ReadWriteClient) {
	if !env.GetBool("DB_RUN_MIGRATIONS", false) {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Running relational migrations")
			return postgres.RunMigrations(ctx, readWriteClient.GetWritePool())
		},
	})
}

func ensureGraphSchema(lc fx.Lifecycle, graphMirrorRepository *repositories.GraphMirrorRepository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return graphMirrorRepository.EnsureSchema(ctx, nodeLabels(), edgeLabels())
		},
	})
}

func nodeLabels() []string {
	entityKinds := kinds.Default.EntityKinds()
	labels := make([]string, 0, len(entityKinds))
	for _, kind := range entityKinds {
		label, err := kinds.Label(kind)
		if err != nil {
			continue
		}
		labels = append(labels, label)
	}
	return labels
}

func edgeLabels() []string {
	definitions := catalog.All()
	labels := make([]string, len(definitions))
	for i, def := range definitions {
		labels[i] = def.EdgeLabel
	}
	return labels
}

// registerServerHooks registers lifecycle hooks for the HTTP server
func registerServerHooks(lc fx.Lifecycle, srv *apihttp.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Start server in a separate goroutine
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Server failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Create timeout context for graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			log.Println("Shutting down server...")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Server forced to shutdown: %v", err)
				return err
			}
			log.Println("Server exited gracefully")
			return nil
		},
	})
}

// registerCloseHooks fecha as conexões depois que o servidor parou.
func registerCloseHooks(
	lc fx.Lifecycle,
	readWriteClient *postgres.ReadWriteClient,
	redisClient *redis.RedisClient,
	neo4jClient *graphdb.Neo4jClient,
	kafkaClient *kafka.KafkaClient,
) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if kafkaClient != nil {
				if err := kafkaClient.Close(); err != nil {
					log.Printf("Failed to close Kafka client: %v", err)
				}
			}
			if err := neo4jClient.Close(ctx); err != nil {
				log.Printf("Failed to close Neo4j driver: %v", err)
			}
			if err := redisClient.Close(); err != nil {
				log.Printf("Failed to close Redis client: %v", err)
			}
			readWriteClient.Close()
			return nil
		},
	})
}
