package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"provenancegraph/src/adapters/kafka/consumers"
	"provenancegraph/src/helper/env"
	"provenancegraph/src/infra/debezium"
	"provenancegraph/src/infra/kafka"
	graphdb "provenancegraph/src/infra/neo4j"
	"provenancegraph/src/infra/redis"
	"provenancegraph/src/repositories"
	"provenancegraph/src/services/events"
	"provenancegraph/src/services/graphsync"

	"go.uber.org/fx"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting Graph Sync Consumer with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newRedisClient,
			newNeo4jClient,
			newKafkaClient,
			newGraphMirrorRepository,
			newCachedGraphQueryRepository,
			newSynchronizer,
			newGraphSyncConsumer,
			newCDCMirrorConsumer,
		),

		// Invocations
		fx.Invoke(startConsumer),
	)

	// Start the application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start consumer application: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down graph sync consumer...")

	// Stop the application
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}

	log.Println("Graph sync consumer shutdown complete")
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

func newKafkaClient() (*kafka.KafkaClient, error) {
	brokers := env.MustGetString("KAFKA_BROKERS")
	groupID := env.GetString("KAFKA_GRAPH_SYNC_CONSUMER_GROUP_ID", "provenance-graph-sync")
	batchSize := env.GetInt("KAFKA_BATCH_SIZE", 100)

	return kafka.NewKafkaClient(brokers, groupID, batchSize)
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

func newGraphSyncConsumer(logger *slog.Logger, synchronizer *graphsync.Synchronizer) *consumers.GraphSyncConsumer {
	return consumers.NewGraphSyncConsumer(logger, synchronizer)
}

// newCDCMirrorConsumer devolve nil quando KAFKA_CDC_TOPIC não está configurado.
// Usa um consumer group próprio: o do comando de espelho não pode consumir
// dois tópicos em paralelo.
func newCDCMirrorConsumer(
	logger *slog.Logger,
	synchronizer *graphsync.Synchronizer,
) (*consumers.CDCMirrorConsumer, error) {
	topic := env.GetString("KAFKA_CDC_TOPIC", "")
	if topic == "" {
		return nil, nil
	}

	kafkaClient, err := kafka.NewKafkaClient(
		env.MustGetString("KAFKA_BROKERS"),
		env.MustGetString("KAFKA_CDC_CONSUMER_GROUP_ID"),
		env.GetInt("KAFKA_BATCH_SIZE", 100),
	)
	if err != nil {
		return nil, err
	}

	tables := env.GetString("KAFKA_CDC_TABLES", "entities,prov_relations")
	cdcClient := debezium.NewCDCClient(logger, topic, kafkaClient, strings.Split(tables, ","))

	return consumers.NewCDCMirrorConsumer(logger, cdcClient, events.NewCDCTransformer(logger), synchronizer), nil
}

func startConsumer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
	neo4jClient *graphdb.Neo4jClient,
	redisClient *redis.RedisClient,
	graphSyncConsumer *consumers.GraphSyncConsumer,
	cdcMirrorConsumer *consumers.CDCMirrorConsumer,
) {
	// O ctx do OnStart expira junto com o start; o consumer precisa do seu.
	consumerCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			topic := env.GetString("KAFKA_GRAPH_SYNC_TOPIC", "")
			if topic == "" && cdcMirrorConsumer == nil {
				return fmt.Errorf("set KAFKA_GRAPH_SYNC_TOPIC, KAFKA_CDC_TOPIC or both")
			}

			if topic != "" {
				logger.Info("Starting graph sync consumer", "topic", topic)
				go func() {
					if err := graphSyncConsumer.Start(consumerCtx, kafkaClient, topic); err != nil {
						logger.Error("Consumer failed", "error", err)
					}
				}()
			}

			if cdcMirrorConsumer != nil {
				go func() {
					if err := cdcMirrorConsumer.Start(consumerCtx); err != nil {
						logger.Error("CDC consumer failed", "error", err)
					}
				}()
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()

			logger.Info("Shutting down Kafka client...")
			if err := kafkaClient.Close(); err != nil {
				logger.Error("Failed to close Kafka client", "error", err)
				return err
			}
			if cdcMirrorConsumer != nil {
				if err := cdcMirrorConsumer.Close(); err != nil {
					logger.Error("Failed to close CDC client", "error", err)
				}
			}
			if err := neo4jClient.Close(ctx); err != nil {
				logger.Error("Failed to close Neo4j driver", "error", err)
			}
			if err := redisClient.Close(); err != nil {
				logger.Error("Failed to close Redis client", "error", err)
			}
			logger.Info("Kafka client shut down gracefully")
			return nil
		},
	})
}
