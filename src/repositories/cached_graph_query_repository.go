package repositories

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"provenancegraph/src/domain/entities"
	"provenancegraph/src/infra/redis"
)

// GraphReader is the read side of the graph mirror.
type GraphReader interface {
	FindNode(ctx context.Context, label string, ref entities.Reference) (*entities.GraphNode, error)
	IncidentEdges(ctx context.Context, node entities.GraphNode) ([]entities.GraphEdge, error)
}

// CachedGraphQueryRepository keeps incident edge lists in Redis. Every cached
// list is registered under each node it touches so a write on any of them
// drops it.
type CachedGraphQueryRepository struct {
	graphReader GraphReader
	redisClient *redis.RedisClient
}

type cacheableEdges struct {
	Edges []entities.GraphEdge `json:"edges"`
}

func NewCachedGraphQueryRepository(graphReader GraphReader, redisClient *redis.RedisClient) *CachedGraphQueryRepository {
	return &CachedGraphQueryRepository{
		graphReader: graphReader,
		redisClient: redisClient,
	}
}

// FindNode não passa pelo cache: é uma leitura pontual e barata.
func (r *CachedGraphQueryRepository) FindNode(ctx context.Context, label string, ref entities.Reference) (*entities.GraphNode, error) {
	return r.graphReader.FindNode(ctx, label, ref)
}

func (r *CachedGraphQueryRepository) IncidentEdges(ctx context.Context, node entities.GraphNode) ([]entities.GraphEdge, error) {
	cacheKey := r.generateCacheKey(node.Ref())

	cached, found, err := r.getFromCache(ctx, cacheKey)
	if found && err == nil {
		log.Printf("Cache HIT for key: %s", cacheKey)
		return cached, nil
	}

	if err != nil {
		// Erro de cache não derruba a leitura; seguimos para o grafo.
		log.Printf("Cache error for key %s: %v", cacheKey, err)
	}

	log.Printf("Cache MISS for key: %s", cacheKey)

	// A época é lida antes do grafo: se mudar até o SET terminar, a lista
	// lida pode ser anterior a uma escrita cuja invalidação não a encontrou.
	epoch, epochErr := r.redisClient.GetCounter(ctx, invalidationEpochKey)

	edges, err := r.graphReader.IncidentEdges(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("graph query failed: %w", err)
	}

	if epochErr != nil {
		log.Printf("Cache epoch unavailable, skipping SET for key %s: %v", cacheKey, epochErr)
		return edges, nil
	}

	// Síncrono: um SET atrasado poderia sobrescrever uma invalidação mais nova.
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if r.setInCache(ctxWithTimeout, cacheKey, node.Ref(), edges) {
		r.discardIfInvalidated(ctxWithTimeout, cacheKey, epoch)
	}

	return edges, nil
}

// discardIfInvalidated apaga a lista recém-gravada quando alguma invalidação
// correu entre a leitura da época e o SET. Uma invalidação posterior ao SET
// já encontra a chave nos registries.
func (r *CachedGraphQueryRepository) discardIfInvalidated(ctx context.Context, cacheKey string, epoch int64) {
	current, err := r.redisClient.GetCounter(ctx, invalidationEpochKey)
	if err == nil && current == epoch {
		return
	}

	log.Printf("Cache invalidated during fill, discarding key: %s", cacheKey)
	if err := r.redisClient.DeleteKeys(ctx, []string{cacheKey}); err != nil {
		log.Printf("Failed to discard cache key %s: %v", cacheKey, err)
	}
}

// InvalidateByReferences drops every cached list that mentions one of refs.
func (r *CachedGraphQueryRepository) InvalidateByReferences(ctx context.Context, refs []entities.Reference) error {
	if len(refs) == 0 {
		return nil
	}

	// A época sobe antes de ler os registries; ver discardIfInvalidated.
	if err := r.redisClient.IncrCounter(ctx, invalidationEpochKey); err != nil {
		return fmt.Errorf("CachedGraphQueryRepository.InvalidateByReferences - epoch: %w", err)
	}

	registryKeys := make([]string, 0, len(refs))
	for _, ref := range refs {
		registryKeys = append(registryKeys, registryKey(ref))
	}

	members, err := r.redisClient.GetMultipleSetMembers(ctx, registryKeys)
	if err != nil {
		return fmt.Errorf("CachedGraphQueryRepository.InvalidateByReferences - registry lookup failed: %w", err)
	}

	seen := make(map[string]bool)
	keys := make([]string, 0, len(registryKeys))
	for _, registry := range registryKeys {
		keys = append(keys, registry)
		for _, cacheKey := range members[registry] {
			if !seen[cacheKey] {
				seen[cacheKey] = true
				keys = append(keys, cacheKey)
			}
		}
	}

	if err := r.redisClient.DeleteKeys(ctx, keys); err != nil {
		return fmt.Errorf("CachedGraphQueryRepository.InvalidateByReferences - %w", err)
	}

	log.Printf("Cache invalidated: %d references, %d cached lists", len(refs), len(seen))
	return nil
}

func (r *CachedGraphQueryRepository) generateCacheKey(ref entities.Reference) string {
	hash := md5.Sum([]byte("incident:" + ref.String()))
	return fmt.Sprintf("provenance:incident:%x", hash)
}

const invalidationEpochKey = "provenance:invalidation-epoch"

func registryKey(ref entities.Reference) string {
	return fmt.Sprintf("registry:node:%s:%s", ref.Kind, ref.ID)
}

func (r *CachedGraphQueryRepository) getFromCache(ctx context.Context, cacheKey string) ([]entities.GraphEdge, bool, error) {
	cachedJSON, found, err := r.redisClient.GetKey(ctx, cacheKey)
	if !found || err != nil {
		return nil, found, err
	}

	var result cacheableEdges
	if err := json.Unmarshal([]byte(cachedJSON), &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	return result.Edges, true, nil
}

func (r *CachedGraphQueryRepository) setInCache(ctx context.Context, cacheKey string, origin entities.Reference, edges []entities.GraphEdge) bool {
	dataJSON, err := json.Marshal(cacheableEdges{Edges: edges})
	if err != nil {
		log.Printf("Failed to marshal cache data for key %s: %v", cacheKey, err)
		return false
	}

	registered := map[entities.Reference]bool{origin: true}
	registryKeys := []string{registryKey(origin)}
	for _, edge := range edges {
		for _, ref := range []entities.Reference{edge.From.Ref(), edge.To.Ref()} {
			if !registered[ref] {
				registered[ref] = true
				registryKeys = append(registryKeys, registryKey(ref))
			}
		}
	}

	if err := r.redisClient.SetWithRegistry(ctx, cacheKey, string(dataJSON), registryKeys); err != nil {
		log.Printf("Failed to set cache with registry for key %s: %v", cacheKey, err)
		return false
	}

	log.Printf("Cache SET with registry for key: %s (%d edges)", cacheKey, len(edges))
	return true
}
