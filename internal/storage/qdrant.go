package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// scrollBatchSize is the page size used when walking the whole collection.
const scrollBatchSize = 100

// QdrantConfig configures the Qdrant idea store.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string // defaults to DefaultCollection
	Dimension  int    // defaults to DefaultVectorDimension
}

var _ Store = (*QdrantStorage)(nil)

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(cfg QdrantConfig) (*QdrantStorage, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultVectorDimension
	}

	// Create Qdrant client using gRPC
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}

	err = storage.healthCheckWithRetry(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	operation := func() error {
		return s.Health(ctx)
	}
	return backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection creates the ideas collection (cosine distance) and its title index
// if it does not exist yet. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      "title",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field title: %w", err)
	}

	return nil
}

// ClearCollection drops and recreates the collection.
func (s *QdrantStorage) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx))
}

// UpsertIdea stores or replaces an idea keyed by its title.
func (s *QdrantStorage) UpsertIdea(ctx context.Context, idea *Idea) error {
	if len(idea.Embedding) != s.dimension {
		return fmt.Errorf("%w: idea %q has %d dimensions, expected %d",
			ErrDimensionMismatch, idea.Title, len(idea.Embedding), s.dimension)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(PointID(idea.Title)),
		Vectors: qdrant.NewVectors(idea.Embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"title":    idea.Title,
			"document": idea.Document,
		}),
	}

	return s.upsertWithRetry(ctx, []*qdrant.PointStruct{point})
}

// DeleteIdea removes an idea by title. Deleting a missing idea is not an error.
func (s *QdrantStorage) DeleteIdea(ctx context.Context, title string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(PointID(title))),
	})
	if err != nil {
		return fmt.Errorf("failed to delete idea %q: %w", title, err)
	}
	return nil
}

// SearchSimilar returns the titles of the ideas closest to the embedding, best first.
func (s *QdrantStorage) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]string, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayloadInclude("title"),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search ideas: %w", err)
	}

	titles := make([]string, 0, len(results))
	for _, result := range results {
		titles = append(titles, result.Payload["title"].GetStringValue())
	}
	return titles, nil
}

// GetIdea retrieves a single idea with its embedding.
// Returns ErrIdeaNotFound if no idea has the title.
func (s *QdrantStorage) GetIdea(ctx context.Context, title string) (*Idea, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(PointID(title))},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get idea: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrIdeaNotFound
	}

	point := result[0]
	return &Idea{
		Title:     point.Payload["title"].GetStringValue(),
		Document:  point.Payload["document"].GetStringValue(),
		Embedding: point.Vectors.GetVector().GetData(),
	}, nil
}

// GetAll returns up to maxItems ideas with their documents and embeddings.
// Uses the Scroll API, so ordering follows point ids and is stable between calls.
func (s *QdrantStorage) GetAll(ctx context.Context, maxItems int) (*Corpus, error) {
	corpus := &Corpus{}
	var offset *qdrant.PointId

	for maxItems <= 0 || corpus.Len() < maxItems {
		batch := uint32(scrollBatchSize)
		if maxItems > 0 {
			batch = uint32(min(scrollBatchSize, maxItems-corpus.Len()))
		}

		// The offset point is returned again at the head of the next page.
		limit := batch
		if offset != nil {
			limit++
		}

		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          qdrant.PtrOf(limit),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll ideas: %w", err)
		}
		if offset != nil && len(results) > 0 && results[0].Id.GetUuid() == offset.GetUuid() {
			results = results[1:]
		}

		for _, point := range results {
			corpus.IDs = append(corpus.IDs, point.Payload["title"].GetStringValue())
			corpus.Documents = append(corpus.Documents, point.Payload["document"].GetStringValue())
			corpus.Embeddings = append(corpus.Embeddings, point.Vectors.GetVector().GetData())
		}

		// Stop if we got fewer results than batch size (no more pages)
		if uint32(len(results)) < batch {
			break
		}
		offset = results[len(results)-1].Id
	}

	return corpus, nil
}

// Count returns the number of ideas in the collection.
func (s *QdrantStorage) Count(ctx context.Context) (uint64, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection info: %w", err)
	}
	return info.GetPointsCount(), nil
}
