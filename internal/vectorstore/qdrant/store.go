// Package qdrant keeps chunk vectors in a Qdrant collection while documents
// stay in the relational database.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"clinic-faq-assistant/internal/rag"
	"clinic-faq-assistant/internal/vectorstore"
)

const (
	payloadDocumentID = "document_id"
	payloadContent    = "content"
	payloadVersion    = "embedding_version"
)

type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

type Store struct {
	*vectorstore.Documents
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
	apiKey      string
}

// Dial opens a gRPC connection to Qdrant. The connection is lazy; call
// EnsureCollection to verify it.
func Dial(addr, apiKey, collection string, docs *vectorstore.Documents) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s failed: %w", addr, err)
	}
	s := NewWithClients(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), collection, docs)
	s.conn = conn
	s.apiKey = apiKey
	return s, nil
}

func NewWithClients(points pointsAPI, collections collectionsAPI, collection string, docs *vectorstore.Documents) *Store {
	return &Store{
		Documents:   docs,
		points:      points,
		collections: collections,
		collection:  collection,
	}
}

func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// EnsureCollection creates the collection with cosine distance if missing.
func (s *Store) EnsureCollection(ctx context.Context, dims int) error {
	ctx = s.withAuth(ctx)
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list qdrant collections failed: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create qdrant collection %s failed: %w", s.collection, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.collections.List(s.withAuth(ctx), &pb.ListCollectionsRequest{})
	return err
}

func (s *Store) InsertChunk(ctx context.Context, chunk rag.Chunk) error {
	wait := true
	_, err := s.points.Upsert(s.withAuth(ctx), &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: uuid.NewString()},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: chunk.Embedding},
				},
			},
			Payload: map[string]*pb.Value{
				payloadDocumentID: {Kind: &pb.Value_IntegerValue{IntegerValue: int64(chunk.DocumentID)}},
				payloadContent:    {Kind: &pb.Value_StringValue{StringValue: chunk.Content}},
				payloadVersion:    {Kind: &pb.Value_StringValue{StringValue: chunk.EmbeddingVersion}},
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("upsert qdrant point for document %d failed: %w", chunk.DocumentID, err)
	}
	return nil
}

func (s *Store) DeleteChunks(ctx context.Context, documentID uint) error {
	wait := true
	_, err := s.points.Delete(s.withAuth(ctx), &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{integerMatch(payloadDocumentID, int64(documentID))},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete qdrant points for document %d failed: %w", documentID, err)
	}
	return nil
}

// NearestChunks searches points of the given embedding version and joins
// document title and category from the database.
func (s *Store) NearestChunks(ctx context.Context, query []float32, version string, k int) ([]rag.QueryResult, error) {
	resp, err := s.points.Search(s.withAuth(ctx), &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         query,
		Limit:          uint64(k),
		Filter:         &pb.Filter{Must: []*pb.Condition{keywordMatch(payloadVersion, version)}},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("search qdrant failed: %w", err)
	}

	hits := resp.GetResult()
	ids := make([]uint, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, uint(h.GetPayload()[payloadDocumentID].GetIntegerValue()))
	}
	docs, err := s.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]rag.QueryResult, 0, len(hits))
	for i, h := range hits {
		doc, ok := docs[ids[i]]
		if !ok {
			// document removed after ingestion
			continue
		}
		results = append(results, rag.QueryResult{
			Content:    h.GetPayload()[payloadContent].GetStringValue(),
			Title:      doc.Title,
			Category:   doc.Category,
			Similarity: float64(h.GetScore()),
		})
	}
	return results, nil
}

func (s *Store) withAuth(ctx context.Context) context.Context {
	if s.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
}

func keywordMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func integerMatch(key string, value int64) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Integer{Integer: value}},
			},
		},
	}
}
