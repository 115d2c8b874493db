// Package index stores message vectors in Qdrant for similarity search.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/gramsift/gramsift/internal/core"
)

const defaultCollection = "gramsift_messages"

// Index wraps a Qdrant collection of message vectors.
type Index struct {
	conn       *grpc.ClientConn
	collection string
}

// Point is one message vector with its payload.
type Point struct {
	Source    core.SourceID
	MessageID int64
	Text      string
	Keywords  []string
	Vector    []float32
}

// Hit is one similarity search result.
type Hit struct {
	Score     float32
	Source    core.SourceID
	MessageID int64
	Text      string
}

// Connect dials the Qdrant gRPC endpoint.
func Connect(addr, collection string) (*Index, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = "localhost:6334"
	}
	if strings.TrimSpace(collection) == "" {
		collection = defaultCollection
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}
	return &Index{conn: conn, collection: collection}, nil
}

// Close releases the gRPC connection.
func (x *Index) Close() error {
	if x == nil || x.conn == nil {
		return nil
	}
	return x.conn.Close()
}

// Collection returns the collection name in use.
func (x *Index) Collection() string {
	if x == nil {
		return ""
	}
	return x.collection
}

// EnsureCollection creates the collection if it does not exist yet.
func (x *Index) EnsureCollection(ctx context.Context, vectorSize int) error {
	if x == nil || x.conn == nil {
		return errors.New("index is not connected")
	}
	if vectorSize <= 0 {
		return errors.New("vector size must be positive")
	}

	collections := qdrant.NewCollectionsClient(x.conn)
	_, err := collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: x.collection})
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.NotFound {
		return fmt.Errorf("check collection %q: %w", x.collection, err)
	}

	_, err = collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(vectorSize),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", x.collection, err)
	}
	return nil
}

// Upsert writes message points into the collection.
func (x *Index) Upsert(ctx context.Context, points []Point) error {
	if x == nil || x.conn == nil {
		return errors.New("index is not connected")
	}
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if len(p.Vector) == 0 {
			continue
		}
		payload := map[string]*qdrant.Value{
			"source":     {Kind: &qdrant.Value_StringValue{StringValue: string(p.Source)}},
			"message_id": {Kind: &qdrant.Value_IntegerValue{IntegerValue: p.MessageID}},
			"text":       {Kind: &qdrant.Value_StringValue{StringValue: p.Text}},
		}
		if len(p.Keywords) > 0 {
			values := make([]*qdrant.Value, 0, len(p.Keywords))
			for _, kw := range p.Keywords {
				values = append(values, &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: kw}})
			}
			payload["keywords"] = &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}
		}

		structs = append(structs, &qdrant.PointStruct{
			Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: pointID(p.Source, p.MessageID)}},
			Payload: payload,
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: p.Vector}}},
		})
	}
	if len(structs) == 0 {
		return nil
	}

	pointsClient := qdrant.NewPointsClient(x.conn)
	if _, err := pointsClient.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: x.collection,
		Points:         structs,
	}); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(structs), err)
	}
	return nil
}

// Query returns the topK most similar messages to the vector.
func (x *Index) Query(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if x == nil || x.conn == nil {
		return nil, errors.New("index is not connected")
	}
	if len(vector) == 0 {
		return nil, errors.New("query vector is required")
	}
	if topK <= 0 {
		topK = 10
	}

	pointsClient := qdrant.NewPointsClient(x.conn)
	resp, err := pointsClient.Search(ctx, &qdrant.SearchPoints{
		CollectionName: x.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search collection %q: %w", x.collection, err)
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, point := range resp.Result {
		hit := Hit{Score: point.Score}
		if v, ok := point.Payload["source"]; ok {
			hit.Source = core.SourceID(v.GetStringValue())
		}
		if v, ok := point.Payload["message_id"]; ok {
			hit.MessageID = v.GetIntegerValue()
		}
		if v, ok := point.Payload["text"]; ok {
			hit.Text = v.GetStringValue()
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// pointID derives a stable uuid so re-indexing a message overwrites its
// existing point instead of duplicating it.
func pointID(source core.SourceID, messageID int64) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", source, messageID))).String()
}
