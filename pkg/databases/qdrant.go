package databases

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/uniportal/assistant/pkg/config"
)

// qdrantProvider talks to the store over the qdrant gRPC SDK. It serves
// deployments where the REST port is not exposed; both providers honor the
// same Provider contract.
type qdrantProvider struct {
	client  *qdrant.Client
	target  string
	timeout time.Duration
}

// NewQdrantProviderFromConfig creates a gRPC vector store client.
func NewQdrantProviderFromConfig(cfg *config.VectorStoreConfig) (Provider, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantProvider{
		client:  client,
		target:  fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		timeout: time.Duration(cfg.Timeout) * time.Second,
	}, nil
}

func (p *qdrantProvider) Search(ctx context.Context, collection string, vector []float32, opts SearchOptions) ([]RetrievalPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	limit := opts.effectiveLimit()
	request := &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    qdrant.NewWithPayload(opts.WithPayload),
		ScoreThreshold: opts.ScoreThreshold,
	}

	result, err := p.client.GetPointsClient().Search(ctx, request)
	if err != nil {
		return nil, newRetrievalError("search", p.target+"/"+collection, 0, "", err)
	}

	points := make([]RetrievalPoint, 0, len(result.Result))
	for _, hit := range result.Result {
		points = append(points, RetrievalPoint{
			ID:      qdrantPointID(hit.Id),
			Score:   hit.Score,
			Payload: qdrantPayload(hit.Payload),
		})
	}
	if len(points) > limit {
		points = points[:limit]
	}
	return points, nil
}

func (p *qdrantProvider) Scroll(ctx context.Context, collection string, limit int, offset interface{}) (*ScrollPage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	scrollLimit := uint32(limit)
	request := &qdrant.ScrollPoints{
		CollectionName: collection,
		Limit:          &scrollLimit,
		Offset:         qdrantOffset(offset),
		WithPayload:    qdrant.NewWithPayload(true),
	}

	result, err := p.client.GetPointsClient().Scroll(ctx, request)
	if err != nil {
		return nil, newRetrievalError("scroll", p.target+"/"+collection, 0, "", err)
	}

	page := &ScrollPage{Points: make([]RetrievalPoint, 0, len(result.Result))}
	for _, pt := range result.Result {
		page.Points = append(page.Points, RetrievalPoint{
			ID:      qdrantPointID(pt.Id),
			Payload: qdrantPayload(pt.Payload),
		})
	}
	if next := result.NextPageOffset; next != nil {
		page.NextOffset = qdrantPointID(next)
	}
	return page, nil
}

func (p *qdrantProvider) Close() error {
	return p.client.Close()
}

func qdrantPointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	default:
		return ""
	}
}

func qdrantOffset(offset interface{}) *qdrant.PointId {
	switch v := offset.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return qdrant.NewID(v)
	case float64:
		return qdrant.NewIDNum(uint64(v))
	case int:
		return qdrant.NewIDNum(uint64(v))
	case uint64:
		return qdrant.NewIDNum(v)
	default:
		return nil
	}
}

func qdrantPayload(payload map[string]*qdrant.Value) map[string]interface{} {
	if payload == nil {
		return nil
	}
	out := make(map[string]interface{}, len(payload))
	for key, value := range payload {
		out[key] = qdrantValue(value)
	}
	return out
}

func qdrantValue(value *qdrant.Value) interface{} {
	if value == nil {
		return nil
	}
	switch v := value.Kind.(type) {
	case *qdrant.Value_StringValue:
		return v.StringValue
	case *qdrant.Value_IntegerValue:
		return v.IntegerValue
	case *qdrant.Value_DoubleValue:
		return v.DoubleValue
	case *qdrant.Value_BoolValue:
		return v.BoolValue
	case *qdrant.Value_ListValue:
		if v.ListValue == nil {
			return nil
		}
		list := make([]interface{}, len(v.ListValue.Values))
		for i, item := range v.ListValue.Values {
			list[i] = qdrantValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		if v.StructValue == nil {
			return nil
		}
		nested := make(map[string]interface{}, len(v.StructValue.Fields))
		for k, item := range v.StructValue.Fields {
			nested[k] = qdrantValue(item)
		}
		return nested
	default:
		return nil
	}
}
