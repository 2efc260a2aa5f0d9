// Package milvus backs the retrieval index with a Milvus collection per
// deal. Chunk vectors live under an HNSW index with cosine similarity.
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"deal_diligence/pkg/core/rag"
)

const vectorField = "vector"

// Index implements rag.VectorIndex on a shared Milvus connection.
type Index struct {
	cli client.Client
	dim int
}

var _ rag.VectorIndex = (*Index)(nil)

func New(ctx context.Context, addr string, dim int) (*Index, error) {
	cli, err := client.NewClient(ctx, client.Config{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("connecting to milvus at %s: %w", addr, err)
	}
	return &Index{cli: cli, dim: dim}, nil
}

func NewWithClient(cli client.Client, dim int) *Index {
	return &Index{cli: cli, dim: dim}
}

func (x *Index) Close() error {
	return x.cli.Close()
}

func collectionName(dealID int64) string {
	return fmt.Sprintf("deal_%d", dealID)
}

func (x *Index) ensureCollection(ctx context.Context, name string) error {
	has, err := x.cli.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}
	if has {
		return nil
	}

	schema := entity.NewSchema().WithName(name).
		WithField(entity.NewField().WithName("id").WithDataType(entity.FieldTypeVarChar).
			WithIsPrimaryKey(true).WithMaxLength(64)).
		WithField(entity.NewField().WithName("document_id").WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName("chunk_index").WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName("filename").WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(512)).
		WithField(entity.NewField().WithName("content").WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(65535)).
		WithField(entity.NewField().WithName(vectorField).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(x.dim)))

	if err := x.cli.CreateCollection(ctx, schema, 1); err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, 16, 200)
	if err != nil {
		return fmt.Errorf("building hnsw index params: %w", err)
	}
	if err := x.cli.CreateIndex(ctx, name, vectorField, idx, false); err != nil {
		return fmt.Errorf("creating vector index on %s: %w", name, err)
	}
	if err := x.cli.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("loading collection %s: %w", name, err)
	}
	return nil
}

func (x *Index) Upsert(ctx context.Context, dealID int64, points []rag.Point) error {
	if len(points) == 0 {
		return nil
	}
	name := collectionName(dealID)
	if err := x.ensureCollection(ctx, name); err != nil {
		return err
	}

	n := len(points)
	ids := make([]string, n)
	docIDs := make([]int64, n)
	chunkIdx := make([]int64, n)
	filenames := make([]string, n)
	contents := make([]string, n)
	vectors := make([][]float32, n)
	for i, p := range points {
		ids[i] = p.ID
		docIDs[i] = p.DocumentID
		chunkIdx[i] = p.ChunkIndex
		filenames[i] = p.Filename
		contents[i] = p.Content
		vectors[i] = p.Vector
	}

	_, err := x.cli.Upsert(ctx, name, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnInt64("document_id", docIDs),
		entity.NewColumnInt64("chunk_index", chunkIdx),
		entity.NewColumnVarChar("filename", filenames),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnFloatVector(vectorField, x.dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("upserting into %s: %w", name, err)
	}
	if err := x.cli.Flush(ctx, name, false); err != nil {
		return fmt.Errorf("flushing %s: %w", name, err)
	}
	return nil
}

func (x *Index) Search(ctx context.Context, dealID int64, vector []float32, topK int) ([]rag.Match, error) {
	name := collectionName(dealID)
	has, err := x.cli.HasCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("checking collection %s: %w", name, err)
	}
	if !has {
		return nil, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("building search params: %w", err)
	}

	results, err := x.cli.Search(ctx, name, nil, "",
		[]string{"document_id", "chunk_index", "filename", "content"},
		[]entity.Vector{entity.FloatVector(vector)},
		vectorField, entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", name, err)
	}

	var matches []rag.Match
	for _, res := range results {
		for i := 0; i < res.ResultCount; i++ {
			m := rag.Match{Score: res.Scores[i]}
			if id, err := res.IDs.GetAsString(i); err == nil {
				m.ID = id
			}
			for _, col := range res.Fields {
				switch col.Name() {
				case "document_id":
					m.DocumentID, _ = col.GetAsInt64(i)
				case "chunk_index":
					m.ChunkIndex, _ = col.GetAsInt64(i)
				case "filename":
					m.Filename, _ = col.GetAsString(i)
				case "content":
					m.Content, _ = col.GetAsString(i)
				}
			}
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (x *Index) DropDeal(ctx context.Context, dealID int64) error {
	name := collectionName(dealID)
	has, err := x.cli.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", name, err)
	}
	if !has {
		return nil
	}
	_ = x.cli.ReleaseCollection(ctx, name)
	if err := x.cli.DropCollection(ctx, name); err != nil {
		return fmt.Errorf("dropping collection %s: %w", name, err)
	}
	return nil
}
