package milvus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/internal/vector"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/config"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/logger"
	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/retry"
)

const (
	pkField  = "id"
	countAll = "count(*)"
	nlist    = 128
	nprobe   = 16
	// Milvus rejects query windows larger than this.
	maxQueryWindow = 16384
)

// Client stores each vector slot in its own collection ("<name>_title_vector",
// "<name>_summary_vector") holding an auto-id key, the doc_id and one float vector.
type Client struct {
	client     client.Client
	collection string
	dimension  int
}

// NewClient dials the vector database, retrying per cfg before giving up with vector.ErrUnavailable.
func NewClient(ctx context.Context, cfg config.VectorConfig) (*Client, error) {
	addr := cfg.Address()
	attempts := cfg.ConnectRetries
	if attempts <= 0 {
		attempts = 1
	}
	retryCfg := retry.Fixed(attempts, time.Duration(cfg.RetryIntervalSec)*time.Second, logger.GetLogger())

	c, err := retry.DoWithResult(ctx, retryCfg, func() (client.Client, error) {
		return client.NewGrpcClient(ctx, addr)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", vector.ErrUnavailable, addr, err)
	}

	logger.Info("Milvus client initialized",
		zap.String("address", addr),
		zap.String("collection", cfg.CollectionName),
	)

	return &Client{
		client:     c,
		collection: cfg.CollectionName,
		dimension:  cfg.Dimension,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) slot(field string) string {
	return m.collection + "_" + field
}

func (m *Client) slots() []string {
	return []string{vector.TitleField, vector.SummaryField}
}

func (m *Client) EnsureCollection(ctx context.Context) error {
	for _, field := range m.slots() {
		if err := m.ensureSlot(ctx, field); err != nil {
			return err
		}
	}
	return nil
}

func (m *Client) ensureSlot(ctx context.Context, field string) error {
	name := m.slot(field)
	has, err := m.client.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if !has {
		schema := &entity.Schema{
			CollectionName: name,
			Description:    "article " + field + " embeddings",
			Fields: []*entity.Field{
				{
					Name:       pkField,
					DataType:   entity.FieldTypeInt64,
					PrimaryKey: true,
					AutoID:     true,
				},
				{
					Name:     vector.DocIDField,
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:     field,
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						entity.TypeParamDim: strconv.Itoa(m.dimension),
					},
				},
			},
		}

		if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.IP, nlist)
		if err != nil {
			return fmt.Errorf("failed to build index params: %w", err)
		}
		if err := m.client.CreateIndex(ctx, name, field, idx, false); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}

		logger.Info("Collection created", zap.String("collection", name))
	}

	if err := m.client.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	return nil
}

func (m *Client) DropCollection(ctx context.Context) error {
	for _, field := range m.slots() {
		name := m.slot(field)
		has, err := m.client.HasCollection(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to check collection: %w", err)
		}
		if !has {
			continue
		}
		if err := m.client.DropCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to drop collection %s: %w", name, err)
		}
		logger.Info("Collection dropped", zap.String("collection", name))
	}
	return nil
}

// Insert writes one row per slot. A failed slot removes the rows already written
// so a record is never left half present.
func (m *Client) Insert(ctx context.Context, rec vector.Record) error {
	vectors := map[string][]float32{
		vector.TitleField:   rec.TitleVector,
		vector.SummaryField: rec.SummaryVector,
	}

	var written []string
	for _, field := range m.slots() {
		_, err := m.client.Insert(
			ctx,
			m.slot(field),
			"",
			entity.NewColumnInt64(vector.DocIDField, []int64{rec.DocID}),
			entity.NewColumnFloatVector(field, m.dimension, [][]float32{vectors[field]}),
		)
		if err != nil {
			m.rollback(ctx, rec.DocID, written)
			return fmt.Errorf("failed to insert %s: %w", field, err)
		}
		written = append(written, field)
	}
	return nil
}

func (m *Client) rollback(ctx context.Context, docID int64, fields []string) {
	for _, field := range fields {
		if err := m.deleteSlot(ctx, field, docID); err != nil {
			logger.Error("Failed to roll back partial vector record",
				zap.Int64("doc_id", docID),
				zap.String("slot", field),
				zap.Error(err),
			)
		}
	}
}

// CountByDocID returns the smaller of the two slot counts, so a record missing
// either vector reads as absent.
func (m *Client) CountByDocID(ctx context.Context, docID int64) (int64, error) {
	var least int64 = -1
	for _, field := range m.slots() {
		n, err := m.countSlot(ctx, field, docIDExpr(docID))
		if err != nil {
			return 0, err
		}
		if least < 0 || n < least {
			least = n
		}
	}
	return least, nil
}

func (m *Client) Count(ctx context.Context) (int64, error) {
	return m.countSlot(ctx, vector.TitleField, "")
}

func (m *Client) countSlot(ctx context.Context, field, expr string) (int64, error) {
	rs, err := m.client.Query(
		ctx,
		m.slot(field),
		nil,
		expr,
		[]string{countAll},
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}

	col, ok := rs.GetColumn(countAll).(*entity.ColumnInt64)
	if !ok || col.Len() == 0 {
		return 0, fmt.Errorf("unexpected count result")
	}
	return col.Data()[0], nil
}

func (m *Client) SearchField(ctx context.Context, field string, query []float32, k int) ([]vector.Hit, error) {
	sp, err := entity.NewIndexIvfFlatSearchParam(nprobe)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	results, err := m.client.Search(
		ctx,
		m.slot(field),
		[]string{},
		"",
		[]string{vector.DocIDField},
		[]entity.Vector{entity.FloatVector(query)},
		field,
		entity.IP,
		k,
		sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]vector.Hit, 0, k)
	for _, sr := range results {
		docIDCol := sr.Fields.GetColumn(vector.DocIDField)
		if docIDCol == nil {
			return nil, fmt.Errorf("search result missing %s", vector.DocIDField)
		}
		for i := 0; i < sr.ResultCount; i++ {
			v, err := docIDCol.Get(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read search result: %w", err)
			}
			docID, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("unexpected %s type %T", vector.DocIDField, v)
			}
			hits = append(hits, vector.Hit{DocID: docID, Score: sr.Scores[i]})
		}
	}

	return hits, nil
}

func (m *Client) DeleteByDocID(ctx context.Context, docID int64) error {
	for _, field := range m.slots() {
		if err := m.deleteSlot(ctx, field, docID); err != nil {
			return err
		}
	}
	logger.Debug("Vector records deleted", zap.Int64("doc_id", docID))
	return nil
}

func (m *Client) deleteSlot(ctx context.Context, field string, docID int64) error {
	// Delete only accepts primary-key expressions on older servers.
	pks, err := m.primaryKeys(ctx, m.slot(field), docIDExpr(docID))
	if err != nil {
		return err
	}
	if len(pks) == 0 {
		return nil
	}
	if err := m.client.DeleteByPks(ctx, m.slot(field), "", entity.NewColumnInt64(pkField, pks)); err != nil {
		return fmt.Errorf("failed to delete %s for doc %d: %w", field, docID, err)
	}
	return nil
}

func (m *Client) primaryKeys(ctx context.Context, collection, expr string) ([]int64, error) {
	rs, err := m.client.Query(ctx, collection, nil, expr, []string{pkField},
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary keys: %w", err)
	}
	col, ok := rs.GetColumn(pkField).(*entity.ColumnInt64)
	if !ok {
		return nil, nil
	}
	return col.Data(), nil
}

func (m *Client) DocIDs(ctx context.Context) ([]int64, error) {
	rs, err := m.client.Query(
		ctx,
		m.slot(vector.TitleField),
		nil,
		vector.DocIDField+" >= 0",
		[]string{vector.DocIDField},
		client.WithLimit(maxQueryWindow),
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list doc ids: %w", err)
	}

	col, ok := rs.GetColumn(vector.DocIDField).(*entity.ColumnInt64)
	if !ok {
		return []int64{}, nil
	}
	ids := col.Data()
	if len(ids) == maxQueryWindow {
		logger.Warn("Doc id listing truncated at query window", zap.Int("limit", maxQueryWindow))
	}
	return ids, nil
}

func docIDExpr(docID int64) string {
	return fmt.Sprintf("%s == %d", vector.DocIDField, docID)
}
