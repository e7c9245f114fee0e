package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/transport"
)

// ResultService reads, deletes and exports crawled results.
type ResultService struct {
	client *transport.Client
}

// ExportPayload is the file body returned by GET /results/export.
type ExportPayload struct {
	Format      crawler.ExportFormat
	Data        []byte
	ContentType string
}

// List returns one page of results matching filter.
func (s *ResultService) List(ctx context.Context, page, pageSize int, filter crawler.ResultsFilter) (crawler.Page[crawler.Result], error) {
	opts := append(pageOptions(page, pageSize), filterOptions(filter)...)
	env, err := transport.Get[crawler.Page[crawler.Result]](ctx, s.client, "/results", opts...)
	return env.Data, err
}

// Get fetches a result with its comments and aggregates.
func (s *ResultService) Get(ctx context.Context, resultID string) (crawler.ResultDetail, error) {
	id, err := segment("result id", resultID)
	if err != nil {
		return crawler.ResultDetail{}, err
	}
	env, err := transport.Get[crawler.ResultDetail](ctx, s.client, "/results/"+id)
	return env.Data, err
}

// Delete removes one result.
func (s *ResultService) Delete(ctx context.Context, resultID string) error {
	id, err := segment("result id", resultID)
	if err != nil {
		return err
	}
	_, err = transport.Delete[json.RawMessage](ctx, s.client, "/results/"+id)
	return err
}

// BatchDelete removes several results in one call.
func (s *ResultService) BatchDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return ErrEmptyIDs
	}
	_, err := transport.Post[json.RawMessage](ctx, s.client, "/results/batch-delete",
		map[string][]string{"ids": ids})
	return err
}

// Export downloads every result matching filter in the given format.
func (s *ResultService) Export(ctx context.Context, filter crawler.ResultsFilter, format crawler.ExportFormat) (ExportPayload, error) {
	f, err := crawler.ParseExportFormat(string(format))
	if err != nil {
		return ExportPayload{}, err
	}
	opts := append(filterOptions(filter), transport.WithQuery("format", string(f)))
	raw, err := s.client.Raw(ctx, http.MethodGet, "/results/export", opts...)
	if err != nil {
		return ExportPayload{}, err
	}
	return ExportPayload{Format: f, Data: raw.Data, ContentType: raw.ContentType}, nil
}

// Comments returns a page of comments on a result.
func (s *ResultService) Comments(ctx context.Context, resultID string, page, pageSize int) ([]crawler.Comment, error) {
	id, err := segment("result id", resultID)
	if err != nil {
		return nil, err
	}
	env, err := transport.Get[[]crawler.Comment](ctx, s.client, "/results/"+id+"/comments", pageOptions(page, pageSize)...)
	return env.Data, err
}

// Search runs a free-text query over results.
func (s *ResultService) Search(ctx context.Context, query string, page, pageSize int) (crawler.Page[crawler.Result], error) {
	opts := append([]transport.RequestOption{transport.WithQuery("q", query)}, pageOptions(page, pageSize)...)
	env, err := transport.Get[crawler.Page[crawler.Result]](ctx, s.client, "/results/search", opts...)
	return env.Data, err
}
