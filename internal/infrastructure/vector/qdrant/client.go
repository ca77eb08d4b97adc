package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

// Client talks to a qdrant collection over its HTTP API. Read-only: this
// service never writes points; indexing belongs to the ingestion pipeline.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) CollectionExists(ctx context.Context) (bool, error) {
	url := fmt.Sprintf("%s/collections/%s/exists", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("create exists request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("qdrant exists request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return false, qdrantStatusError("exists", resp)
	}

	var existsResp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&existsResp); err != nil {
		return false, fmt.Errorf("decode exists response: %w", err)
	}
	return existsResp.Result.Exists, nil
}

func (c *Client) PointCount(ctx context.Context) (uint64, error) {
	body := []byte(`{"exact": true}`)
	url := fmt.Sprintf("%s/collections/%s/points/count", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create count request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant count request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, qdrantStatusError("count", resp)
	}

	var countResp struct {
		Result struct {
			Count uint64 `json:"count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return countResp.Result.Count, nil
}

// Search runs a k-nearest-neighbor query, pushing the document-type filter
// down as a server-side payload predicate.
func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.SearchResult, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if !filter.IsZero() {
		reqBody["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key": "document_type",
					"match": map[string]any{
						"value": filter.DocumentType,
					},
				},
			},
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, qdrantStatusError("search", resp)
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.SearchResult, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		// Points without a payload cannot be cited; skip, not fail.
		if len(r.Payload) == 0 {
			continue
		}
		out = append(out, domain.SearchResult{
			ID:         pointID(r.ID),
			Text:       getStringPayload(r.Payload, "text"),
			Citation:   getStringPayload(r.Payload, "citation"),
			CitationID: getStringPayload(r.Payload, "citation_id"),
			Score:      r.Score,
			Metadata:   payloadMetadata(r.Payload),
		})
	}
	return out, nil
}

const scrollBatchSize = 256

// ScrollAll pages through every point in the collection. Called once at
// startup to build the corpus snapshot for the sparse index.
func (c *Client) ScrollAll(ctx context.Context) ([]domain.CorpusRecord, error) {
	url := fmt.Sprintf("%s/collections/%s/points/scroll", c.baseURL, c.collection)

	var records []domain.CorpusRecord
	var offset any
	for {
		reqBody := map[string]any{
			"limit":        scrollBatchSize,
			"with_payload": true,
			"with_vector":  false,
		}
		if offset != nil {
			reqBody["offset"] = offset
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal scroll body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create scroll request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("qdrant scroll request: %w", err)
		}

		var scrollResp struct {
			Result struct {
				Points []struct {
					ID      any            `json:"id"`
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if resp.StatusCode >= 300 {
			statusErr := qdrantStatusError("scroll", resp)
			resp.Body.Close()
			return nil, statusErr
		}
		if err := json.NewDecoder(resp.Body).Decode(&scrollResp); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decode scroll response: %w", err)
		}
		resp.Body.Close()

		for _, p := range scrollResp.Result.Points {
			if len(p.Payload) == 0 {
				continue
			}
			records = append(records, domain.CorpusRecord{
				ID:         pointID(p.ID),
				Text:       getStringPayload(p.Payload, "text"),
				Citation:   getStringPayload(p.Payload, "citation"),
				CitationID: getStringPayload(p.Payload, "citation_id"),
				Metadata:   payloadMetadata(p.Payload),
			})
		}

		if scrollResp.Result.NextPageOffset == nil {
			return records, nil
		}
		offset = scrollResp.Result.NextPageOffset
	}
}

func qdrantStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("qdrant %s status: %s: %s", operation, resp.Status, msg)
	}
	return fmt.Errorf("qdrant %s status: %s", operation, resp.Status)
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func pointID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// payloadMetadata keeps everything except the reserved text/citation keys.
func payloadMetadata(payload map[string]any) map[string]any {
	metadata := make(map[string]any, len(payload))
	for key, value := range payload {
		switch key {
		case "text", "citation", "citation_id":
			continue
		}
		metadata[key] = value
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}
