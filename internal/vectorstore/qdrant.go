package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/manualqa/internal/document"
)

// QdrantConfig holds connection details for a Qdrant instance.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Qdrant is a minimal REST client to Qdrant. Collections use cosine
// distance and are created on first upsert with the dimension of the
// incoming vectors.
type Qdrant struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

func NewQdrant(cfg QdrantConfig) *Qdrant {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:6333"
	}
	if cfg.Collection == "" {
		cfg.Collection = "manual_chunks"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Qdrant{
		url:        strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Qdrant) ensureCollection(ctx context.Context, dimension int) error {
	resp, err := s.do(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", s.collection), nil)
	if err == nil && resp.StatusCode == http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil
	}
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	resp, err = s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("create collection %s: %s %s", s.collection, resp.Status, string(raw))
	}
	return nil
}

func (s *Qdrant) Upsert(ctx context.Context, chunks []document.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		points[i] = map[string]any{
			"id":     pointID(c.ID),
			"vector": vectors[i],
			"payload": map[string]any{
				"chunk_id": c.ID,
				"source":   c.Source,
				"chapter":  c.Chapter,
				"page":     c.Page,
				"text":     c.Text,
				"keywords": strings.Join(c.Keywords, ", "),
			},
		}
	}

	body := map[string]any{"points": points}
	resp, err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", s.collection), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant upsert: %s %s", resp.Status, string(raw))
	}
	return nil
}

func (s *Qdrant) SimilaritySearch(ctx context.Context, vector []float64, k int, filter map[string]string) ([]Retrieved, error) {
	if k <= 0 {
		k = 3
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if len(filter) > 0 {
		must := make([]map[string]any, 0, len(filter))
		for key, val := range filter {
			must = append(must, map[string]any{
				"key":   key,
				"match": map[string]any{"value": val},
			})
		}
		body["filter"] = map[string]any{"must": must}
	}

	resp, err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", s.collection), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qdrant search: %s %s", resp.Status, string(raw))
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Retrieved, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		results = append(results, Retrieved{
			Text:    payloadString(r.Payload, "text"),
			Chapter: payloadString(r.Payload, "chapter"),
			Page:    payloadInt(r.Payload, "page"),
			Score:   r.Score,
		})
	}
	return results, nil
}

// AllMetadata scrolls the whole collection, payloads only.
func (s *Qdrant) AllMetadata(ctx context.Context) ([]Metadata, error) {
	var all []Metadata
	var offset any

	for {
		body := map[string]any{
			"limit":        1000,
			"with_payload": true,
			"with_vector":  false,
		}
		if offset != nil {
			body["offset"] = offset
		}

		resp, err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/scroll", s.collection), body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusNotFound {
			// Collection not created yet: nothing ingested.
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, nil
		}
		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("qdrant scroll: %s %s", resp.Status, string(raw))
		}

		var scrollResp struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		err = json.NewDecoder(resp.Body).Decode(&scrollResp)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode scroll response: %w", err)
		}

		for _, p := range scrollResp.Result.Points {
			all = append(all, Metadata{
				Source:   payloadString(p.Payload, "source"),
				Chapter:  payloadString(p.Payload, "chapter"),
				Page:     payloadInt(p.Payload, "page"),
				Keywords: splitKeywords(payloadString(p.Payload, "keywords")),
			})
		}

		if scrollResp.Result.NextPageOffset == nil {
			return all, nil
		}
		offset = scrollResp.Result.NextPageOffset
	}
}

func (s *Qdrant) DeleteSource(ctx context.Context, source string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "source", "match": map[string]any{"value": source}},
			},
		},
	}
	resp, err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant delete: %s %s", resp.Status, string(raw))
	}
	return nil
}

func (s *Qdrant) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	return s.client.Do(req)
}

// pointID hashes a chunk id into the unsigned integer ids Qdrant accepts.
func pointID(chunkID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(chunkID))
	return h.Sum64()
}

func payloadString(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

func payloadInt(payload map[string]any, key string) int {
	if v, ok := payload[key].(float64); ok {
		return int(v)
	}
	return 0
}

func splitKeywords(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
