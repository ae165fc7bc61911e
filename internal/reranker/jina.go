package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dshills/gocontext-rag/internal/retry"
	"github.com/dshills/gocontext-rag/pkg/types"
)

const (
	// JinaRerankURL is the hosted rerank endpoint
	JinaRerankURL = "https://api.jina.ai/v1/rerank"
	// DefaultJinaRerankModel is the cross-encoder used when none is configured
	DefaultJinaRerankModel = "jina-reranker-v2-base-multilingual"
	// DefaultMaxDocuments is the number of documents sent per request
	DefaultMaxDocuments = 100

	envJinaAPIKey = "JINA_API_KEY"
)

// JinaModel scores chunks with the Jina AI rerank API
type JinaModel struct {
	apiKey       string
	model        string
	endpoint     string
	maxDocuments int
	httpClient   *http.Client
	retry        retry.Config
}

// JinaOption customizes a JinaModel
type JinaOption func(*JinaModel)

// WithJinaEndpoint overrides the API endpoint
func WithJinaEndpoint(url string) JinaOption {
	return func(m *JinaModel) { m.endpoint = url }
}

// WithJinaModel overrides the rerank model
func WithJinaModel(model string) JinaOption {
	return func(m *JinaModel) {
		if model != "" {
			m.model = model
		}
	}
}

// WithMaxDocuments sets how many documents go in one request
func WithMaxDocuments(n int) JinaOption {
	return func(m *JinaModel) {
		if n > 0 {
			m.maxDocuments = n
		}
	}
}

// WithJinaRetry overrides the retry policy
func WithJinaRetry(cfg retry.Config) JinaOption {
	return func(m *JinaModel) { m.retry = cfg }
}

// NewJinaModel creates a Jina relevance model. apiKey falls back to JINA_API_KEY.
func NewJinaModel(apiKey string, opts ...JinaOption) (*JinaModel, error) {
	if apiKey == "" {
		apiKey = os.Getenv(envJinaAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoRelevanceModel, envJinaAPIKey)
	}

	m := &JinaModel{
		apiKey:       apiKey,
		model:        DefaultJinaRerankModel,
		endpoint:     JinaRerankURL,
		maxDocuments: DefaultMaxDocuments,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		retry:        retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Name returns the model name
func (m *JinaModel) Name() string {
	return "jina:" + m.model
}

// Score sends chunks in batches of maxDocuments and returns scores in input order
func (m *JinaModel) Score(ctx context.Context, query string, chunks []types.Chunk) ([]float64, error) {
	scores := make([]float64, len(chunks))
	for start := 0; start < len(chunks); start += m.maxDocuments {
		end := min(start+m.maxDocuments, len(chunks))
		docs := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			docs = append(docs, c.Content)
		}

		batch, err := retry.Do(ctx, m.retry, func() ([]float64, error) {
			return m.callAPI(ctx, query, docs)
		})
		if err != nil {
			return nil, err
		}
		copy(scores[start:end], batch)
	}
	return scores, nil
}

func (m *JinaModel) callAPI(ctx context.Context, query string, docs []string) ([]float64, error) {
	reqBody := map[string]interface{}{
		"model":     m.model,
		"query":     query,
		"documents": docs,
		"top_n":     len(docs),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Results) != len(docs) {
		return nil, fmt.Errorf("%w: got %d results for %d documents", ErrScoreMismatch, len(apiResp.Results), len(docs))
	}

	scores := make([]float64, len(docs))
	seen := make([]bool, len(docs))
	for _, r := range apiResp.Results {
		if r.Index < 0 || r.Index >= len(docs) || seen[r.Index] {
			return nil, fmt.Errorf("invalid result index %d", r.Index)
		}
		seen[r.Index] = true
		scores[r.Index] = r.RelevanceScore
	}
	return scores, nil
}
