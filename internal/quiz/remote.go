package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// scoreResponseSchema describes the body returned by the scoring endpoint.
const scoreResponseSchema = `{
  "type": "object",
  "required": ["recommendations"],
  "properties": {
    "summary": {"type": "string"},
    "recommendations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["stream", "score"],
        "properties": {
          "stream": {"type": "string", "minLength": 1},
          "score": {"type": "number", "minimum": 0},
          "description": {"type": "string"},
          "careers": {"type": "array", "items": {"type": "string"}},
          "rationale": {"type": "string"}
        }
      }
    }
  }
}`

var scoreSchema = gojsonschema.NewStringLoader(scoreResponseSchema)

// RemoteScorer posts answers to an external scoring endpoint.
type RemoteScorer struct {
	url    string
	client *http.Client
	schema *gojsonschema.Schema
}

// RemoteOption configures a RemoteScorer.
type RemoteOption func(*RemoteScorer)

// WithScoringClient sets a custom HTTP client.
func WithScoringClient(client *http.Client) RemoteOption {
	return func(r *RemoteScorer) {
		r.client = client
	}
}

// NewRemoteScorer creates a scorer for the endpoint at url.
func NewRemoteScorer(url string, opts ...RemoteOption) (*RemoteScorer, error) {
	if url == "" {
		return nil, fmt.Errorf("scoring URL is empty")
	}
	schema, err := gojsonschema.NewSchema(scoreSchema)
	if err != nil {
		return nil, fmt.Errorf("compile score schema: %w", err)
	}

	r := &RemoteScorer{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
		schema: schema,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type scoreRequest struct {
	Responses []scoreResponseItem `json:"responses"`
}

type scoreResponseItem struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type scoreResponse struct {
	Summary         string `json:"summary"`
	Recommendations []struct {
		Stream      string   `json:"stream"`
		Score       float64  `json:"score"`
		Description string   `json:"description"`
		Careers     []string `json:"careers"`
		Rationale   string   `json:"rationale"`
	} `json:"recommendations"`
}

func (r *RemoteScorer) Score(ctx context.Context, questions []Question, answers AnswerMap) (Result, error) {
	payload := scoreRequest{Responses: make([]scoreResponseItem, 0, len(answers))}
	for _, q := range questions {
		if v, ok := answers[q.ID]; ok {
			payload.Responses = append(payload.Responses, scoreResponseItem{QuestionID: q.ID, Answer: v})
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("scoring api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	check, err := r.schema.Validate(gojsonschema.NewBytesLoader(respBody))
	if err != nil {
		return Result{}, fmt.Errorf("validate response: %w", err)
	}
	if !check.Valid() {
		errs := make([]string, len(check.Errors()))
		for i, desc := range check.Errors() {
			errs[i] = desc.String()
		}
		return Result{}, fmt.Errorf("scoring response invalid: %s", strings.Join(errs, "; "))
	}

	var sr scoreResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return Result{}, fmt.Errorf("unmarshal response: %w", err)
	}

	scores := NewStreamScore()
	recs := make([]Recommendation, 0, len(sr.Recommendations))
	for _, rec := range sr.Recommendations {
		st, ok := ParseStream(rec.Stream)
		if !ok {
			continue
		}
		scores[st] = rec.Score
		recs = append(recs, Recommendation{
			Stream:      st,
			Score:       rec.Score,
			Description: rec.Description,
			Careers:     rec.Careers,
			Rationale:   rec.Rationale,
		})
	}

	top := scores.Top(2)
	summary := sr.Summary
	if summary == "" {
		summary = Summarize(top)
	}

	return Result{
		Scores:          scores,
		Recommended:     top,
		Summary:         summary,
		Recommendations: recs,
		Source:          "remote",
	}, nil
}
