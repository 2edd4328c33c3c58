package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/connectorzzz/advisor-api/internal/model"
)

// CVUpload carries an uploaded CV through the advisor calls.
type CVUpload struct {
	Filename string
	Data     []byte
}

// AdvisorClient wraps the three document-analysis webhooks: match scoring,
// cover-letter generation and CV-improvement suggestions. All three share
// the same transport: a multipart POST with `cv` and `job_description`.
type AdvisorClient struct {
	analyzeURL     string
	coverLetterURL string
	improveURL     string
	client         *http.Client
}

func NewAdvisorClient(analyzeURL, coverLetterURL, improveURL string) *AdvisorClient {
	return &AdvisorClient{
		analyzeURL:     analyzeURL,
		coverLetterURL: coverLetterURL,
		improveURL:     improveURL,
		client: &http.Client{
			Timeout: 120 * time.Second, // scoring can be slow, the workflow runs an LLM
		},
	}
}

// ── Analyze ──────────────────────────────────────────

type analyzeResponse struct {
	MatchPercentage float64 `json:"match_percentage"`
	Recommendation  string  `json:"recommendation"`
	Explanation     string  `json:"explanation"`
}

// Analyze scores a CV against a job description. The match percentage is
// trusted as-is; the remote workflow owns the 0-100 contract.
func (c *AdvisorClient) Analyze(ctx context.Context, cv CVUpload, jobDescription string) (*model.AnalysisResult, error) {
	body, err := c.postMultipart(ctx, c.analyzeURL, cv, jobDescription)
	if err != nil {
		return nil, err
	}

	var resp analyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing analysis response: %w", err)
	}

	return &model.AnalysisResult{
		MatchPercentage: int(resp.MatchPercentage),
		Recommendation:  resp.Recommendation,
		Explanation:     resp.Explanation,
	}, nil
}

// ── Cover letter ─────────────────────────────────────

// GenerateCoverLetter returns the generated letter text. A response without
// the cover_letter field yields an empty string, never an error — only
// transport and HTTP failures propagate.
func (c *AdvisorClient) GenerateCoverLetter(ctx context.Context, cv CVUpload, jobDescription string) (string, error) {
	body, err := c.postMultipart(ctx, c.coverLetterURL, cv, jobDescription)
	if err != nil {
		return "", err
	}

	var resp struct {
		CoverLetter string `json:"cover_letter"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing cover letter response: %w", err)
	}

	return resp.CoverLetter, nil
}

// ── CV improvement ───────────────────────────────────

// ImproveCV returns the gap analysis and improvement suggestions, normalized
// from the webhook's loose shape.
func (c *AdvisorClient) ImproveCV(ctx context.Context, cv CVUpload, jobDescription string) (*model.ImprovementSet, error) {
	body, err := c.postMultipart(ctx, c.improveURL, cv, jobDescription)
	if err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing improvement response: %w", err)
	}

	return NormalizeImprovements(payload)
}

// NormalizeImprovements accepts either the improvement object itself or a
// single-element array wrapping it (the workflow emits both, depending on
// which node terminates the run). Anything else is a hard error. Inside a
// valid wrapper, missing fields fall back to zero values.
func NormalizeImprovements(payload any) (*model.ImprovementSet, error) {
	if arr, ok := payload.([]any); ok {
		if len(arr) == 0 {
			return nil, fmt.Errorf("Invalid API response structure")
		}
		if len(arr) > 1 {
			// Contract only defines one element; take the first.
			log.Warn().Int("len", len(arr)).Msg("Improvement response had multiple elements, using the first")
		}
		payload = arr[0]
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("Invalid API response structure")
	}

	set := &model.ImprovementSet{
		Improvements: []model.Improvement{},
	}

	if gap, ok := obj["gap_analysis"].(string); ok {
		set.GapAnalysis = strings.TrimSpace(gap)
	}

	items, ok := obj["improvements"].([]any)
	if !ok {
		return set, nil
	}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		imp := model.Improvement{}
		if title, ok := m["title"].(string); ok {
			imp.Title = title
		}
		if desc, ok := m["description"].(string); ok {
			imp.Description = desc
		}
		set.Improvements = append(set.Improvements, imp)
	}

	return set, nil
}

// ── Transport ────────────────────────────────────────

// postMultipart sends the shared cv + job_description form and returns the
// raw response body. Non-2xx statuses become errors carrying the code.
func (c *AdvisorClient) postMultipart(ctx context.Context, url string, cv CVUpload, jobDescription string) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("cv", cv.Filename)
	if err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if _, err := part.Write(cv.Data); err != nil {
		return nil, fmt.Errorf("writing cv field: %w", err)
	}
	if err := w.WriteField("job_description", jobDescription); err != nil {
		return nil, fmt.Errorf("writing job_description field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	return body, nil
}
