package qnamaker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yanqian/qnabot/internal/domain/qnabot"
)

const (
	defaultTimeout  = 10 * time.Second
	noMatchAnswerID = -1
)

// Client calls the QnA Maker generateAnswer endpoint.
type Client struct {
	endpoint   qnabot.EndpointConfig
	httpClient *http.Client
}

// NewClient builds a client bound to one knowledge base. The host is
// normalized once here.
func NewClient(endpoint qnabot.EndpointConfig, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	endpoint.HostURL = strings.TrimRight(qnabot.NormalizeHost(strings.TrimSpace(endpoint.HostURL)), "/")
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type generateAnswerRequest struct {
	Question       string  `json:"question"`
	Top            int     `json:"top,omitempty"`
	ScoreThreshold float64 `json:"scoreThreshold,omitempty"`
}

type generateAnswerResponse struct {
	Answers []answer `json:"answers"`
}

type answer struct {
	ID        int      `json:"id"`
	Questions []string `json:"questions"`
	Answer    string   `json:"answer"`
	Score     float64  `json:"score"`
	Source    string   `json:"source"`
}

// GetAnswers returns candidates ordered as ranked by the service, with scores
// scaled to [0,1].
func (c *Client) GetAnswers(ctx context.Context, query string, opts qnabot.QueryOptions) ([]qnabot.CandidateAnswer, error) {
	threshold := opts.ScoreThreshold
	if threshold < 0 {
		threshold = 0
	}

	payload, err := json.Marshal(generateAnswerRequest{
		Question:       query,
		Top:            opts.Top,
		ScoreThreshold: threshold * 100,
	})
	if err != nil {
		return nil, fmt.Errorf("encode generate answer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.generateAnswerURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build generate answer request: %w", err)
	}
	req.Header.Set("Authorization", "EndpointKey "+c.endpoint.AuthKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate answer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("generate answer error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var raw generateAnswerResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode generate answer response: %w", err)
	}
	return toCandidates(raw.Answers, threshold), nil
}

func (c *Client) generateAnswerURL() string {
	return fmt.Sprintf("%s/knowledgebases/%s/generateAnswer", c.endpoint.HostURL, url.PathEscape(c.endpoint.KnowledgeBaseID))
}

func toCandidates(answers []answer, threshold float64) []qnabot.CandidateAnswer {
	out := make([]qnabot.CandidateAnswer, 0, len(answers))
	for _, a := range answers {
		if a.ID == noMatchAnswerID {
			continue
		}
		score := a.Score / 100
		if score < threshold {
			continue
		}
		out = append(out, qnabot.CandidateAnswer{
			ID:                 a.ID,
			Text:               a.Answer,
			Score:              score,
			AlternateQuestions: append([]string(nil), a.Questions...),
			Source:             a.Source,
		})
	}
	return out
}

var _ qnabot.AnswerClient = (*Client)(nil)
