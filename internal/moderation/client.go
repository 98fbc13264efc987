package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrUnavailable marks a failed moderation *call*, as opposed to a question
// that was checked and rejected. Callers must keep the two apart: a dead
// moderation endpoint should read "check failed, try again", never
// "question approved" or "question rejected".
var ErrUnavailable = errors.New("moderation check unavailable")

type Verdict struct {
	IsAppropriate bool   `json:"isAppropriate"`
	Reason        string `json:"reason,omitempty"`
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Retries int
}

// Client calls a structured-completion endpoint with a fixed moderation
// instruction and the candidate text, expecting JSON back that matches
// Verdict.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

const instruction = `You are an AI assistant tasked with moderating questions to ensure they are appropriate and respectful.

Determine whether the following question is appropriate based on these guidelines:
- The question should not contain hate speech, harassment, or any form of discrimination.
- The question should not be sexually explicit or exploit, abuse, or endanger children.
- The question should not promote violence or incite hatred.
- The question should respect privacy and not solicit or expose personal information.

Respond with a JSON object with an "isAppropriate" boolean and, when the question is not appropriate, a "reason" string.`

type completionRequest struct {
	Model          string          `json:"model"`
	Instruction    string          `json:"instruction"`
	Input          string          `json:"input"`
	ResponseSchema json.RawMessage `json:"responseSchema"`
}

var verdictSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"isAppropriate": {"type": "boolean"},
		"reason": {"type": "string"}
	},
	"required": ["isAppropriate"]
}`)

func (c *Client) Moderate(ctx context.Context, questionText string) (*Verdict, error) {
	if c.cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			log.Printf("WARN [moderation] retrying after failure: %v", lastErr)
		}

		verdict, err := c.call(ctx, questionText)
		if err == nil {
			return verdict, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) call(ctx context.Context, questionText string) (*Verdict, error) {
	body, err := json.Marshal(completionRequest{
		Model:          c.cfg.Model,
		Instruction:    instruction,
		Input:          questionText,
		ResponseSchema: verdictSchema,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, data)
	}

	var verdict Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("malformed verdict: %w", err)
	}
	if !verdict.IsAppropriate && verdict.Reason == "" {
		verdict.Reason = "flagged by the moderation model"
	}

	return &verdict, nil
}
