// Package ai implements the gloss and verdict oracle on top of the OpenAI
// chat API. The oracle is treated as fallible: every call is bounded by a
// client timeout and malformed replies surface as errors the quiz layer
// recovers from.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/example/koinebot/pkg/models"
)

// ErrMalformedResponse marks oracle replies that could not be parsed.
// Callers treat it as empty glosses or an incorrect verdict.
var ErrMalformedResponse = errors.New("ai: malformed oracle response")

const (
	defaultAPIURL  = "https://api.openai.com/v1/chat/completions"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 15 * time.Second
)

// ChatGPT is a client for the OpenAI chat completions API.
type ChatGPT struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

// New creates a client from the environment. OPENAI_API_KEY is required;
// OPENAI_MODEL and OPENAI_API_URL override the defaults.
func New() (*ChatGPT, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultModel
	}
	apiURL := os.Getenv("OPENAI_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	return &ChatGPT{
		apiKey: apiKey,
		apiURL: apiURL,
		model:  model,
		client: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Message represents a message in the chat conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse represents a response from the chat API
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *ChatGPT) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	request := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(requestData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("API error: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// Glosses asks for common English glosses of a Greek token. The reply may
// be empty; the quiz layer substitutes a placeholder.
func (c *ChatGPT) Glosses(ctx context.Context, token string) ([]string, error) {
	system := `Given a Koine Greek token from the NT, list 3-6 common English glosses (lowercase), short words/phrases only. Reply as JSON: {"glosses":[...]}`

	content, err := c.complete(ctx, system, "Token: "+token, 0.2)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Glosses []string `json:"glosses"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	glosses := make([]string, 0, len(payload.Glosses))
	for _, g := range payload.Glosses {
		g = strings.ToLower(strings.TrimSpace(g))
		if g != "" {
			glosses = append(glosses, g)
		}
	}
	return glosses, nil
}

// Verdict grades an answer against the acceptable glosses, leniently with
// synonyms. On a malformed reply it returns an incorrect verdict along
// with the error so callers can flag the degradation.
func (c *ChatGPT) Verdict(ctx context.Context, token string, glosses []string, answer string) (models.Verdict, string, error) {
	system := `You are grading a vocab quiz. Compare the user's answer to acceptable glosses. Return JSON: {"verdict": "correct|partial|incorrect", "explanation": short rationale}. Be lenient with synonyms.`

	userData, err := json.Marshal(map[string]interface{}{
		"token":   token,
		"glosses": glosses,
		"answer":  answer,
	})
	if err != nil {
		return models.VerdictIncorrect, "", fmt.Errorf("failed to marshal grading payload: %w", err)
	}

	content, err := c.complete(ctx, system, string(userData), 0.0)
	if err != nil {
		return models.VerdictIncorrect, "", err
	}

	var payload struct {
		Verdict     string `json:"verdict"`
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return models.VerdictIncorrect, "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch v := models.Verdict(strings.ToLower(strings.TrimSpace(payload.Verdict))); v {
	case models.VerdictCorrect, models.VerdictPartial, models.VerdictIncorrect:
		return v, payload.Explanation, nil
	default:
		return models.VerdictIncorrect, payload.Explanation,
			fmt.Errorf("%w: unknown verdict %q", ErrMalformedResponse, payload.Verdict)
	}
}
