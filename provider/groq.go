package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const groqDefaultBaseURL = "https://api.groq.com/openai/v1"

// GroqClient talks to Groq's OpenAI-compatible chat completions endpoint over
// plain HTTP and decodes the server-sent event stream line by line.
type GroqClient struct {
	baseURL      string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

// NewGroqClient creates a Groq client. baseURL defaults to Groq's public API.
func NewGroqClient(baseURL, apiKey, systemPrompt string, httpClient *http.Client) (*GroqClient, error) {
	if baseURL == "" {
		baseURL = groqDefaultBaseURL
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Groq %w", ErrMissingAPIKey)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &GroqClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		systemPrompt: systemPrompt,
		httpClient:   httpClient,
	}, nil
}

func (c *GroqClient) Name() string {
	return string(ProviderTypeGroq)
}

// Stream implements Client.Stream.
func (c *GroqClient) Stream(ctx context.Context, req Request, cb Callbacks) {
	req.Stream = true
	dispatch(ctx, cb, func(ctx context.Context, emit func(string)) error {
		resp, err := c.post(ctx, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		return readEventStream(resp.Body, emit)
	})
}

// readEventStream decodes `data: <json>` lines until the body ends. Lines
// that are not valid JSON are logged and skipped.
func readEventStream(body io.Reader, emit func(string)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "data: [DONE]" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")
		if !gjson.Valid(payload) {
			logf("[Groq] Skipping unparseable chunk: %q", payload)
			continue
		}

		if msg := gjson.Get(payload, "error.message"); msg.Exists() {
			return &APIError{StatusCode: http.StatusOK, Message: msg.String()}
		}

		emit(gjson.Get(payload, "choices.0.delta.content").String())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read response stream: %w", err)
	}
	return nil
}

// Complete implements Client.Complete.
func (c *GroqClient) Complete(ctx context.Context, req Request) (string, error) {
	req.Stream = false
	resp, err := c.post(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return gjson.GetBytes(body, "choices.0.message.content").String(), nil
}

// ListModels implements Client.ListModels.
func (c *GroqClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to list Groq models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp.StatusCode, body, "Failed to fetch models from Groq API")
	}

	var models []ModelInfo
	gjson.GetBytes(body, "data.#.id").ForEach(func(_, id gjson.Result) bool {
		models = append(models, ModelInfo{Name: id.String(), Provider: c.Name()})
		return true
	})
	return models, nil
}

func (c *GroqClient) post(ctx context.Context, req Request) (*http.Response, error) {
	req.Messages = withSystemPrompt(c.systemPrompt, req.Messages)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	logf("[Groq] POST /chat/completions model=%s messages=%d stream=%v", req.Model, len(req.Messages), req.Stream)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Groq API: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, apiError(resp.StatusCode, body, "Failed to send message to Groq API")
	}
	return resp, nil
}

// apiError builds an APIError from an error body, preferring the API's own
// error.message.
func apiError(status int, body []byte, fallback string) *APIError {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = fallback
	}
	logf("[Groq] API error %d: %s", status, msg)
	return &APIError{StatusCode: status, Message: msg}
}
