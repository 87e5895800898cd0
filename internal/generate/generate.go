package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EOSToken is the end-of-sequence marker appended to every prompt and
// stripped from generated output.
const EOSToken = "<|endoftext|>"

// Config holds the sampling configuration for the inference server.
type Config struct {
	Model       string
	Device      string
	MaxLength   int
	Temperature float64
	TopK        int
	TopP        float64
}

// DefaultConfig returns the default sampling configuration.
func DefaultConfig() Config {
	return Config{
		Model:       "microsoft/DialoGPT-large",
		Device:      "auto",
		MaxLength:   1024,
		Temperature: 0.7,
		TopK:        50,
		TopP:        0.95,
	}
}

// InferenceError indicates the inference server was unavailable, rejected
// the input, or returned an unusable response.
type InferenceError struct {
	Reason string
	Err    error
}

func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference %s: %v", e.Reason, e.Err)
	}
	return "inference " + e.Reason
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Client is a minimal client for a text-generation inference server.
type Client struct {
	url        string
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a generation client for the given /generate endpoint URL.
func NewClient(url string, cfg Config, timeout time.Duration) *Client {
	return &Client{
		url: url,
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type generateRequest struct {
	Inputs     string     `json:"inputs"`
	Model      string     `json:"model,omitempty"`
	Device     string     `json:"device,omitempty"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	DoSample       bool    `json:"do_sample"`
	Temperature    float64 `json:"temperature"`
	TopK           int     `json:"top_k"`
	TopP           float64 `json:"top_p"`
	MaxLength      int     `json:"max_length"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Generate sends the prompt to the inference server and returns the sampled
// continuation with special tokens removed and whitespace trimmed. Output is
// not deterministic.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Inputs: prompt + EOSToken,
		Model:  c.cfg.Model,
		Device: c.cfg.Device,
		Parameters: parameters{
			DoSample:       true,
			Temperature:    c.cfg.Temperature,
			TopK:           c.cfg.TopK,
			TopP:           c.cfg.TopP,
			MaxLength:      c.cfg.MaxLength,
			ReturnFullText: false,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &InferenceError{Reason: "request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", &InferenceError{Reason: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &InferenceError{Reason: "unavailable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &InferenceError{Reason: "response", Err: err}
	}

	if resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusRequestEntityTooLarge {
		return "", &InferenceError{Reason: fmt.Sprintf("input rejected status=%d body=%s", resp.StatusCode, truncate(string(body), 400))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &InferenceError{Reason: fmt.Sprintf("non-success status=%d body=%s", resp.StatusCode, truncate(string(body), 400))}
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &InferenceError{Reason: fmt.Sprintf("parse response body=%s", truncate(string(body), 400))}
	}

	return cleanOutput(parsed.GeneratedText), nil
}

// cleanOutput removes residual special tokens and surrounding whitespace.
func cleanOutput(text string) string {
	text = strings.ReplaceAll(text, EOSToken, "")
	text = strings.ReplaceAll(text, "<|pad|>", "")
	return strings.TrimSpace(text)
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
