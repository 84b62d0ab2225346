package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"totcare/backend/internal/config"
)

// ErrorKind classifies provider failures for callers that want to branch on
// them. Use cases above this layer generally absorb every kind into a fixed
// fallback message.
type ErrorKind string

const (
	KindUnavailable    ErrorKind = "unavailable"
	KindRateLimited    ErrorKind = "rate_limited"
	KindInvalidRequest ErrorKind = "invalid_request"
	KindUnknown        ErrorKind = "unknown"
)

type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gemini: %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini: %s: %s", e.Kind, e.Message)
}

// Options configures a text generation call.
type Options struct {
	SystemInstruction string
}

// ImageConfig configures an image generation call.
type ImageConfig struct {
	AspectRatio string
	ImageSize   string
}

// Client is a thin adapter over the generateContent REST API. Each call is a
// single best-effort round-trip: no retries, no caching. Retry policy, if any,
// belongs to the caller.
type Client struct {
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
	httpClient *http.Client
}

func NewClient(cfg config.Config) *Client {
	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &Client{
		apiKey:     strings.TrimSpace(cfg.GeminiAPIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.GeminiBaseURL), "/"),
		textModel:  strings.TrimSpace(cfg.GeminiTextModel),
		imageModel: strings.TrimSpace(cfg.GeminiImageModel),
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

type contentPart struct {
	Text string `json:"text"`
}

type requestContent struct {
	Parts []contentPart `json:"parts"`
}

type searchTool struct {
	GoogleSearch struct{} `json:"googleSearch"`
}

type imageGenerationConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type generationConfig struct {
	ImageConfig *imageGenerationConfig `json:"imageConfig,omitempty"`
}

type generateContentRequest struct {
	Contents          []requestContent  `json:"contents"`
	SystemInstruction *requestContent   `json:"systemInstruction,omitempty"`
	Tools             []searchTool      `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

// GenerateText runs a plain text generation call against the text model.
func (c *Client) GenerateText(ctx context.Context, prompt string, opts Options) (*GenerateContentResponse, error) {
	payload := generateContentRequest{
		Contents: []requestContent{{Parts: []contentPart{{Text: prompt}}}},
	}
	if instruction := strings.TrimSpace(opts.SystemInstruction); instruction != "" {
		payload.SystemInstruction = &requestContent{Parts: []contentPart{{Text: instruction}}}
	}
	return c.generateContent(ctx, c.textModel, payload)
}

// GenerateGroundedText runs a text generation call with the web search tool
// attached, so the response may carry grounding citations.
func (c *Client) GenerateGroundedText(ctx context.Context, prompt string, opts Options) (*GenerateContentResponse, error) {
	payload := generateContentRequest{
		Contents: []requestContent{{Parts: []contentPart{{Text: prompt}}}},
		Tools:    []searchTool{{}},
	}
	if instruction := strings.TrimSpace(opts.SystemInstruction); instruction != "" {
		payload.SystemInstruction = &requestContent{Parts: []contentPart{{Text: instruction}}}
	}
	return c.generateContent(ctx, c.textModel, payload)
}

// GenerateImage runs an image generation call against the image model. The
// response may or may not contain an inline image part; absence is not an
// error.
func (c *Client) GenerateImage(ctx context.Context, prompt string, imageCfg ImageConfig) (*GenerateContentResponse, error) {
	payload := generateContentRequest{
		Contents: []requestContent{{Parts: []contentPart{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ImageConfig: &imageGenerationConfig{
				AspectRatio: strings.TrimSpace(imageCfg.AspectRatio),
				ImageSize:   strings.TrimSpace(imageCfg.ImageSize),
			},
		},
	}
	return c.generateContent(ctx, c.imageModel, payload)
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (*GenerateContentResponse, error) {
	if c.apiKey == "" {
		return nil, &Error{Kind: KindInvalidRequest, Message: "GEMINI_API_KEY is not configured"}
	}
	if c.baseURL == "" {
		return nil, &Error{Kind: KindInvalidRequest, Message: "GEMINI_BASE_URL is not configured"}
	}
	if strings.TrimSpace(model) == "" {
		return nil, &Error{Kind: KindInvalidRequest, Message: "model is not configured"}
	}

	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Message: err.Error()}
	}

	endpoint := c.baseURL + "/v1beta/models/" + model + ":generateContent"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyRaw))
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Message: err.Error()}
	}
	request.Header.Set("x-goog-api-key", c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: err.Error()}
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: err.Error()}
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, classifyHTTPError(response.StatusCode, responseBody)
	}

	parsed := &GenerateContentResponse{}
	if err := json.Unmarshal(responseBody, parsed); err != nil {
		return nil, &Error{
			Kind:    KindUnknown,
			Status:  response.StatusCode,
			Message: "malformed provider response: " + err.Error(),
		}
	}
	return parsed, nil
}

func classifyHTTPError(status int, body []byte) *Error {
	message := extractErrorMessage(body)
	switch {
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Status: status, Message: message}
	case status >= 400 && status < 500:
		return &Error{Kind: KindInvalidRequest, Status: status, Message: message}
	case status >= 500:
		return &Error{Kind: KindUnavailable, Status: status, Message: message}
	default:
		return &Error{Kind: KindUnknown, Status: status, Message: message}
	}
}

func extractErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if message := strings.TrimSpace(envelope.Error.Message); message != "" {
			return message
		}
		if status := strings.TrimSpace(envelope.Error.Status); status != "" {
			return status
		}
	}
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 512 {
		trimmed = trimmed[:512] + "...(truncated)"
	}
	return trimmed
}
