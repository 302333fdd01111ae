package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"gemini-playground/internal/model"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

var (
	ErrEmptyModel    = errors.New("model identifier is empty")
	ErrEmptyResponse = errors.New("empty model response")
)

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

var _ HTTPClient = (*http.Client)(nil)

// Client talks to the Gemini REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
}

// NewClient returns a client without a request timeout; generation calls may take
// as long as the provider needs.
func NewClient(baseURL, apiKey string) *Client {
	return NewClientWithHTTP(baseURL, apiKey, &http.Client{})
}

func NewClientWithHTTP(baseURL, apiKey string, httpClient HTTPClient) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Model is a handle on one model and system instruction. It also carries its own
// dialogue for stateful chat.
type Model struct {
	client            *Client
	id                string
	systemInstruction string

	mu       sync.Mutex
	dialogue []content
}

func (c *Client) NewHandle(modelID, systemInstruction string) (*Model, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, ErrEmptyModel
	}
	if strings.ContainsAny(modelID, "/?# ") {
		return nil, fmt.Errorf("invalid model identifier %q", modelID)
	}
	return &Model{
		client:            c,
		id:                modelID,
		systemInstruction: strings.TrimSpace(systemInstruction),
	}, nil
}

func (m *Model) ModelID() string {
	return m.id
}

// SendMessage continues the model's dialogue with text. The dialogue only grows
// when the provider answers.
func (m *Model) SendMessage(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	contents := make([]content, 0, len(m.dialogue)+1)
	contents = append(contents, m.dialogue...)
	contents = append(contents, content{Role: roleUser, Parts: []part{{Text: text}}})

	reply, err := m.client.generate(ctx, m.id, m.systemInstruction, contents)
	if err != nil {
		return "", err
	}
	m.dialogue = append(contents, content{Role: roleModel, Parts: []part{{Text: reply}}})
	return reply, nil
}

// GenerateContent sends req as one stateless call; documents and text share a single user turn.
func (m *Model) GenerateContent(ctx context.Context, req model.OutgoingRequest) (string, error) {
	parts := make([]part, 0, len(req))
	for _, item := range req {
		switch it := item.(type) {
		case model.DocumentItem:
			parts = append(parts, part{FileData: &fileData{MIMEType: it.Ref.MIMEType, FileURI: it.Ref.URI}})
		case model.TextItem:
			parts = append(parts, part{Text: it.Text})
		default:
			return "", fmt.Errorf("unsupported request item %T", item)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("request payload is empty")
	}
	return m.client.generate(ctx, m.id, m.systemInstruction, []content{{Role: roleUser, Parts: parts}})
}

// DialogueLen reports how many contents the stateful dialogue holds.
func (m *Model) DialogueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dialogue)
}

const (
	roleUser  = "user"
	roleModel = "model"
)

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MIMEType string `json:"mime_type,omitempty"`
	FileURI  string `json:"file_uri"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"system_instruction,omitempty"`
}

func (c *Client) generate(ctx context.Context, modelID, systemInstruction string, contents []content) (string, error) {
	body := generateRequest{Contents: contents}
	if systemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: systemInstruction}}}
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request failed: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build gemini request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse gemini json failed: %w", err)
	}
	if parsed.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: finish reason %s", ErrEmptyResponse, parsed.Candidates[0].FinishReason)
	}
	return text.String(), nil
}
