package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/services"
	"scribe/internal/transcript"
)

const defaultHTTPTimeout = 10 * time.Minute

// Config captures the runtime settings required to talk to the provider.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// Client wraps an OpenAI-compatible audio transcription endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type transcriptionResponse struct {
	Language string `json:"language"`
	Segments []struct {
		ID         int      `json:"id"`
		Start      float64  `json:"start"`
		End        float64  `json:"end"`
		Text       string   `json:"text"`
		Speaker    string   `json:"speaker"`
		Confidence *float64 `json:"confidence"`
	} `json:"segments"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe submits the audio file at path and returns the parsed transcript.
// Failures are tagged with the services taxonomy so callers can decide
// whether to retry.
func (c *Client) Transcribe(ctx context.Context, path, languageHint string) (transcript.Transcript, error) {
	var empty transcript.Transcript
	if c.cfg.BaseURL == "" {
		return empty, services.Wrap(services.ErrConfiguration, "transcription", "transcribe", "stt base url not configured", nil)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return empty, services.Wrap(services.ErrValidation, "transcription", "transcribe", "audio path required", nil)
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return empty, services.Wrap(services.ErrNotFound, "transcription", "read audio", path, err)
	}
	if len(audio) == 0 {
		return empty, services.Wrap(services.ErrValidation, "transcription", "read audio", "audio file is empty", nil)
	}

	body, contentType, err := buildMultipart(filepath.Base(path), audio, c.cfg.Model, languageHint)
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "transcription", "encode request", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, body)
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "transcription", "build request", "", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return empty, err
		}
		marker := services.ErrTransient
		if isTimeout(err) {
			marker = services.ErrTimeout
		}
		return empty, services.Wrap(marker, "transcription", "transcribe", "provider request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "transcription", "read response", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return empty, classifyStatus(resp.StatusCode, payload)
	}

	var decoded transcriptionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return empty, services.Wrap(services.ErrTransient, "transcription", "decode response", "", err)
	}
	if decoded.Error != nil {
		return empty, services.Wrap(services.ErrValidation, "transcription", "transcribe", strings.TrimSpace(decoded.Error.Message), nil)
	}

	return convert(decoded), nil
}

// HealthCheck verifies the endpoint is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return services.Wrap(services.ErrConfiguration, "transcription", "health", "stt base url not configured", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.cfg.BaseURL, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcription", "health", "", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcription", "health", "endpoint unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func buildMultipart(filename string, audio []byte, model, language string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	if model != "" {
		if err := writer.WriteField("model", model); err != nil {
			return nil, "", err
		}
	}
	if language = strings.TrimSpace(language); language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func classifyStatus(status int, body []byte) error {
	detail := fmt.Sprintf("http %d: %s", status, summarizeBody(body))
	switch {
	case status == http.StatusRequestTimeout:
		return services.Wrap(services.ErrTimeout, "transcription", "transcribe", detail, nil)
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "transcription", "transcribe", detail, nil)
	default:
		return services.Wrap(services.ErrValidation, "transcription", "transcribe", detail, nil)
	}
}

func convert(decoded transcriptionResponse) transcript.Transcript {
	out := transcript.Transcript{Language: strings.TrimSpace(decoded.Language)}
	speakers := make(map[string]*float64)
	order := make([]string, 0, 4)
	for _, seg := range decoded.Segments {
		speaker := strings.TrimSpace(seg.Speaker)
		out.Segments = append(out.Segments, transcript.Segment{
			Index:    seg.ID,
			Speaker:  speaker,
			StartSec: seg.Start,
			EndSec:   seg.End,
			Text:     strings.TrimSpace(seg.Text),
		})
		if speaker == "" {
			continue
		}
		if _, seen := speakers[speaker]; !seen {
			speakers[speaker] = seg.Confidence
			order = append(order, speaker)
		}
	}
	for _, name := range order {
		out.Speakers = append(out.Speakers, transcript.Speaker{Name: name, Confidence: speakers[name]})
	}
	return out
}

func summarizeBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	const limit = 160
	if len(text) > limit {
		text = text[:limit] + "..."
	}
	if text == "" {
		return "<empty>"
	}
	return text
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
