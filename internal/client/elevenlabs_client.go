package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/voicemint/api/internal/apperr"
	"github.com/voicemint/api/internal/config"
	"github.com/voicemint/api/internal/model"
)

// VoiceProvider defines the remote voice-cloning operations the
// orchestrator and the sweeper depend on.
type VoiceProvider interface {
	CreateVoice(ctx context.Context, name, description string, samples []VoiceSample) (string, error)
	Synthesize(ctx context.Context, voiceID, text string, settings model.VoiceSettings) ([]byte, error)
	DeleteVoice(ctx context.Context, voiceID string) error
	ListVoices(ctx context.Context) ([]VoiceInfo, error)
}

// VoiceSample is one audio blob attached to a create-voice request.
type VoiceSample struct {
	Filename    string
	ContentType string
	Data        []byte
}

// VoiceInfo identifies a voice held by the provider.
type VoiceInfo struct {
	ID   string
	Name string
}

// ElevenLabsClient implements VoiceProvider against the ElevenLabs API.
// It performs no retries itself; callers wrap the generation-critical
// operations in the retry executor.
type ElevenLabsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	modelID    string
	cfg        *config.ElevenLabsConfig
}

// NewElevenLabsClient creates a provider client from explicit configuration.
func NewElevenLabsClient(cfg *config.ElevenLabsConfig) *ElevenLabsClient {
	return &ElevenLabsClient{
		// Per-call deadlines come from the config; no blanket client timeout.
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		modelID:    cfg.ModelID,
		cfg:        cfg,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *ElevenLabsClient) IsConfigured() bool {
	return c.apiKey != ""
}

// CreateVoice registers a cloned voice from the given samples and returns
// the provider's opaque voice id.
func (c *ElevenLabsClient) CreateVoice(ctx context.Context, name, description string, samples []VoiceSample) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CreateTimeout)
	defer cancel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", name); err != nil {
		return "", apperr.Wrap(apperr.Unknown, "failed to build voice form", err)
	}
	if description != "" {
		if err := mw.WriteField("description", description); err != nil {
			return "", apperr.Wrap(apperr.Unknown, "failed to build voice form", err)
		}
	}
	for _, sample := range samples {
		part, err := mw.CreateFormFile("files", sample.Filename)
		if err != nil {
			return "", apperr.Wrap(apperr.Unknown, "failed to build voice form", err)
		}
		if _, err := part.Write(sample.Data); err != nil {
			return "", apperr.Wrap(apperr.Unknown, "failed to build voice form", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", apperr.Wrap(apperr.Unknown, "failed to build voice form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/voices/add", &buf)
	if err != nil {
		return "", apperr.Wrap(apperr.Unknown, "failed to create request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.doRequest(req)
	if err != nil {
		return "", err
	}

	var result struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", apperr.Wrap(apperr.Unknown, "failed to unmarshal voice response", err)
	}
	if result.VoiceID == "" {
		return "", apperr.New(apperr.Unknown, "provider returned no voice id")
	}
	return result.VoiceID, nil
}

// Synthesize renders text with the given voice and returns raw audio bytes.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, voiceID, text string, settings model.VoiceSettings) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SynthesizeTimeout)
	defer cancel()

	payload := struct {
		Text          string              `json:"text"`
		ModelID       string              `json:"model_id"`
		VoiceSettings model.VoiceSettings `json:"voice_settings"`
	}{
		Text:          text,
		ModelID:       c.modelID,
		VoiceSettings: settings,
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unknown, "failed to marshal synthesis request", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.Unknown, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	return c.doRequest(req)
}

// DeleteVoice removes a voice from the provider. A 404 means the voice is
// already gone and counts as success so that the generation cleanup path
// and the sweeper stay idempotent.
func (c *ElevenLabsClient) DeleteVoice(ctx context.Context, voiceID string) error {
	endpoint := fmt.Sprintf("%s/v1/voices/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return apperr.Wrap(apperr.Unknown, "failed to create request", err)
	}

	_, err = c.doRequest(req)
	if err != nil && apperr.KindOf(err) == apperr.NotFound {
		return nil
	}
	return err
}

// ListVoices returns all voices the account currently holds.
func (c *ElevenLabsClient) ListVoices(ctx context.Context) ([]VoiceInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unknown, "failed to create request", err)
	}

	body, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	var result struct {
		Voices []struct {
			VoiceID string `json:"voice_id"`
			Name    string `json:"name"`
		} `json:"voices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperr.Wrap(apperr.Unknown, "failed to unmarshal voices response", err)
	}

	voices := make([]VoiceInfo, 0, len(result.Voices))
	for _, v := range result.Voices {
		voices = append(voices, VoiceInfo{ID: v.VoiceID, Name: v.Name})
	}
	return voices, nil
}

// doRequest executes an HTTP request and returns the raw response body, or
// a kinded error derived from the provider's status code and body.
func (c *ElevenLabsClient) doRequest(req *http.Request) ([]byte, error) {
	req.Header.Set("xi-api-key", c.apiKey)

	log.Printf("[ElevenLabs] → %s %s", req.Method, req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[ElevenLabs] ✗ %s %s — request failed: %v", req.Method, req.URL.Path, err)
		return nil, apperr.Wrap(apperr.ProviderUnavailable, "provider request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.ProviderUnavailable, "failed to read provider response", err)
	}

	log.Printf("[ElevenLabs] ← %d %s %s", resp.StatusCode, req.Method, req.URL.Path)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyProviderError(resp.StatusCode, body)
	}
	return body, nil
}

// classifyProviderError maps a provider HTTP status and response body onto
// the error taxonomy. The body text is only consulted to refine otherwise
// ambiguous statuses; the resulting kind is authoritative from here on.
func classifyProviderError(status int, body []byte) error {
	msg := strings.ToLower(string(body))

	switch {
	case status == http.StatusUnauthorized:
		return apperr.Newf(apperr.AuthFailed, "provider rejected API key (status %d)", status)
	case status == http.StatusPaymentRequired:
		return apperr.Newf(apperr.QuotaExceeded, "provider quota exceeded (status %d)", status)
	case status == http.StatusNotFound:
		return apperr.Newf(apperr.NotFound, "provider resource not found (status %d)", status)
	case status == http.StatusUnprocessableEntity:
		if strings.Contains(msg, "audio") {
			return apperr.Newf(apperr.InvalidInput, "provider rejected audio samples (status %d): %s", status, truncate(msg, 200))
		}
		return apperr.Newf(apperr.InvalidInput, "provider rejected input (status %d): %s", status, truncate(msg, 200))
	case status == http.StatusTooManyRequests:
		return apperr.Newf(apperr.RateLimited, "provider rate limit hit (status %d)", status)
	case status >= 500:
		return apperr.Newf(apperr.ProviderUnavailable, "provider unavailable (status %d)", status)
	}

	// Heuristic upgrade for providers that bury billing and validation
	// failures under generic statuses.
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "payment") || strings.Contains(msg, "subscription"):
		return apperr.Newf(apperr.QuotaExceeded, "provider quota exceeded (status %d): %s", status, truncate(msg, 200))
	case strings.Contains(msg, "invalid"):
		return apperr.Newf(apperr.InvalidInput, "provider rejected input (status %d): %s", status, truncate(msg, 200))
	}

	return apperr.Newf(apperr.Unknown, "provider error (status %d): %s", status, truncate(msg, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so a multi-byte character is never split.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
