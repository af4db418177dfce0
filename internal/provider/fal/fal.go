package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/manash/visionary/internal/provider"
	"github.com/manash/visionary/pkg/models"
)

const (
	defaultBaseURL = "https://fal.run"
	modelPath      = "fal-ai/flux/dev"
	defaultTimeout = 120 * time.Second
)

// Fixed synthesis policy. These are not user-configurable.
const (
	numInferenceSteps   = 28
	guidanceScale       = 3.5
	numImages           = 1
	enableSafetyChecker = true
)

type apiRequest struct {
	Prompt              string  `json:"prompt"`
	NumInferenceSteps   int     `json:"num_inference_steps"`
	GuidanceScale       float64 `json:"guidance_scale"`
	NumImages           int     `json:"num_images"`
	EnableSafetyChecker bool    `json:"enable_safety_checker"`
}

type apiResponse struct {
	Images          []models.ImageRef `json:"images"`
	Seed            int64             `json:"seed"`
	HasNSFWConcepts []bool            `json:"has_nsfw_concepts"`
	Prompt          string            `json:"prompt"`
}

// fal reports errors as {"detail": ...} where detail is either a string or a
// structured validation list.
type apiError struct {
	Detail json.RawMessage `json:"detail"`
}

func (e *apiError) message() string {
	if len(e.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return string(e.Detail)
}

type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	verbose    bool
}

func New(cfg *provider.Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		verbose: cfg.Verbose,
	}, nil
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderFal
}

func (p *Provider) Generate(ctx context.Context, req *models.Request) (*models.Response, error) {
	apiReq := &apiRequest{
		Prompt:              req.Prompt,
		NumInferenceSteps:   numInferenceSteps,
		GuidanceScale:       guidanceScale,
		NumImages:           numImages,
		EnableSafetyChecker: enableSafetyChecker,
	}

	jsonData, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/" + modelPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+p.apiKey)

	p.logRequest(http.MethodPost, url, httpReq.Header, jsonData)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", provider.ErrGenerationFailed, err)
	}

	p.logResponse(resp.StatusCode, resp.Header, body)

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.message() != "" {
			return nil, fmt.Errorf("%w: %s", provider.ErrGenerationFailed, apiErr.message())
		}
		return nil, fmt.Errorf("%w: status %d", provider.ErrGenerationFailed, resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", provider.ErrGenerationFailed, err)
	}

	if len(apiResp.Images) == 0 {
		return nil, provider.ErrEmptyResult
	}

	return &models.Response{
		Images: apiResp.Images,
		Seed:   apiResp.Seed,
	}, nil
}

func (p *Provider) logRequest(method, url string, headers http.Header, body []byte) {
	if !p.verbose {
		return
	}

	fmt.Fprintln(os.Stderr, "--- REQUEST ---")
	fmt.Fprintf(os.Stderr, "%s %s\n", method, url)
	fmt.Fprintln(os.Stderr, "Headers:")
	for key, values := range headers {
		for _, value := range values {
			if strings.ToLower(key) == "authorization" {
				value = "[REDACTED]"
			}
			fmt.Fprintf(os.Stderr, "  %s: %s\n", key, value)
		}
	}
	if len(body) > 0 {
		fmt.Fprintln(os.Stderr, "Body:")
		var prettyJSON bytes.Buffer
		if err := json.Indent(&prettyJSON, body, "  ", "  "); err == nil {
			fmt.Fprintf(os.Stderr, "  %s\n", prettyJSON.String())
		} else {
			fmt.Fprintf(os.Stderr, "  %s\n", string(body))
		}
	}
	fmt.Fprintln(os.Stderr, "---------------")
}

func (p *Provider) logResponse(statusCode int, headers http.Header, body []byte) {
	if !p.verbose {
		return
	}

	fmt.Fprintln(os.Stderr, "--- RESPONSE ---")
	fmt.Fprintf(os.Stderr, "Status: %d\n", statusCode)
	fmt.Fprintln(os.Stderr, "Headers:")
	for key, values := range headers {
		for _, value := range values {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", key, value)
		}
	}
	if len(body) > 0 {
		fmt.Fprintln(os.Stderr, "Body:")
		var prettyJSON bytes.Buffer
		if err := json.Indent(&prettyJSON, body, "  ", "  "); err == nil {
			fmt.Fprintf(os.Stderr, "  %s\n", prettyJSON.String())
		} else {
			fmt.Fprintf(os.Stderr, "  %s\n", string(body))
		}
	}
	fmt.Fprintln(os.Stderr, "----------------")
}
