package provider

import (
	"context"
	"errors"

	"github.com/manash/visionary/pkg/models"
)

var (
	ErrAPIKeyRequired   = errors.New("API key is required")
	ErrGenerationFailed = errors.New("image generation failed")
	ErrEmptyResult      = errors.New("backend returned no images")
)

// Provider turns a text prompt into image references. Implementations make
// exactly one backend call per Generate and never touch local state. A nil
// error means the response carries at least one image.
type Provider interface {
	Name() models.ProviderType
	Generate(ctx context.Context, req *models.Request) (*models.Response, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	TimeoutSec int
	Verbose    bool
}
