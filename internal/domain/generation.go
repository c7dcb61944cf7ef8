package domain

import (
	"context"
	"strings"
	"time"
)

// Style identifies one of the fixed transformation styles offered by the studio.
type Style string

const (
	StyleAnime          Style = "anime"
	StylePhotorealistic Style = "photorealistic"
	StyleOilPainting    Style = "oil-painting"
	StyleCyberpunk      Style = "cyberpunk"
	StyleWatercolor     Style = "watercolor"
)

// Styles lists every style accepted by the studio, in presentation order.
var Styles = []Style{
	StyleAnime,
	StylePhotorealistic,
	StyleOilPainting,
	StyleCyberpunk,
	StyleWatercolor,
}

// Valid reports whether s is one of the fixed styles.
func (s Style) Valid() bool {
	for _, known := range Styles {
		if s == known {
			return true
		}
	}
	return false
}

// GenerationRequest represents the parameters for a single image transformation.
// It is created per submission, consumed immediately and discarded.
type GenerationRequest struct {
	ImageData []byte
	Prompt    string
	Style     Style
}

// Validate checks the request before it is handed to a backend.
func (r GenerationRequest) Validate() error {
	if len(r.ImageData) == 0 {
		return &ValidationError{Field: "imageData", Reason: "image data is required"}
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Reason: "prompt is required"}
	}
	if !r.Style.Valid() {
		return &ValidationError{Field: "style", Reason: "unknown style " + string(r.Style)}
	}
	return nil
}

// GenerationResult represents a completed generation. Results are immutable
// once produced; the history store owns them thereafter.
type GenerationResult struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"image_url"`
	Prompt    string    `json:"prompt"`
	Style     Style     `json:"style"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the shape of a result as stored or returned by a backend.
// ID, ImageURL and Style must be non-empty.
func (r GenerationResult) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return &ValidationError{Field: "id", Reason: "id is required"}
	}
	if strings.TrimSpace(r.ImageURL) == "" {
		return &ValidationError{Field: "imageUrl", Reason: "image URL is required"}
	}
	if strings.TrimSpace(string(r.Style)) == "" {
		return &ValidationError{Field: "style", Reason: "style is required"}
	}
	return nil
}

// GenerationBackend defines the interface for the generation collaborator.
// Implementations must honor context cancellation during their delay.
type GenerationBackend interface {
	// Generate performs a single generation attempt for the given request.
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}
