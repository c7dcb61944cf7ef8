package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sharan9277/ai-studio/internal/domain"
)

func validRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		ImageData: []byte{0xFF, 0xD8},
		Prompt:    "a sunset over the ocean",
		Style:     domain.StyleAnime,
	}
}

func TestStyleValid(t *testing.T) {
	for _, s := range domain.Styles {
		assert.True(t, s.Valid(), "style %q should be valid", s)
	}
	assert.False(t, domain.Style("").Valid())
	assert.False(t, domain.Style("vaporwave").Valid())
}

func TestGenerationRequestValidate(t *testing.T) {
	require.NoError(t, validRequest().Validate())

	tests := []struct {
		name   string
		mutate func(*domain.GenerationRequest)
		field  string
	}{
		{"missing image data", func(r *domain.GenerationRequest) { r.ImageData = nil }, "imageData"},
		{"empty prompt", func(r *domain.GenerationRequest) { r.Prompt = "" }, "prompt"},
		{"blank prompt", func(r *domain.GenerationRequest) { r.Prompt = "  \t " }, "prompt"},
		{"unknown style", func(r *domain.GenerationRequest) { r.Style = "sketch" }, "style"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := req.Validate()

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestGenerationResultValidate(t *testing.T) {
	result := domain.GenerationResult{
		ID:        "gen-1",
		ImageURL:  "https://example.com/gen-1.jpg",
		Prompt:    "a castle",
		Style:     domain.StyleOilPainting,
		CreatedAt: time.Now(),
	}
	require.NoError(t, result.Validate())

	missingID := result
	missingID.ID = ""
	assert.Error(t, missingID.Validate())

	missingURL := result
	missingURL.ImageURL = " "
	assert.Error(t, missingURL.Validate())

	missingStyle := result
	missingStyle.Style = ""
	assert.Error(t, missingStyle.Validate())
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, domain.Retryable(domain.ErrTimedOut))
	assert.True(t, domain.Retryable(&domain.TransientError{Cause: errors.New("overloaded")}))
	assert.True(t, domain.Retryable(fmt.Errorf("attempt failed: %w", domain.ErrTimedOut)))

	assert.False(t, domain.Retryable(domain.ErrCancelled))
	assert.False(t, domain.Retryable(&domain.ValidationError{Field: "prompt", Reason: "required"}))
	assert.False(t, domain.Retryable(errors.New("boom")))
	assert.False(t, domain.Retryable(context.Canceled))
}

func TestExhaustedErrorWrapsLastFailure(t *testing.T) {
	cause := &domain.TransientError{Cause: errors.New("overloaded")}
	err := &domain.ExhaustedError{Attempts: 3, Last: cause}

	assert.ErrorIs(t, err, domain.ErrExhausted)

	var transient *domain.TransientError
	assert.ErrorAs(t, err, &transient)
	assert.Contains(t, err.Error(), "3 attempts")
}
