package service

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/notifiq/internal/agent/providers"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/logger"
	"anoa.com/notifiq/pkg/metrics"
	"go.uber.org/zap"
)

const (
	ToneProfessional = "Professional"
	ToneCasual       = "Casual"
	ToneConcise      = "Concise"
)

var Tones = []string{ToneProfessional, ToneCasual, ToneConcise}

const promptTemplate = `Rewrite the following notice description to be more %s.

CRITICAL RULES:
1. Provide ONLY the rewritten text.
2. USE MARKDOWN (bolding, bullet points, correctly spaced headers) to make the information prominent and readable.
3. DO NOT provide multiple options.
4. DO NOT include any introductory or concluding remarks (e.g., "Here is your rewrite").
5. DO NOT use labels like 'Option 1'.
6. Keep all original facts and details intact.

Target Description:
%s`

func BuildPrompt(text, tone string) string {
	return fmt.Sprintf(promptTemplate, tone, text)
}

func ValidTone(tone string) bool {
	for _, t := range Tones {
		if t == tone {
			return true
		}
	}
	return false
}

type RewriteService interface {
	Rewrite(ctx context.Context, text, tone string) (string, error)
}

type rewriteService struct {
	provider providers.LLMProvider
	log      *zap.Logger
}

// NewRewriteService accepts a nil provider; every call then fails as an
// upstream error.
func NewRewriteService(provider providers.LLMProvider) RewriteService {
	return &rewriteService{
		provider: provider,
		log:      logger.WithModule("rewrite"),
	}
}

func (s *rewriteService) Rewrite(ctx context.Context, text, tone string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: description is empty", apperror.ErrInvalidInput)
	}
	if !ValidTone(tone) {
		return "", fmt.Errorf("%w: unknown tone %q", apperror.ErrInvalidInput, tone)
	}
	if s.provider == nil {
		metrics.Rewrites.WithLabelValues(tone, "failure").Inc()
		return "", fmt.Errorf("%w: AI rewrite is not configured", apperror.ErrUpstream)
	}

	out, err := s.provider.GenerateText(ctx, BuildPrompt(text, tone))
	if err != nil {
		metrics.Rewrites.WithLabelValues(tone, "failure").Inc()
		s.log.Warn("rewrite failed", zap.String("tone", tone), zap.Error(err))
		return "", fmt.Errorf("%w: %v", apperror.ErrUpstream, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		metrics.Rewrites.WithLabelValues(tone, "failure").Inc()
		return "", fmt.Errorf("%w: empty rewrite", apperror.ErrUpstream)
	}

	metrics.Rewrites.WithLabelValues(tone, "success").Inc()
	return out, nil
}
