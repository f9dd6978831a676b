package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	contactDto "anoa.com/notifiq/internal/modules/contact/dto"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/logger"
	"anoa.com/notifiq/pkg/mailer"
	"anoa.com/notifiq/pkg/metrics"
	"anoa.com/notifiq/pkg/ratelimiter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultPurpose = "General Inquiry"

var Purposes = []string{"College Onboarding", "Technical Support", DefaultPurpose}

type ContactService interface {
	Send(ctx context.Context, clientIP string, req contactDto.ContactRequest) error
}

type contactService struct {
	mailer mailer.Mailer
	rdb    *redis.Client
	window time.Duration
	log    *zap.Logger
}

func NewContactService(m mailer.Mailer, rdb *redis.Client, window time.Duration) ContactService {
	return &contactService{
		mailer: m,
		rdb:    rdb,
		window: window,
		log:    logger.WithModule("contact"),
	}
}

func validPurpose(p string) bool {
	for _, candidate := range Purposes {
		if p == candidate {
			return true
		}
	}
	return false
}

func (s *contactService) Send(ctx context.Context, clientIP string, req contactDto.ContactRequest) error {
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" {
		purpose = DefaultPurpose
	}
	if !validPurpose(purpose) {
		return fmt.Errorf("%w: unknown purpose %q", apperror.ErrInvalidInput, purpose)
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message is required", apperror.ErrInvalidInput)
	}

	subject := "ip:" + clientIP
	if err := ratelimiter.Enforce(ctx, s.rdb, subject, "contact", s.window); err != nil {
		metrics.Emails.WithLabelValues("rate_limited").Inc()
		return err
	}

	err := s.mailer.Send(ctx, mailer.Message{Params: map[string]string{
		"organization_name": strings.TrimSpace(req.OrganizationName),
		"user_name":         strings.TrimSpace(req.UserName),
		"user_email":        strings.TrimSpace(req.UserEmail),
		"user_phone":        strings.TrimSpace(req.UserPhone),
		"purpose":           purpose,
		"message":           req.Message,
	}})
	if err != nil {
		metrics.Emails.WithLabelValues("failure").Inc()
		// A failed send does not count against the sender.
		if clearErr := ratelimiter.Clear(ctx, s.rdb, subject, "contact"); clearErr != nil {
			s.log.Warn("failed to release contact rate limit", zap.Error(clearErr))
		}
		if errors.Is(err, mailer.ErrDisabled) {
			return fmt.Errorf("%w: contact form is not configured", apperror.ErrUpstream)
		}
		s.log.Error("failed to relay contact message", zap.Error(err))
		return fmt.Errorf("%w: failed to send message", apperror.ErrUpstream)
	}

	metrics.Emails.WithLabelValues("success").Inc()
	return nil
}
