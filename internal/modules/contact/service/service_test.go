package service

import (
	"context"
	"errors"
	"testing"
	"time"

	contactDto "anoa.com/notifiq/internal/modules/contact/dto"
	"anoa.com/notifiq/internal/testutil"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/mailer"
	"anoa.com/notifiq/pkg/ratelimiter"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func validRequest() contactDto.ContactRequest {
	return contactDto.ContactRequest{
		OrganizationName: "Springfield University",
		UserName:         "John Doe",
		UserEmail:        "john@example.com",
		Message:          "We would like to onboard.",
	}
}

func TestSendRelaysTemplateParams(t *testing.T) {
	rdb, _ := testutil.MustOpenRedis(t)
	m := &recordingMailer{}
	svc := NewContactService(m, rdb, time.Minute)

	require.NoError(t, svc.Send(context.Background(), "10.0.0.1", validRequest()))
	require.Len(t, m.sent, 1)
	require.Equal(t, "General Inquiry", m.sent[0].Params["purpose"])
	require.Equal(t, "Springfield University", m.sent[0].Params["organization_name"])
}

func TestSendIsRateLimitedPerIP(t *testing.T) {
	rdb, mr := testutil.MustOpenRedis(t)
	m := &recordingMailer{}
	svc := NewContactService(m, rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, "10.0.0.1", validRequest()))

	err := svc.Send(ctx, "10.0.0.1", validRequest())
	var rl *ratelimiter.RateLimitError
	require.True(t, errors.As(err, &rl))

	require.NoError(t, svc.Send(ctx, "10.0.0.2", validRequest()))

	mr.FastForward(time.Minute + time.Second)
	require.NoError(t, svc.Send(ctx, "10.0.0.1", validRequest()))
	require.Len(t, m.sent, 3)
}

func TestSendFailureReleasesLimit(t *testing.T) {
	rdb, _ := testutil.MustOpenRedis(t)
	m := &recordingMailer{err: errors.New("relay down")}
	svc := NewContactService(m, rdb, time.Minute)
	ctx := context.Background()

	err := svc.Send(ctx, "10.0.0.1", validRequest())
	require.ErrorIs(t, err, apperror.ErrUpstream)

	m.err = nil
	require.NoError(t, svc.Send(ctx, "10.0.0.1", validRequest()))
}

func TestSendRejectsUnknownPurpose(t *testing.T) {
	m := &recordingMailer{}
	svc := NewContactService(m, nil, time.Minute)

	req := validRequest()
	req.Purpose = "Spam"
	require.ErrorIs(t, svc.Send(context.Background(), "10.0.0.1", req), apperror.ErrInvalidInput)
	require.Empty(t, m.sent)
}

func TestSendDisabledRelay(t *testing.T) {
	svc := NewContactService(&recordingMailer{err: mailer.ErrDisabled}, nil, time.Minute)
	err := svc.Send(context.Background(), "10.0.0.1", validRequest())
	require.ErrorIs(t, err, apperror.ErrUpstream)
	require.Contains(t, err.Error(), "not configured")
}
