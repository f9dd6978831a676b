package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"anoa.com/notifiq/internal/entity"
	profileRepo "anoa.com/notifiq/internal/modules/profile/repository"
	session "anoa.com/notifiq/internal/modules/session/service"
	"anoa.com/notifiq/internal/modules/user/dto"
	"anoa.com/notifiq/internal/modules/user/repository"
	"anoa.com/notifiq/internal/realtime"
	"anoa.com/notifiq/internal/testutil"
	"anoa.com/notifiq/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthService(t *testing.T) (*authService, *gorm.DB) {
	t.Helper()
	db := testutil.MustOpenTestDB(t)
	profiles := profileRepo.NewProfileRepository(db)
	svc := NewAuthService(
		repository.NewUserRepository(db),
		profiles,
		session.NewResolver(realtime.NewMemoryHub(), profiles),
		nil,
		Settings{Secret: "test-secret", TokenTTL: time.Hour},
	)
	return svc.(*authService), db
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, dto.RegisterInput{Email: " Jane@North.edu ", Password: "correct horse"})
	require.NoError(t, err)
	require.Equal(t, "Bearer", res.TokenType)
	require.Equal(t, "jane@north.edu", res.Viewer.Email)
	require.Equal(t, "jane", res.Viewer.DisplayName)
	require.True(t, res.NeedsCollege)
	require.Equal(t, "/login", res.Redirect)

	_, err = svc.Register(ctx, dto.RegisterInput{Email: "jane@north.edu", Password: "another one"})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	login, err := svc.Login(ctx, dto.LoginInput{Email: "JANE@north.edu", Password: "correct horse"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)
	require.Equal(t, res.Viewer.ID, user.ID)

	_, err = svc.Login(ctx, dto.LoginInput{Email: "jane@north.edu", Password: "wrong"})
	require.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = svc.Login(ctx, dto.LoginInput{Email: "nobody@north.edu", Password: "whatever"})
	require.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "not-a-token")
	require.ErrorIs(t, err, apperror.ErrUnauthorized)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"})
	signed, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, signed)
	require.ErrorIs(t, err, apperror.ErrUnauthorized)

	res, err := svc.Register(ctx, dto.RegisterInput{Email: "a@north.edu", Password: "password1"})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	user := &entity.User{ID: res.Viewer.ID}
	expired, _, err := svc.generateToken(user)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, expired)
	require.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestSignInClaimsPlaceholderProfile(t *testing.T) {
	svc, db := newAuthService(t)
	ctx := context.Background()
	fx := testutil.Fixture{DB: db}
	college := fx.College(t, "North", "NORTH")

	placeholder := entity.Profile{
		Email:       "prof@north.edu",
		Name:        "Prof",
		Role:        entity.RoleAdmin,
		CollegeID:   &college.ID,
		CollegeName: college.Name,
	}
	require.NoError(t, db.Create(&placeholder).Error)

	res, err := svc.Register(ctx, dto.RegisterInput{Email: "prof@north.edu", Password: "password1"})
	require.NoError(t, err)
	require.Equal(t, entity.RoleAdmin, res.Viewer.Role)
	require.Equal(t, "Prof", res.Viewer.DisplayName)
	require.False(t, res.NeedsCollege)
	require.Equal(t, "/admin", res.Redirect)
}

func TestGoogleCallback(t *testing.T) {
	svc, db := newAuthService(t)
	ctx := context.Background()

	identity := &GoogleIdentity{ID: "g-1", Email: "Sam@North.edu", Name: "Sam", VerifiedEmail: true}
	svc.fetchGoogle = func(context.Context, string) (*GoogleIdentity, error) { return identity, nil }

	first, err := svc.GoogleCallback(ctx, "code")
	require.NoError(t, err)
	require.Equal(t, "sam@north.edu", first.Viewer.Email)

	second, err := svc.GoogleCallback(ctx, "code")
	require.NoError(t, err)
	require.Equal(t, first.Viewer.ID, second.Viewer.ID)

	var count int64
	require.NoError(t, db.Model(&entity.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// A password account with the same email gets linked, not duplicated.
	_, err = svc.Register(ctx, dto.RegisterInput{Email: "kim@north.edu", Password: "password1"})
	require.NoError(t, err)
	identity = &GoogleIdentity{ID: "g-2", Email: "kim@north.edu", VerifiedEmail: true}
	linked, err := svc.GoogleCallback(ctx, "code")
	require.NoError(t, err)
	require.NoError(t, db.Model(&entity.User{}).Count(&count).Error)
	require.EqualValues(t, 2, count)

	var kim entity.User
	require.NoError(t, db.First(&kim, "id = ?", linked.Viewer.ID).Error)
	require.Equal(t, "g-2", *kim.GoogleID)

	identity = &GoogleIdentity{ID: "g-3", Email: "x@north.edu"}
	_, err = svc.GoogleCallback(ctx, "code")
	require.ErrorIs(t, err, apperror.ErrUnauthorized)

	svc.fetchGoogle = func(context.Context, string) (*GoogleIdentity, error) { return nil, errors.New("boom") }
	_, err = svc.GoogleCallback(ctx, "code")
	require.ErrorIs(t, err, apperror.ErrUpstream)
}
