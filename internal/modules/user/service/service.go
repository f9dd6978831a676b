package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/notifiq/internal/entity"
	profileRepo "anoa.com/notifiq/internal/modules/profile/repository"
	search "anoa.com/notifiq/internal/modules/search/service"
	session "anoa.com/notifiq/internal/modules/session/service"
	"anoa.com/notifiq/internal/modules/user/dto"
	"anoa.com/notifiq/internal/modules/user/repository"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/logger"
	"anoa.com/notifiq/pkg/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", apperror.ErrUnauthorized)

// ViewerResolver turns a signed-in user into the merged viewer.
type ViewerResolver interface {
	Current(ctx context.Context, user *entity.User) (entity.Viewer, error)
}

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	GoogleLogin(state string) string
	GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error)
	// Authenticate validates a bearer token and loads its user.
	Authenticate(ctx context.Context, token string) (*entity.User, error)
}

type Settings struct {
	Secret   string
	TokenTTL time.Duration
	Google   oauth2.Config
}

// GoogleIdentity is the subset of the Google userinfo the service needs.
type GoogleIdentity struct {
	ID            string
	Email         string
	Name          string
	Picture       string
	VerifiedEmail bool
}

type authService struct {
	repo         repository.UserRepository
	profiles     profileRepo.ProfileRepository
	resolver     ViewerResolver
	meili        search.MeiliSearchService
	secret       []byte
	tokenTTL     time.Duration
	googleConfig *oauth2.Config
	fetchGoogle  func(ctx context.Context, code string) (*GoogleIdentity, error)
	now          func() time.Time
	log          *zap.Logger
}

func NewAuthService(repo repository.UserRepository, profiles profileRepo.ProfileRepository, resolver ViewerResolver, meili search.MeiliSearchService, settings Settings) AuthService {
	googleConfig := settings.Google
	googleConfig.Endpoint = google.Endpoint
	if len(googleConfig.Scopes) == 0 {
		googleConfig.Scopes = []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		}
	}

	ttl := settings.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	s := &authService{
		repo:         repo,
		profiles:     profiles,
		resolver:     resolver,
		meili:        meili,
		secret:       []byte(settings.Secret),
		tokenTTL:     ttl,
		googleConfig: &googleConfig,
		now:          time.Now,
		log:          logger.WithModule("auth"),
	}
	s.fetchGoogle = s.exchangeGoogleCode
	return s
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	email := normalizeEmail(input.Email)

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		metrics.AuthAttempts.WithLabelValues("password", "rejected").Inc()
		return nil, fmt.Errorf("%w: email already registered", apperror.ErrInvalidInput)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ClassifyStoreError(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = emailLocalPart(email)
	}

	user := &entity.User{
		Email:        email,
		DisplayName:  name,
		PasswordHash: string(hashed),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}

	metrics.AuthAttempts.WithLabelValues("register", "success").Inc()
	return s.signIn(ctx, user)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.AuthAttempts.WithLabelValues("password", "rejected").Inc()
			return nil, errInvalidCredentials
		}
		return nil, apperror.ClassifyStoreError(err)
	}

	// Google-only accounts have no password.
	if user.PasswordHash == "" {
		metrics.AuthAttempts.WithLabelValues("password", "rejected").Inc()
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		metrics.AuthAttempts.WithLabelValues("password", "rejected").Inc()
		return nil, errInvalidCredentials
	}

	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	return s.signIn(ctx, user)
}

func (s *authService) GoogleLogin(state string) string {
	return s.googleConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (s *authService) GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error) {
	identity, err := s.fetchGoogle(ctx, code)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("google", "failure").Inc()
		return nil, fmt.Errorf("%w: google sign-in failed: %v", apperror.ErrUpstream, err)
	}
	if !identity.VerifiedEmail || identity.Email == "" {
		metrics.AuthAttempts.WithLabelValues("google", "rejected").Inc()
		return nil, fmt.Errorf("%w: google account email is not verified", apperror.ErrUnauthorized)
	}

	user, err := s.findOrCreateGoogleUser(ctx, identity)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("google", "failure").Inc()
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues("google", "success").Inc()
	return s.signIn(ctx, user)
}

func (s *authService) findOrCreateGoogleUser(ctx context.Context, identity *GoogleIdentity) (*entity.User, error) {
	if user, err := s.repo.FindByGoogleID(ctx, identity.ID); err == nil {
		return user, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ClassifyStoreError(err)
	}

	email := normalizeEmail(identity.Email)
	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		user.GoogleID = &identity.ID
		if user.AvatarURL == nil && identity.Picture != "" {
			user.AvatarURL = &identity.Picture
		}
		if err := s.repo.Update(ctx, user); err != nil {
			s.log.Warn("failed to link google account", zap.String("email", email), zap.Error(err))
		}
		return user, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		name := strings.TrimSpace(identity.Name)
		if name == "" {
			name = emailLocalPart(email)
		}
		user = &entity.User{
			Email:       email,
			DisplayName: name,
			GoogleID:    &identity.ID,
		}
		if identity.Picture != "" {
			user.AvatarURL = &identity.Picture
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, apperror.ClassifyStoreError(err)
		}
		return user, nil

	default:
		return nil, apperror.ClassifyStoreError(err)
	}
}

func (s *authService) exchangeGoogleCode(ctx context.Context, code string) (*GoogleIdentity, error) {
	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	svc, err := googleoauth.NewService(ctx, option.WithTokenSource(s.googleConfig.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	return &GoogleIdentity{
		ID:            info.Id,
		Email:         info.Email,
		Name:          info.Name,
		Picture:       info.Picture,
		VerifiedEmail: info.VerifiedEmail != nil && *info.VerifiedEmail,
	}, nil
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*entity.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", apperror.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid token claims", apperror.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token subject", apperror.ErrUnauthorized)
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", apperror.ErrUnauthorized)
		}
		return nil, apperror.ClassifyStoreError(err)
	}
	return user, nil
}

// signIn claims any placeholder profile provisioned for the email, then
// issues the bearer token and the college-scoped search token.
func (s *authService) signIn(ctx context.Context, user *entity.User) (*dto.AuthResponse, error) {
	if claimed, err := s.profiles.ClaimByEmail(ctx, user.Email, user.ID); err != nil {
		s.log.Warn("failed to claim placeholder profile", zap.String("email", user.Email), zap.Error(err))
	} else if claimed {
		s.log.Info("placeholder profile claimed", zap.String("user_id", user.ID.String()))
	}

	viewer, err := s.resolver.Current(ctx, user)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	var searchToken string
	if s.meili != nil && (viewer.HasCollege() || viewer.IsSuperAdmin()) {
		st, err := s.meili.GenerateSearchToken(viewer)
		if err != nil {
			s.log.Warn("failed to generate search token", zap.String("user_id", user.ID.String()), zap.Error(err))
		} else {
			searchToken = st
		}
	}

	return &dto.AuthResponse{
		AccessToken:  token,
		TokenType:    "Bearer",
		ExpiresIn:    expiresAt,
		Viewer:       viewer,
		SearchToken:  searchToken,
		NeedsCollege: !viewer.IsSuperAdmin() && !viewer.HasCollege(),
		Redirect:     session.HomeRoute(viewer),
	}, nil
}

func (s *authService) generateToken(user *entity.User) (string, int64, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
