package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/notifiq/internal/entity"
	collegeRepo "anoa.com/notifiq/internal/modules/college/repository"
	profileDto "anoa.com/notifiq/internal/modules/profile/dto"
	profileRepo "anoa.com/notifiq/internal/modules/profile/repository"
	session "anoa.com/notifiq/internal/modules/session/service"
	userRepo "anoa.com/notifiq/internal/modules/user/repository"
	"anoa.com/notifiq/internal/realtime"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errCodeRequired = fmt.Errorf("%w: College access code is required", apperror.ErrInvalidInput)
	errInvalidCode  = fmt.Errorf("%w: Invalid college access code", apperror.ErrInvalidInput)
)

type ProfileService interface {
	GetCurrentProfile(ctx context.Context, viewer entity.Viewer) (*profileDto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, viewer entity.Viewer, input profileDto.UpdateProfileInput) (*profileDto.ProfileResponse, error)
	JoinCollege(ctx context.Context, viewer entity.Viewer, code string) (*profileDto.JoinCollegeResponse, error)
}

type profileService struct {
	profiles profileRepo.ProfileRepository
	colleges collegeRepo.CollegeRepository
	users    userRepo.UserRepository
	resolver *session.Resolver
	hub      realtime.Hub
	log      *zap.Logger
}

func NewProfileService(profiles profileRepo.ProfileRepository, colleges collegeRepo.CollegeRepository, users userRepo.UserRepository, resolver *session.Resolver, hub realtime.Hub) ProfileService {
	return &profileService{
		profiles: profiles,
		colleges: colleges,
		users:    users,
		resolver: resolver,
		hub:      hub,
		log:      logger.WithModule("profile"),
	}
}

func (s *profileService) GetCurrentProfile(ctx context.Context, viewer entity.Viewer) (*profileDto.ProfileResponse, error) {
	if !viewer.IsAuthenticated() {
		return nil, apperror.ErrUnauthorized
	}

	profile, err := s.profiles.FindByUserID(ctx, viewer.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ClassifyStoreError(err)
	}
	return &profileDto.ProfileResponse{Viewer: viewer, Profile: profile}, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, viewer entity.Viewer, input profileDto.UpdateProfileInput) (*profileDto.ProfileResponse, error) {
	if !viewer.IsAuthenticated() {
		return nil, apperror.ErrUnauthorized
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperror.ErrInvalidInput)
	}

	profile, err := s.profiles.FindByUserID(ctx, viewer.ID)
	switch {
	case err == nil:
		if err := s.profiles.Updates(ctx, profile.ID, map[string]any{"name": name}); err != nil {
			return nil, apperror.ClassifyStoreError(err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Signed up but never joined a college; the display name lives on
		// the user row until then.
		user, err := s.users.FindByID(ctx, viewer.ID)
		if err != nil {
			return nil, apperror.ClassifyStoreError(err)
		}
		user.DisplayName = name
		if err := s.users.Update(ctx, user); err != nil {
			return nil, apperror.ClassifyStoreError(err)
		}
	default:
		return nil, apperror.ClassifyStoreError(err)
	}

	s.publish(ctx, viewer)
	return s.reload(ctx, viewer)
}

// JoinCollege binds the viewer to the first college whose code matches,
// ignoring case. The college's default role applies unless the viewer
// already holds a privileged role.
func (s *profileService) JoinCollege(ctx context.Context, viewer entity.Viewer, code string) (*profileDto.JoinCollegeResponse, error) {
	if !viewer.IsAuthenticated() {
		return nil, apperror.ErrUnauthorized
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, errCodeRequired
	}

	college, err := s.matchCollege(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, viewer.ID)
	if err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}

	name := strings.TrimSpace(user.DisplayName)
	if name == "" {
		name = emailLocalPart(user.Email)
	}

	profile, err := s.findOrClaimProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	role := college.DefaultRole
	if role == "" {
		role = entity.RoleViewer
	}

	if profile == nil {
		profile = &entity.Profile{
			UserID:      &user.ID,
			Email:       user.Email,
			Name:        name,
			Role:        role,
			CollegeID:   &college.ID,
			CollegeName: college.Name,
			CollegeCode: code,
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return nil, apperror.ClassifyStoreError(err)
		}
	} else {
		if entity.IsPrivileged(profile.Role) {
			role = profile.Role
		}
		fields := map[string]any{
			"role":         role,
			"college_id":   college.ID,
			"college_name": college.Name,
			"college_code": code,
		}
		if profile.Name == "" {
			fields["name"] = name
		}
		if err := s.profiles.Updates(ctx, profile.ID, fields); err != nil {
			return nil, apperror.ClassifyStoreError(err)
		}
	}

	s.publish(ctx, viewer)

	resolved, err := s.resolver.Current(ctx, user)
	if err != nil {
		return nil, err
	}
	return &profileDto.JoinCollegeResponse{
		Viewer:   resolved,
		Redirect: session.HomeRoute(resolved),
	}, nil
}

func (s *profileService) matchCollege(ctx context.Context, code string) (*entity.College, error) {
	colleges, err := s.colleges.Scan(ctx)
	if err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}

	var (
		match   *entity.College
		matches int
	)
	for i := range colleges {
		if !strings.EqualFold(strings.TrimSpace(colleges[i].Code), code) {
			continue
		}
		matches++
		if match == nil {
			match = &colleges[i]
		}
	}

	if match == nil {
		return nil, errInvalidCode
	}
	if matches > 1 {
		s.log.Warn("college access code matches several colleges",
			zap.String("code", code),
			zap.Int("matches", matches),
			zap.String("college_id", match.ID.String()),
		)
	}
	return match, nil
}

// findOrClaimProfile returns nil without error when the user has no profile
// and no placeholder is waiting for their email.
func (s *profileService) findOrClaimProfile(ctx context.Context, user *entity.User) (*entity.Profile, error) {
	profile, err := s.profiles.FindByUserID(ctx, user.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ClassifyStoreError(err)
	}

	claimed, err := s.profiles.ClaimByEmail(ctx, user.Email, user.ID)
	if err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}
	if !claimed {
		return nil, nil
	}

	profile, err = s.profiles.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}
	return profile, nil
}

func (s *profileService) reload(ctx context.Context, viewer entity.Viewer) (*profileDto.ProfileResponse, error) {
	user, err := s.users.FindByID(ctx, viewer.ID)
	if err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}
	resolved, err := s.resolver.Current(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.GetCurrentProfile(ctx, resolved)
}

func (s *profileService) publish(ctx context.Context, viewer entity.Viewer) {
	if err := s.hub.Publish(ctx, realtime.ProfileTopic(viewer.ID)); err != nil {
		s.log.Warn("failed to publish profile change", zap.Error(err))
	}
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
