package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/notifiq/internal/entity"
	adminDto "anoa.com/notifiq/internal/modules/admin/dto"
	collegeRepo "anoa.com/notifiq/internal/modules/college/repository"
	profileRepo "anoa.com/notifiq/internal/modules/profile/repository"
	userRepo "anoa.com/notifiq/internal/modules/user/repository"
	"anoa.com/notifiq/internal/realtime"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AdminService interface {
	ListColleges(ctx context.Context, actor entity.Viewer) ([]entity.College, error)
	CreateCollege(ctx context.Context, actor entity.Viewer, req adminDto.CreateCollegeRequest) (*entity.College, error)
	DeleteCollege(ctx context.Context, actor entity.Viewer, collegeID uuid.UUID) error
	ListAdmins(ctx context.Context, actor entity.Viewer) ([]adminDto.AdminResponse, error)
	AssignAdmin(ctx context.Context, actor entity.Viewer, req adminDto.AssignAdminRequest) (*adminDto.AdminResponse, error)
	RevokeAdmin(ctx context.Context, actor entity.Viewer, profileID uuid.UUID) error
}

type adminService struct {
	colleges collegeRepo.CollegeRepository
	profiles profileRepo.ProfileRepository
	users    userRepo.UserRepository
	hub      realtime.Hub
	log      *zap.Logger
}

func NewAdminService(colleges collegeRepo.CollegeRepository, profiles profileRepo.ProfileRepository, users userRepo.UserRepository, hub realtime.Hub) AdminService {
	return &adminService{
		colleges: colleges,
		profiles: profiles,
		users:    users,
		hub:      hub,
		log:      logger.WithModule("admin"),
	}
}

func requireSuperAdmin(actor entity.Viewer) error {
	if !actor.IsAuthenticated() {
		return apperror.ErrUnauthorized
	}
	if !actor.IsSuperAdmin() {
		return apperror.ErrForbidden
	}
	return nil
}

func (s *adminService) ListColleges(ctx context.Context, actor entity.Viewer) ([]entity.College, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	colleges, err := s.colleges.FindAll(ctx)
	if err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}
	return colleges, nil
}

// CreateCollege does not reject a code that is already in use. Joining with
// a shared code picks whichever college the scan returns first.
func (s *adminService) CreateCollege(ctx context.Context, actor entity.Viewer, req adminDto.CreateCollegeRequest) (*entity.College, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	code := strings.TrimSpace(req.Code)
	if name == "" || code == "" {
		return nil, fmt.Errorf("%w: name and code are required", apperror.ErrInvalidInput)
	}

	if existing, err := s.colleges.Scan(ctx); err == nil {
		for _, c := range existing {
			if strings.EqualFold(c.Code, code) {
				s.log.Warn("college access code already in use",
					zap.String("code", code),
					zap.String("existing_college_id", c.ID.String()),
				)
				break
			}
		}
	}

	college := &entity.College{Name: name, Code: code, DefaultRole: req.DefaultRole}
	if err := s.colleges.Create(ctx, college); err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}
	return college, nil
}

// DeleteCollege removes the college row only. Notices and profiles keep
// their college reference.
func (s *adminService) DeleteCollege(ctx context.Context, actor entity.Viewer, collegeID uuid.UUID) error {
	if err := requireSuperAdmin(actor); err != nil {
		return err
	}
	if err := s.colleges.Delete(ctx, collegeID); err != nil {
		return apperror.ClassifyStoreError(err)
	}
	return nil
}

func (s *adminService) ListAdmins(ctx context.Context, actor entity.Viewer) ([]adminDto.AdminResponse, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	profiles, err := s.profiles.ListByRole(ctx, entity.RoleAdmin)
	if err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}

	out := make([]adminDto.AdminResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, toAdminResponse(&profiles[i]))
	}
	return out, nil
}

// AssignAdmin makes the profile with the given email an admin of the
// college, overwriting any earlier assignment. Without a profile a
// placeholder is created and claimed at that user's first sign-in.
func (s *adminService) AssignAdmin(ctx context.Context, actor entity.Viewer, req adminDto.AssignAdminRequest) (*adminDto.AdminResponse, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperror.ErrInvalidInput)
	}

	collegeID, err := uuid.Parse(req.CollegeID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid college id", apperror.ErrInvalidInput)
	}
	college, err := s.colleges.FindByID(ctx, collegeID)
	if err != nil {
		return nil, apperror.ClassifyStoreError(err)
	}

	profile, err := s.profiles.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.profiles.Updates(ctx, profile.ID, map[string]any{
			"role":         entity.RoleAdmin,
			"college_id":   college.ID,
			"college_name": college.Name,
			"name":         name,
		}); err != nil {
			return nil, apperror.ClassifyStoreError(err)
		}
		profile.Role = entity.RoleAdmin
		profile.CollegeID = &college.ID
		profile.CollegeName = college.Name
		profile.Name = name

	case errors.Is(err, gorm.ErrRecordNotFound):
		profile = &entity.Profile{
			Email:       email,
			Name:        name,
			Role:        entity.RoleAdmin,
			CollegeID:   &college.ID,
			CollegeName: college.Name,
		}
		// A user who signed up before profiles were provisioned gets bound
		// right away.
		if user, err := s.users.FindByEmail(ctx, email); err == nil {
			profile.UserID = &user.ID
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return nil, apperror.ClassifyStoreError(err)
		}

	default:
		return nil, apperror.ClassifyStoreError(err)
	}

	s.notifyProfile(ctx, profile)
	resp := toAdminResponse(profile)
	return &resp, nil
}

// RevokeAdmin downgrades an admin to viewer. The college affiliation stays.
func (s *adminService) RevokeAdmin(ctx context.Context, actor entity.Viewer, profileID uuid.UUID) error {
	if err := requireSuperAdmin(actor); err != nil {
		return err
	}

	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return apperror.ClassifyStoreError(err)
	}
	if profile.Role == entity.RoleSuperAdmin {
		return fmt.Errorf("%w: cannot revoke a super admin", apperror.ErrForbidden)
	}

	if err := s.profiles.Updates(ctx, profile.ID, map[string]any{"role": entity.RoleViewer}); err != nil {
		return apperror.ClassifyStoreError(err)
	}
	s.notifyProfile(ctx, profile)
	return nil
}

func (s *adminService) notifyProfile(ctx context.Context, profile *entity.Profile) {
	if profile.UserID == nil {
		return
	}
	if err := s.hub.Publish(ctx, realtime.ProfileTopic(*profile.UserID)); err != nil {
		s.log.Warn("failed to publish profile change", zap.Error(err))
	}
}

func toAdminResponse(p *entity.Profile) adminDto.AdminResponse {
	resp := adminDto.AdminResponse{
		ProfileID:   p.ID.String(),
		Email:       p.Email,
		Name:        p.Name,
		CollegeName: p.CollegeName,
		Pending:     p.IsPlaceholder(),
	}
	if p.CollegeID != nil {
		resp.CollegeID = p.CollegeID.String()
	}
	return resp
}
