package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/notifiq/internal/entity"
	adminDto "anoa.com/notifiq/internal/modules/admin/dto"
	collegeRepo "anoa.com/notifiq/internal/modules/college/repository"
	profileRepo "anoa.com/notifiq/internal/modules/profile/repository"
	userRepo "anoa.com/notifiq/internal/modules/user/repository"
	"anoa.com/notifiq/internal/realtime"
	"anoa.com/notifiq/internal/testutil"
	"anoa.com/notifiq/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type adminFixture struct {
	db       *gorm.DB
	fx       testutil.Fixture
	hub      *realtime.MemoryHub
	profiles profileRepo.ProfileRepository
	svc      AdminService
	super    entity.Viewer
}

func newAdminFixture(t *testing.T) adminFixture {
	t.Helper()
	db := testutil.MustOpenTestDB(t)
	fx := testutil.Fixture{DB: db}
	hub := realtime.NewMemoryHub()
	profiles := profileRepo.NewProfileRepository(db)

	u, p := fx.Member(t, "root@notifiq.app", entity.RoleSuperAdmin, nil)
	return adminFixture{
		db:       db,
		fx:       fx,
		hub:      hub,
		profiles: profiles,
		svc:      NewAdminService(collegeRepo.NewCollegeRepository(db), profiles, userRepo.NewUserRepository(db), hub),
		super:    entity.NewViewer(&u, &p, nil),
	}
}

func TestNonSuperAdminIsRejected(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	college := f.fx.College(t, "North", "NORTH")
	u, p := f.fx.Member(t, "a@north.edu", entity.RoleAdmin, &college)
	admin := entity.NewViewer(&u, &p, nil)

	_, err := f.svc.ListColleges(ctx, admin)
	require.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.CreateCollege(ctx, admin, adminDto.CreateCollegeRequest{Name: "South", Code: "S"})
	require.ErrorIs(t, err, apperror.ErrForbidden)

	err = f.svc.DeleteCollege(ctx, admin, college.ID)
	require.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.ListAdmins(ctx, entity.Viewer{})
	require.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestCreateCollegeAllowsDuplicateCodes(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateCollege(ctx, f.super, adminDto.CreateCollegeRequest{Name: " North ", Code: " ABC "})
	require.NoError(t, err)
	require.Equal(t, "North", first.Name)
	require.Equal(t, "ABC", first.Code)
	require.Equal(t, entity.RoleViewer, first.DefaultRole)

	second, err := f.svc.CreateCollege(ctx, f.super, adminDto.CreateCollegeRequest{Name: "South", Code: "abc"})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	colleges, err := f.svc.ListColleges(ctx, f.super)
	require.NoError(t, err)
	require.Len(t, colleges, 2)

	_, err = f.svc.CreateCollege(ctx, f.super, adminDto.CreateCollegeRequest{Name: "  ", Code: "X"})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestDeleteCollegeKeepsNotices(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	college := f.fx.College(t, "North", "NORTH")
	notice := f.fx.Notice(t, college.ID, "Exam Schedule", time.Now())

	require.NoError(t, f.svc.DeleteCollege(ctx, f.super, college.ID))

	var count int64
	require.NoError(t, f.db.Model(&entity.College{}).Where("id = ?", college.ID).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, f.db.Model(&entity.Notice{}).Where("id = ?", notice.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAssignAdminOverwritesExistingProfile(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	north := f.fx.College(t, "North", "NORTH")
	south := f.fx.College(t, "South", "SOUTH")
	u, _ := f.fx.Member(t, "jane@north.edu", entity.RoleViewer, &north)

	sub, err := f.hub.Subscribe(ctx, realtime.ProfileTopic(u.ID))
	require.NoError(t, err)
	defer sub.Close()

	res, err := f.svc.AssignAdmin(ctx, f.super, adminDto.AssignAdminRequest{
		Email:     "Jane@North.edu",
		Name:      "Jane Admin",
		CollegeID: south.ID.String(),
	})
	require.NoError(t, err)
	require.False(t, res.Pending)
	require.Equal(t, south.ID.String(), res.CollegeID)

	stored, err := f.profiles.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RoleAdmin, stored.Role)
	require.Equal(t, south.ID, *stored.CollegeID)
	require.Equal(t, "South", stored.CollegeName)
	require.Equal(t, "Jane Admin", stored.Name)

	select {
	case <-sub.C():
	case <-time.After(time.Second):
		t.Fatal("expected a profile change signal")
	}
}

func TestAssignAdminCreatesPlaceholder(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	college := f.fx.College(t, "North", "NORTH")

	res, err := f.svc.AssignAdmin(ctx, f.super, adminDto.AssignAdminRequest{
		Email:     "new@north.edu",
		Name:      "New Admin",
		CollegeID: college.ID.String(),
	})
	require.NoError(t, err)
	require.True(t, res.Pending)

	admins, err := f.svc.ListAdmins(ctx, f.super)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	require.Equal(t, "new@north.edu", admins[0].Email)
	require.Equal(t, "North", admins[0].CollegeName)
}

func TestAssignAdminBindsExistingUserWithoutProfile(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	college := f.fx.College(t, "North", "NORTH")
	user := entity.User{Email: "late@north.edu"}
	require.NoError(t, f.db.Create(&user).Error)

	res, err := f.svc.AssignAdmin(ctx, f.super, adminDto.AssignAdminRequest{
		Email:     "late@north.edu",
		Name:      "Late",
		CollegeID: college.ID.String(),
	})
	require.NoError(t, err)
	require.False(t, res.Pending)

	stored, err := f.profiles.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RoleAdmin, stored.Role)
}

func TestAssignAdminUnknownCollege(t *testing.T) {
	f := newAdminFixture(t)
	_, err := f.svc.AssignAdmin(context.Background(), f.super, adminDto.AssignAdminRequest{
		Email:     "x@north.edu",
		Name:      "X",
		CollegeID: uuid.NewString(),
	})
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAssignAdminRequiresName(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	north := f.fx.College(t, "North", "NORTH")
	u, _ := f.fx.Member(t, "jane@north.edu", entity.RoleViewer, &north)

	_, err := f.svc.AssignAdmin(ctx, f.super, adminDto.AssignAdminRequest{
		Email:     "jane@north.edu",
		Name:      "   ",
		CollegeID: north.ID.String(),
	})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	stored, err := f.profiles.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "jane@north.edu", stored.Name)
	require.Equal(t, entity.RoleViewer, stored.Role)
}

func TestRevokeAdminKeepsCollege(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	college := f.fx.College(t, "North", "NORTH")
	_, p := f.fx.Member(t, "a@north.edu", entity.RoleAdmin, &college)

	require.NoError(t, f.svc.RevokeAdmin(ctx, f.super, p.ID))

	stored, err := f.profiles.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RoleViewer, stored.Role)
	require.Equal(t, college.ID, *stored.CollegeID)

	err = f.svc.RevokeAdmin(ctx, f.super, mustProfileID(t, f, "root@notifiq.app"))
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func mustProfileID(t *testing.T, f adminFixture, email string) uuid.UUID {
	t.Helper()
	p, err := f.profiles.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return p.ID
}
