package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/notifiq/internal/entity"
	feed "anoa.com/notifiq/internal/modules/feed/service"
	noticeDto "anoa.com/notifiq/internal/modules/notice/dto"
	noticeRepo "anoa.com/notifiq/internal/modules/notice/repository"
	profileRepo "anoa.com/notifiq/internal/modules/profile/repository"
	uploadRepo "anoa.com/notifiq/internal/modules/upload/repository"
	"anoa.com/notifiq/internal/realtime"
	"anoa.com/notifiq/internal/testutil"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/markdown"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type noticeFixture struct {
	db      *gorm.DB
	fx      testutil.Fixture
	hub     *realtime.MemoryHub
	notices noticeRepo.NoticeRepository
	uploads uploadRepo.UploadRepository
	svc     NoticeService
}

func newNoticeFixture(t *testing.T) noticeFixture {
	t.Helper()
	db := testutil.MustOpenTestDB(t)
	hub := realtime.NewMemoryHub()
	notices := noticeRepo.NewNoticeRepository(db)
	uploads := uploadRepo.NewUploadRepository(db)
	return noticeFixture{
		db:      db,
		fx:      testutil.Fixture{DB: db},
		hub:     hub,
		notices: notices,
		uploads: uploads,
		svc:     NewNoticeService(notices, uploads, hub, nil),
	}
}

func member(t *testing.T, f noticeFixture, email, role string, college *entity.College) entity.Viewer {
	t.Helper()
	user, profile := f.fx.Member(t, email, role, college)
	return entity.NewViewer(&user, &profile, nil)
}

func TestCreateRequiresWriterRole(t *testing.T) {
	f := newNoticeFixture(t)
	north := f.fx.College(t, "North", "NORTH")

	_, err := f.svc.Create(context.Background(), member(t, f, "v@north.edu", entity.RoleViewer, &north), noticeDto.NoticeRequest{Title: "Hi"})
	require.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.Create(context.Background(), member(t, f, "new@north.edu", "", &north), noticeDto.NoticeRequest{Title: "Hi"})
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestCreateAndUpdateKeepTenancy(t *testing.T) {
	f := newNoticeFixture(t)
	ctx := context.Background()
	north := f.fx.College(t, "North", "NORTH")
	south := f.fx.College(t, "South", "SOUTH")
	author := member(t, f, "admin@north.edu", entity.RoleAdmin, &north)

	sub, err := f.hub.Subscribe(ctx, realtime.CollegeNoticesTopic(north.ID))
	require.NoError(t, err)
	defer sub.Close()

	created, err := f.svc.Create(ctx, author, noticeDto.NoticeRequest{
		Title:  "  Fest  ",
		Images: []noticeDto.ImageInput{{URL: "https://cdn.example.edu/a.webp", Name: "a.png"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Fest", created.Title)
	require.Equal(t, entity.CategoryGeneral, created.Category)
	require.Equal(t, north.ID, created.CollegeID)
	require.Equal(t, "admin@north.edu", created.AuthorName)
	<-sub.C()

	require.NoError(t, f.uploads.Create(ctx, &entity.Upload{UserID: author.ID, URL: "https://cdn.example.edu/b.webp"}))

	other := member(t, f, "admin@south.edu", entity.RoleAdmin, &south)
	_, err = f.svc.Update(ctx, other, created.ID, noticeDto.NoticeRequest{Title: "Hijack"})
	require.ErrorIs(t, err, apperror.ErrForbidden)

	updated, err := f.svc.Update(ctx, author, created.ID, noticeDto.NoticeRequest{
		Title:    "Fest moved",
		Category: entity.CategoryEvent,
		Images:   []noticeDto.ImageInput{{URL: "https://cdn.example.edu/b.webp", Name: "b.png"}},
	})
	require.NoError(t, err)
	<-sub.C()

	stored, err := f.notices.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Fest moved", stored.Title)
	require.Equal(t, north.ID, stored.CollegeID)
	require.Equal(t, author.ID, stored.AuthorID)
	require.WithinDuration(t, created.CreatedAt, stored.CreatedAt, time.Second)
	require.Equal(t, updated.Category, stored.Category)

	attached, err := f.uploads.FindByNotice(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, attached, 1)
	require.Equal(t, "https://cdn.example.edu/b.webp", attached[0].URL)
}

func TestSuperAdminManagesAnyCollege(t *testing.T) {
	f := newNoticeFixture(t)
	ctx := context.Background()
	north := f.fx.College(t, "North", "NORTH")
	notice := f.fx.Notice(t, north.ID, "Old", time.Now())
	super := member(t, f, "root@notifiq.app", entity.RoleSuperAdmin, nil)

	got, err := f.svc.Get(ctx, super, notice.ID)
	require.NoError(t, err)
	require.Equal(t, notice.ID, got.ID)

	_, err = f.svc.Update(ctx, super, notice.ID, noticeDto.NoticeRequest{Title: "New"})
	require.NoError(t, err)
}

func TestGetHidesOtherColleges(t *testing.T) {
	f := newNoticeFixture(t)
	north := f.fx.College(t, "North", "NORTH")
	south := f.fx.College(t, "South", "SOUTH")
	notice := f.fx.Notice(t, south.ID, "South only", time.Now())

	_, err := f.svc.Get(context.Background(), member(t, f, "v@north.edu", entity.RoleViewer, &north), notice.ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCreatedNoticeHeadsOnlyItsCollegeFeed(t *testing.T) {
	f := newNoticeFixture(t)
	ctx := context.Background()
	org1 := f.fx.College(t, "Org One", "ORG1")
	org2 := f.fx.College(t, "Org Two", "ORG2")
	f.fx.Notice(t, org1.ID, "Older", time.Now().Add(-time.Hour))
	f.fx.Notice(t, org2.ID, "Org two news", time.Now().Add(-time.Hour))

	admin := member(t, f, "admin@org1.edu", entity.RoleAdmin, &org1)
	reader1 := member(t, f, "reader@org1.edu", entity.RoleViewer, &org1)
	reader2 := member(t, f, "reader@org2.edu", entity.RoleViewer, &org2)

	draft := NewDraft(nil)
	draft.Title = "Exam Schedule"
	draft.Category = entity.CategoryExam
	draft.Priority = entity.PriorityHigh
	created, err := draft.Submit(ctx, ForViewer(f.svc, admin))
	require.NoError(t, err)

	feeds := feed.NewFeedService(f.notices, profileRepo.NewProfileRepository(f.db), f.uploads, f.hub, nil, nil)
	projector := feed.NewProjector(markdown.NewRenderer())

	list1, err := feeds.List(ctx, reader1)
	require.NoError(t, err)
	view1 := projector.Project(list1, reader1, feed.Filter{Category: feed.FilterAll}, 3)
	require.Len(t, view1.Notices, 2)
	head := view1.Notices[0]
	require.Equal(t, created.ID, head.ID)
	require.Equal(t, "badge-exam", head.BadgeClass)
	require.Equal(t, "#ef4444", head.PriorityColor)

	list2, err := feeds.List(ctx, reader2)
	require.NoError(t, err)
	view2 := projector.Project(list2, reader2, feed.Filter{Category: feed.FilterAll}, 3)
	for _, card := range view2.Notices {
		require.NotEqual(t, created.ID, card.ID)
	}
}
