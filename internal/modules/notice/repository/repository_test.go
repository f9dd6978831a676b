package repository_test

import (
	"context"
	"testing"
	"time"

	"anoa.com/notifiq/internal/entity"
	"anoa.com/notifiq/internal/modules/notice/repository"
	"anoa.com/notifiq/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestListByCollegeIsNewestFirstAndTenantScoped(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	fx := testutil.Fixture{DB: db}
	repo := repository.NewNoticeRepository(db)
	ctx := context.Background()

	org1, org2 := uuid.New(), uuid.New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fx.Notice(t, org1, "oldest", base)
	fx.Notice(t, org1, "newest", base.Add(2*time.Hour))
	fx.Notice(t, org1, "middle", base.Add(time.Hour))
	fx.Notice(t, org2, "other tenant", base.Add(3*time.Hour))

	list, err := repo.ListByCollege(ctx, org1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{"newest", "middle", "oldest"}, []string{list[0].Title, list[1].Title, list[2].Title})

	recent, err := repo.Recent(ctx, org1, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "newest", recent[0].Title)

	empty, err := repo.ListByCollege(ctx, uuid.New())
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestOverwriteKeepsTenantAuthorAndCreation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	fx := testutil.Fixture{DB: db}
	repo := repository.NewNoticeRepository(db)
	ctx := context.Background()

	college := uuid.New()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	original := fx.Notice(t, college, "Draft", created)

	edit := original
	edit.Title = "Final"
	edit.CollegeID = uuid.New()
	edit.AuthorID = uuid.New()
	edit.Links = []entity.NoticeLink{{URL: "https://uni.edu/form", Name: "Form"}}
	edit.CreatedAt = time.Now()
	require.NoError(t, repo.Overwrite(ctx, &edit))

	got, err := repo.FindByID(ctx, original.ID)
	require.NoError(t, err)
	require.Equal(t, "Final", got.Title)
	require.Equal(t, college, got.CollegeID)
	require.Equal(t, original.AuthorID, got.AuthorID)
	require.True(t, got.CreatedAt.Equal(created))
	require.Len(t, got.Links, 1)
	require.Equal(t, "Form", got.Links[0].Name)
}

func TestDeleteMissingNotice(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	repo := repository.NewNoticeRepository(db)
	require.ErrorIs(t, repo.Delete(context.Background(), uuid.New()), gorm.ErrRecordNotFound)
}
