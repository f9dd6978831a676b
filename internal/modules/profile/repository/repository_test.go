package repository_test

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"anoa.com/notifiq/internal/entity"
	"anoa.com/notifiq/internal/modules/profile/repository"
	"anoa.com/notifiq/internal/testutil"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestPinIssuesSingleUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewProfileRepository(db)
	userID, noticeID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "pinned_notices"`) + `.*` + regexp.QuoteMeta(`ON CONFLICT DO NOTHING`)).
		WithArgs(userID, noticeID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Pin(context.Background(), userID, noticeID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnpinIssuesSingleDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := repository.NewProfileRepository(db)
	userID, noticeID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "pinned_notices" WHERE user_id = $1 AND notice_id = $2`)).
		WithArgs(userID, noticeID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Unpin(context.Background(), userID, noticeID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPinnedSetIsOrderedAndIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	repo := repository.NewProfileRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	first, second := uuid.New(), uuid.New()

	require.NoError(t, repo.Pin(ctx, userID, first))
	require.NoError(t, repo.Pin(ctx, userID, second))
	require.NoError(t, repo.Pin(ctx, userID, first))

	ids, err := repo.PinnedNoticeIDs(ctx, userID)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{first, second}, ids)

	pinned, err := repo.IsPinned(ctx, userID, first)
	require.NoError(t, err)
	require.True(t, pinned)

	require.NoError(t, repo.Unpin(ctx, userID, first))
	require.NoError(t, repo.Unpin(ctx, userID, first))
	ids, err = repo.PinnedNoticeIDs(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{second}, ids)
}

func TestConcurrentPinsAreNotLost(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	repo := repository.NewProfileRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	notices := make([]uuid.UUID, 8)
	for i := range notices {
		notices[i] = uuid.New()
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(notices))
	for _, id := range notices {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			errs <- repo.Pin(ctx, userID, id)
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	ids, err := repo.PinnedNoticeIDs(ctx, userID)
	require.NoError(t, err)
	require.ElementsMatch(t, notices, ids)
}

func TestClaimByEmailOnlyTakesPlaceholders(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	repo := repository.NewProfileRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.Profile{Email: "new.admin@uni.edu", Role: entity.RoleAdmin}))

	userID := uuid.New()
	claimed, err := repo.ClaimByEmail(ctx, "new.admin@uni.edu", userID)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = repo.ClaimByEmail(ctx, "new.admin@uni.edu", uuid.New())
	require.NoError(t, err)
	require.False(t, claimed)

	p, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, entity.RoleAdmin, p.Role)
}

func TestListAndCountByRole(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	repo := repository.NewProfileRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.Profile{Email: "a@x.edu", Role: entity.RoleAdmin}))
	require.NoError(t, repo.Create(ctx, &entity.Profile{Email: "b@x.edu", Role: entity.RoleViewer}))

	admins, err := repo.ListByRole(ctx, entity.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)

	count, err := repo.CountByRole(ctx, entity.RoleViewer)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	err = repo.Updates(ctx, uuid.New(), map[string]any{"role": entity.RoleViewer})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
