package testutil

import (
	"fmt"
	"testing"
	"time"

	"anoa.com/notifiq/internal/bootstrap"
	"anoa.com/notifiq/internal/entity"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MustOpenTestDB opens a migrated in-memory SQLite database private to the test.
// The returned connection is automatically closed via t.Cleanup.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, bootstrap.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Shared-cache SQLite reports "table is locked" under concurrent writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// MustOpenRedis starts a miniredis server and returns a client bound to it.
func MustOpenRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
	})
	return rdb, mr
}

// Fixture seeds the rows most tests need.
type Fixture struct {
	DB *gorm.DB
}

func (f Fixture) College(t *testing.T, name, code string) entity.College {
	t.Helper()
	c := entity.College{Name: name, Code: code}
	require.NoError(t, f.DB.Create(&c).Error)
	return c
}

// Member creates a signed-up user with a profile in the given college.
func (f Fixture) Member(t *testing.T, email, role string, college *entity.College) (entity.User, entity.Profile) {
	t.Helper()
	u := entity.User{Email: email, DisplayName: email}
	require.NoError(t, f.DB.Create(&u).Error)

	p := entity.Profile{UserID: &u.ID, Email: email, Name: email, Role: role}
	if college != nil {
		p.CollegeID = &college.ID
		p.CollegeName = college.Name
		p.CollegeCode = college.Code
	}
	require.NoError(t, f.DB.Create(&p).Error)
	return u, p
}

// Notice inserts a notice with a deterministic creation time.
func (f Fixture) Notice(t *testing.T, collegeID uuid.UUID, title string, createdAt time.Time) entity.Notice {
	t.Helper()
	n := entity.Notice{
		Title:     title,
		Category:  entity.CategoryGeneral,
		Priority:  entity.PriorityMedium,
		Color:     entity.ColorDefault,
		CollegeID: collegeID,
		AuthorID:  uuid.New(),
		CreatedAt: createdAt,
	}
	require.NoError(t, f.DB.Create(&n).Error)
	return n
}
