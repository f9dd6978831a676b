package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"anoa.com/notifiq/internal/entity"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/markdown"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func sampleNotices(college uuid.UUID) []entity.Notice {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []entity.Notice{
		{ID: uuid.New(), Title: "Exam Schedule", Description: "Hall A", Category: entity.CategoryExam, Priority: entity.PriorityHigh, CollegeID: college, CreatedAt: base.Add(3 * time.Hour)},
		{ID: uuid.New(), Title: "Library hours", Description: "Open late during exams", Category: entity.CategoryGeneral, Priority: entity.PriorityLow, CollegeID: college, CreatedAt: base.Add(2 * time.Hour)},
		{ID: uuid.New(), Title: "Fest", Description: "Music night", Category: entity.CategoryEvent, CollegeID: college, CreatedAt: base.Add(time.Hour)},
		{ID: uuid.New(), Title: "Diwali break", Description: "Campus closed", Category: entity.CategoryHoliday, Priority: entity.PriorityMedium, CollegeID: college, CreatedAt: base},
	}
}

func titles(notices []entity.Notice) []string {
	out := make([]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Title)
	}
	return out
}

func TestApplyAllWithEmptySearchKeepsOrder(t *testing.T) {
	notices := sampleNotices(uuid.New())
	require.Equal(t, titles(notices), titles(Apply(notices, Filter{Category: FilterAll}, nil)))
	require.Equal(t, titles(notices), titles(Apply(notices, Filter{}, nil)))
}

func TestApplyCategoryIsExact(t *testing.T) {
	notices := sampleNotices(uuid.New())
	require.Equal(t, []string{"Fest"}, titles(Apply(notices, Filter{Category: entity.CategoryEvent}, nil)))
	require.Empty(t, Apply(notices, Filter{Category: "event"}, nil))
}

func TestApplySearchMatchesTitleOrDescriptionMidWord(t *testing.T) {
	notices := sampleNotices(uuid.New())
	require.Equal(t, []string{"Exam Schedule", "Library hours"}, titles(Apply(notices, Filter{Search: "EXAM"}, nil)))
	require.Equal(t, []string{"Fest"}, titles(Apply(notices, Filter{Search: "usic"}, nil)))
	require.Equal(t, []string{"Library hours"}, titles(Apply(notices, Filter{Category: entity.CategoryGeneral, Search: "exam"}, nil)))
}

func TestApplySavedUsesPinnedSet(t *testing.T) {
	notices := sampleNotices(uuid.New())
	pinned := []uuid.UUID{notices[3].ID, notices[1].ID, uuid.New()}

	require.Equal(t, []string{"Library hours", "Diwali break"}, titles(Apply(notices, Filter{Category: FilterSaved}, pinned)))
	require.Equal(t, []string{"Diwali break"}, titles(Apply(notices, Filter{Category: FilterSaved, Search: "campus"}, pinned)))
	require.Empty(t, Apply(notices, Filter{Category: FilterSaved}, nil))
}

func TestBucketRoundRobin(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}
	buckets := Bucket(items, 3)
	require.Equal(t, [][]int{{0, 3, 6}, {1, 4}, {2, 5}}, buckets)
	require.Equal(t, buckets, Bucket(items, 3))

	for columns := 1; columns <= MaxColumns; columns++ {
		b := Bucket(items, columns)
		require.Len(t, b, columns)
		for i, item := range items {
			require.Contains(t, b[i%columns], item)
		}
	}
}

func TestBucketEmptyAndInvalidColumns(t *testing.T) {
	require.Equal(t, [][]string{{}, {}}, Bucket([]string{}, 2))
	require.Equal(t, [][]int{{1, 2}}, Bucket([]int{1, 2}, 0))
}

func TestColumnsForWidth(t *testing.T) {
	for width, want := range map[int]int{320: 1, 767: 1, 768: 2, 1099: 2, 1100: 3, 1920: 3} {
		require.Equal(t, want, ColumnsForWidth(width), fmt.Sprintf("width %d", width))
	}
}

func TestBadgeClassAndPriorityColor(t *testing.T) {
	require.Equal(t, "badge-exam", BadgeClass(entity.CategoryExam))
	require.Equal(t, "badge-open-day", BadgeClass("Open Day"))
	require.Equal(t, "badge-general", BadgeClass(""))

	require.Equal(t, "#ef4444", PriorityColor(entity.PriorityHigh))
	require.Equal(t, "#f59e0b", PriorityColor(entity.PriorityMedium))
	require.Equal(t, "#22c55e", PriorityColor(entity.PriorityLow))
	require.Equal(t, "#6b7280", PriorityColor(""))
}

func TestErrorMessage(t *testing.T) {
	require.Equal(t, msgIndexMissing, ErrorMessage(fmt.Errorf("%w: relation", apperror.ErrStoreMisconfigured)))
	require.Equal(t, msgFetchFailed, ErrorMessage(errors.New("dial tcp: timeout")))
}

func TestProjectDerivesFlagsAndScopesToCollege(t *testing.T) {
	college, other := uuid.New(), uuid.New()
	notices := sampleNotices(college)
	past := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	notices[2].ExpiryDate = &past
	notices[1].Description = "**Open** late"
	foreign := entity.Notice{ID: uuid.New(), Title: "Other campus", CollegeID: other}

	p := NewProjector(markdown.NewRenderer())
	p.now = func() time.Time { return time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC) }

	viewer := entity.Viewer{ID: uuid.New(), CollegeID: &college, PinnedNoticeIDs: []uuid.UUID{notices[0].ID}}
	resp := p.Project(append(notices, foreign), viewer, Filter{Category: FilterAll}, 2)

	require.Len(t, resp.Notices, 4)
	require.Equal(t, [][]int{{0, 2}, {1, 3}}, resp.Columns)

	head := resp.Notices[0]
	require.True(t, head.Pinned)
	require.Equal(t, "badge-exam", head.BadgeClass)
	require.Equal(t, "#ef4444", head.PriorityColor)
	require.NotNil(t, head.Links)

	require.True(t, resp.Notices[2].Expired)
	require.False(t, resp.Notices[0].Expired)
	require.Contains(t, resp.Notices[1].DescriptionHTML, "<strong>Open</strong>")

	// The same list later flips to expired without a store change.
	p.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	require.False(t, p.Project(notices, viewer, Filter{}, 1).Notices[2].Expired)
}

func TestProjectWithoutCollegeIsEmpty(t *testing.T) {
	p := NewProjector(markdown.NewRenderer())
	resp := p.Project(sampleNotices(uuid.New()), entity.Viewer{ID: uuid.New()}, Filter{}, 3)
	require.Empty(t, resp.Notices)
	require.Len(t, resp.Columns, 3)
}
