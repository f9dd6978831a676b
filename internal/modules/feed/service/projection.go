package service

import (
	"errors"
	"strings"
	"time"

	"anoa.com/notifiq/internal/entity"
	feedDto "anoa.com/notifiq/internal/modules/feed/dto"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/markdown"
	"github.com/google/uuid"
)

const (
	FilterAll   = "All"
	FilterSaved = "Saved"

	MaxColumns = 3
)

const (
	msgIndexMissing = "Database index missing. Please notify admin."
	msgFetchFailed  = "Failed to fetch notices. Permission denied or network issue."
)

var priorityColors = map[string]string{
	entity.PriorityHigh:   "#ef4444",
	entity.PriorityMedium: "#f59e0b",
	entity.PriorityLow:    "#22c55e",
}

const defaultPriorityColor = "#6b7280"

type Filter struct {
	Category string
	Search   string
}

func FilterFromQuery(q feedDto.FeedQuery) Filter {
	return Filter{Category: q.Category, Search: q.Search}
}

// Apply keeps notices matching both the category and the search term, in the
// order given.
func Apply(notices []entity.Notice, f Filter, pinned []uuid.UUID) []entity.Notice {
	category := strings.TrimSpace(f.Category)
	if category == "" {
		category = FilterAll
	}
	term := strings.ToLower(f.Search)

	saved := make(map[uuid.UUID]struct{}, len(pinned))
	for _, id := range pinned {
		saved[id] = struct{}{}
	}

	out := make([]entity.Notice, 0, len(notices))
	for _, n := range notices {
		switch category {
		case FilterAll:
		case FilterSaved:
			if _, ok := saved[n.ID]; !ok {
				continue
			}
		default:
			if n.Category != category {
				continue
			}
		}

		if term != "" &&
			!strings.Contains(strings.ToLower(n.Title), term) &&
			!strings.Contains(strings.ToLower(n.Description), term) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Bucket deals items round-robin over columns: item i lands in column
// i % columns. This is not height balanced.
func Bucket[T any](items []T, columns int) [][]T {
	if columns < 1 {
		columns = 1
	}
	buckets := make([][]T, columns)
	for i := range buckets {
		buckets[i] = []T{}
	}
	for i, item := range items {
		buckets[i%columns] = append(buckets[i%columns], item)
	}
	return buckets
}

// ColumnsForWidth maps a viewport width in pixels to the masonry column count.
func ColumnsForWidth(width int) int {
	switch {
	case width >= 1100:
		return 3
	case width >= 768:
		return 2
	default:
		return 1
	}
}

// BadgeClass is the CSS class of a category badge.
func BadgeClass(category string) string {
	if strings.TrimSpace(category) == "" {
		return "badge-general"
	}
	return "badge-" + strings.ReplaceAll(strings.ToLower(category), " ", "-")
}

func PriorityColor(priority string) string {
	if c, ok := priorityColors[priority]; ok {
		return c
	}
	return defaultPriorityColor
}

// ErrorMessage turns a feed load failure into the text shown on the board.
func ErrorMessage(err error) string {
	if errors.Is(err, apperror.ErrStoreMisconfigured) {
		return msgIndexMissing
	}
	return msgFetchFailed
}

// Projector turns a live notice list into what one viewer sees.
type Projector struct {
	renderer *markdown.Renderer
	now      func() time.Time
}

func NewProjector(renderer *markdown.Renderer) *Projector {
	return &Projector{renderer: renderer, now: time.Now}
}

// Project filters, derives card fields and buckets. Notices of another
// college are dropped whatever the caller passed in; expiry is evaluated
// against the clock at call time.
func (p *Projector) Project(notices []entity.Notice, viewer entity.Viewer, f Filter, columns int) feedDto.FeedResponse {
	resp := feedDto.FeedResponse{Notices: []feedDto.NoticeCard{}}
	if !viewer.HasCollege() {
		resp.Columns = Bucket([]int{}, columns)
		return resp
	}

	scoped := make([]entity.Notice, 0, len(notices))
	for _, n := range notices {
		if n.CollegeID == *viewer.CollegeID {
			scoped = append(scoped, n)
		}
	}

	now := p.now()
	positions := make([]int, 0, len(scoped))
	for i, n := range Apply(scoped, f, viewer.PinnedNoticeIDs) {
		resp.Notices = append(resp.Notices, p.card(n, viewer, now))
		positions = append(positions, i)
	}
	resp.Columns = Bucket(positions, columns)
	return resp
}

func (p *Projector) card(n entity.Notice, viewer entity.Viewer, now time.Time) feedDto.NoticeCard {
	links := []entity.NoticeLink(n.Links)
	if links == nil {
		links = []entity.NoticeLink{}
	}
	images := []entity.NoticeImage(n.Images)
	if images == nil {
		images = []entity.NoticeImage{}
	}

	return feedDto.NoticeCard{
		ID:              n.ID,
		Title:           n.Title,
		Description:     n.Description,
		DescriptionHTML: p.renderer.HTML(n.Description),
		Category:        n.Category,
		Priority:        n.Priority,
		Color:           n.Color,
		CollegeID:       n.CollegeID,
		AuthorID:        n.AuthorID,
		AuthorName:      n.AuthorName,
		Links:           links,
		Images:          images,
		ExpiryDate:      n.ExpiryDate,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
		Expired:         n.IsExpired(now),
		Pinned:          viewer.HasPinned(n.ID),
		BadgeClass:      BadgeClass(n.Category),
		PriorityColor:   PriorityColor(n.Priority),
	}
}
