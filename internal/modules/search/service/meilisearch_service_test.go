package service

import (
	"testing"
	"time"

	"anoa.com/notifiq/internal/entity"
	"anoa.com/notifiq/pkg/markdown"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSearchRulesScopeToCollege(t *testing.T) {
	college := uuid.New()
	rules, err := searchRules(entity.Viewer{ID: uuid.New(), Role: entity.RoleViewer, CollegeID: &college})
	require.NoError(t, err)

	notices := rules["notices"].(map[string]any)
	require.Equal(t, "college_id = '"+college.String()+"'", notices["filter"])
}

func TestSearchRulesSuperAdminUnfiltered(t *testing.T) {
	rules, err := searchRules(entity.Viewer{ID: uuid.New(), Role: entity.RoleSuperAdmin})
	require.NoError(t, err)
	require.Nil(t, rules["notices"].(map[string]any)["filter"])
}

func TestSearchRulesRequireCollege(t *testing.T) {
	_, err := searchRules(entity.Viewer{ID: uuid.New(), Role: entity.RoleViewer})
	require.Error(t, err)
}

func TestBuildNoticeDocStripsMarkup(t *testing.T) {
	expiry := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	n := &entity.Notice{
		ID:          uuid.New(),
		Title:       "Exam Schedule",
		Description: "**Hall A** <script>x()</script>",
		Category:    entity.CategoryExam,
		CollegeID:   uuid.New(),
		ExpiryDate:  &expiry,
	}

	doc := buildNoticeDoc(markdown.NewRenderer(), n)
	require.Equal(t, "Hall A", doc.Description)
	require.Equal(t, n.CollegeID.String(), doc.CollegeID)
	require.Equal(t, expiry.Unix(), doc.ExpiresAt)
}
