package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewViewerProfileWins(t *testing.T) {
	avatar := "https://cdn/avatar.png"
	user := &User{ID: uuid.New(), Email: "ana@uni.edu", DisplayName: "ana", AvatarURL: &avatar}
	college := uuid.New()
	pin := uuid.New()
	profile := &Profile{Name: "Ana Lima", Role: RoleAdmin, CollegeID: &college, CollegeName: "North"}

	v := NewViewer(user, profile, []uuid.UUID{pin})

	require.Equal(t, user.ID, v.ID)
	require.Equal(t, "Ana Lima", v.DisplayName)
	require.Equal(t, "ana@uni.edu", v.Email)
	require.Equal(t, avatar, v.AvatarURL)
	require.Equal(t, RoleAdmin, v.Role)
	require.True(t, v.CanWrite())
	require.True(t, v.CanManageCollege(college))
	require.False(t, v.CanManageCollege(uuid.New()))
	require.True(t, v.HasPinned(pin))
}

func TestNewViewerWithoutProfileCannotWrite(t *testing.T) {
	user := &User{ID: uuid.New(), Email: "new@uni.edu", DisplayName: "New"}
	v := NewViewer(user, nil, nil)

	require.True(t, v.IsAuthenticated())
	require.Empty(t, v.Role)
	require.False(t, v.CanWrite())
	require.False(t, v.HasCollege())
	require.NotNil(t, v.PinnedNoticeIDs)
}

func TestUnauthenticatedViewer(t *testing.T) {
	v := NewViewer(nil, &Profile{Role: RoleSuperAdmin}, nil)
	require.False(t, v.IsAuthenticated())
	require.False(t, v.IsSuperAdmin())
	require.False(t, v.CanManageCollege(uuid.New()))
}

func TestNoticeIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	require.False(t, (&Notice{}).IsExpired(now))
	require.True(t, (&Notice{ExpiryDate: &past}).IsExpired(now))
	require.False(t, (&Notice{ExpiryDate: &future}).IsExpired(now))
}
