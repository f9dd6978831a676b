package entity

import "github.com/google/uuid"

// Viewer is the merged identity + profile of the current user. It is derived
// on every identity or profile change and never written back.
type Viewer struct {
	ID              uuid.UUID   `json:"id"`
	Email           string      `json:"email"`
	DisplayName     string      `json:"display_name"`
	AvatarURL       string      `json:"avatar_url"`
	Role            string      `json:"role"`
	CollegeID       *uuid.UUID  `json:"college_id"`
	CollegeName     string      `json:"college_name"`
	PinnedNoticeIDs []uuid.UUID `json:"pinned_notice_ids"`
}

// NewViewer merges identity and profile; profile fields win when set.
func NewViewer(user *User, profile *Profile, pinned []uuid.UUID) Viewer {
	var v Viewer
	if user == nil {
		return v
	}

	v.ID = user.ID
	v.Email = user.Email
	v.DisplayName = user.DisplayName
	if user.AvatarURL != nil {
		v.AvatarURL = *user.AvatarURL
	}

	if profile != nil {
		if profile.Email != "" {
			v.Email = profile.Email
		}
		if profile.Name != "" {
			v.DisplayName = profile.Name
		}
		v.Role = profile.Role
		v.CollegeID = profile.CollegeID
		v.CollegeName = profile.CollegeName
	}

	v.PinnedNoticeIDs = pinned
	if v.PinnedNoticeIDs == nil {
		v.PinnedNoticeIDs = []uuid.UUID{}
	}
	return v
}

func (v Viewer) IsAuthenticated() bool {
	return v.ID != uuid.Nil
}

func (v Viewer) IsSuperAdmin() bool {
	return v.IsAuthenticated() && v.Role == RoleSuperAdmin
}

// CanWrite reports a write-capable role. An unset role never qualifies.
func (v Viewer) CanWrite() bool {
	return v.IsAuthenticated() && IsPrivileged(v.Role)
}

// CanManageCollege reports whether the viewer may author or delete notices
// of the given college.
func (v Viewer) CanManageCollege(collegeID uuid.UUID) bool {
	if v.IsSuperAdmin() {
		return true
	}
	return v.CanWrite() && v.CollegeID != nil && *v.CollegeID == collegeID
}

func (v Viewer) HasCollege() bool {
	return v.CollegeID != nil && *v.CollegeID != uuid.Nil
}

func (v Viewer) HasPinned(noticeID uuid.UUID) bool {
	for _, id := range v.PinnedNoticeIDs {
		if id == noticeID {
			return true
		}
	}
	return false
}
