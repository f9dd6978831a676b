package service

import (
	"context"
	"errors"

	"anoa.com/notifiq/internal/entity"
	profileRepo "anoa.com/notifiq/internal/modules/profile/repository"
	"anoa.com/notifiq/internal/realtime"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// State is what the resolver publishes. Loading stays true between a sign-in
// and the first profile snapshot.
type State struct {
	Viewer  entity.Viewer `json:"viewer"`
	Loading bool          `json:"loading"`
}

type profileSnapshot struct {
	Profile *entity.Profile
	Pinned  []uuid.UUID
}

// Resolver merges the signed-in identity with its live profile record.
type Resolver struct {
	hub      realtime.Hub
	profiles profileRepo.ProfileRepository
	log      *zap.Logger
}

func NewResolver(hub realtime.Hub, profiles profileRepo.ProfileRepository) *Resolver {
	return &Resolver{
		hub:      hub,
		profiles: profiles,
		log:      logger.WithModule("session"),
	}
}

// Current resolves the viewer once, without a subscription.
func (r *Resolver) Current(ctx context.Context, user *entity.User) (entity.Viewer, error) {
	if user == nil {
		return entity.Viewer{}, nil
	}
	snap, err := r.load(ctx, user.ID)
	if err != nil {
		return entity.NewViewer(user, nil, nil), err
	}
	return entity.NewViewer(user, snap.Profile, snap.Pinned), nil
}

func (r *Resolver) load(ctx context.Context, userID uuid.UUID) (profileSnapshot, error) {
	profile, err := r.profiles.FindByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return profileSnapshot{}, nil
	}
	if err != nil {
		return profileSnapshot{}, apperror.ClassifyStoreError(err)
	}

	pinned, err := r.profiles.PinnedNoticeIDs(ctx, userID)
	if err != nil {
		return profileSnapshot{}, apperror.ClassifyStoreError(err)
	}
	return profileSnapshot{Profile: profile, Pinned: pinned}, nil
}

// Run follows identity transitions until ctx ends or identities is closed.
// A nil identity means signed out. The profile subscription of the previous
// identity is always released before the next one is opened, so emit never
// sees a stale profile.
func (r *Resolver) Run(ctx context.Context, identities <-chan *entity.User, emit func(State)) error {
	var (
		identity *entity.User
		live     *realtime.Live[profileSnapshot]
		current  = State{Loading: true}
	)
	defer func() { live.Close() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case next, ok := <-identities:
			if !ok {
				return nil
			}
			live.Close()
			live = nil
			identity = next

			if identity == nil {
				current = State{}
				emit(current)
				continue
			}

			current = State{Viewer: entity.NewViewer(identity, nil, nil), Loading: true}
			emit(current)

			userID := identity.ID
			l, err := realtime.Watch(ctx, r.hub, realtime.ProfileTopic(userID), func(ctx context.Context) (profileSnapshot, error) {
				return r.load(ctx, userID)
			})
			if err != nil {
				r.log.Error("profile subscription failed", zap.String("user_id", userID.String()), zap.Error(err))
				current.Loading = false
				emit(current)
				continue
			}
			live = l

		case snap := <-live.C():
			if snap.Err != nil {
				r.log.Warn("profile snapshot failed", zap.String("user_id", identity.ID.String()), zap.Error(snap.Err))
				current.Loading = false
				emit(current)
				continue
			}
			current = State{Viewer: entity.NewViewer(identity, snap.Value.Profile, snap.Value.Pinned)}
			emit(current)
		}
	}
}
