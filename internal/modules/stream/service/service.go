package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"anoa.com/notifiq/internal/entity"
	digest "anoa.com/notifiq/internal/modules/digest/service"
	feedDto "anoa.com/notifiq/internal/modules/feed/dto"
	feed "anoa.com/notifiq/internal/modules/feed/service"
	session "anoa.com/notifiq/internal/modules/session/service"
	"anoa.com/notifiq/internal/realtime"
	"anoa.com/notifiq/pkg/logger"
	"go.uber.org/zap"
)

const (
	FrameSession = "session"
	FrameFeed    = "feed"
	FrameDigest  = "digest"
	FrameError   = "error"

	CommandFilter = "filter"
)

// Frame is one server message on the stream.
type Frame struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Command is one client message on the stream.
type Command struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Search   string `json:"q"`
	Columns  int    `json:"columns"`
	Width    int    `json:"width"`
}

// View is the per-connection presentation state.
type View struct {
	Filter  feed.Filter
	Columns int
}

// ViewFromQuery builds the initial view from the stream URL query.
func ViewFromQuery(q feedDto.FeedQuery) View {
	return View{Columns: feed.MaxColumns}.apply(Command{
		Category: q.Category,
		Search:   q.Search,
		Columns:  q.Columns,
		Width:    q.Width,
	})
}

func (v View) apply(cmd Command) View {
	v.Filter = feed.Filter{Category: cmd.Category, Search: cmd.Search}
	switch {
	case cmd.Columns > 0:
		v.Columns = cmd.Columns
	case cmd.Width > 0:
		v.Columns = feed.ColumnsForWidth(cmd.Width)
	}
	if v.Columns > feed.MaxColumns {
		v.Columns = feed.MaxColumns
	}
	return v
}

type Streamer struct {
	resolver  *session.Resolver
	feeds     feed.FeedService
	projector *feed.Projector
	digests   digest.DigestService
	refresh   time.Duration
	log       *zap.Logger
}

// NewStreamer wires a stream session. refresh re-projects the current
// snapshots so expiry badges age without a write; zero disables it.
func NewStreamer(resolver *session.Resolver, feeds feed.FeedService, projector *feed.Projector, digests digest.DigestService, refresh time.Duration) *Streamer {
	return &Streamer{
		resolver:  resolver,
		feeds:     feeds,
		projector: projector,
		digests:   digests,
		refresh:   refresh,
		log:       logger.WithModule("stream"),
	}
}

// liveSlot is one re-keyable live query together with its latest value.
type liveSlot struct {
	key    string
	live   *realtime.Live[[]entity.Notice]
	value  []entity.Notice
	loaded bool
}

func (s *liveSlot) reset(key string) {
	s.live.Close()
	*s = liveSlot{key: key}
}

// Run drives one connection until ctx ends, the client goes away or send
// fails. All calls to send happen on the calling goroutine.
func (s *Streamer) Run(ctx context.Context, user *entity.User, view View, commands <-chan Command, send func(Frame) error) error {
	ctx, cancel := context.WithCancel(ctx)

	identities := make(chan *entity.User, 1)
	identities <- user
	states := make(chan session.State)

	var resolverErr error
	resolverDone := make(chan struct{})
	go func() {
		defer close(resolverDone)
		resolverErr = s.resolver.Run(ctx, identities, func(st session.State) {
			select {
			case states <- st:
			case <-ctx.Done():
			}
		})
	}()

	var (
		viewer      entity.Viewer
		feedSlot    liveSlot
		digestSlot  liveSlot
		initialized bool
	)
	defer func() {
		cancel()
		<-resolverDone
		feedSlot.live.Close()
		digestSlot.live.Close()
	}()

	var tick <-chan time.Time
	if s.refresh > 0 {
		ticker := time.NewTicker(s.refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	pushFeed := func() error {
		if !feedSlot.loaded {
			return nil
		}
		return send(Frame{Type: FrameFeed, Data: s.projector.Project(feedSlot.value, viewer, view.Filter, view.Columns)})
	}
	pushDigest := func() error {
		if !digestSlot.loaded {
			return nil
		}
		d, err := s.digests.Summarize(ctx, viewer, digestSlot.value)
		if err != nil {
			s.log.Warn("digest summary failed", zap.String("viewer_id", viewer.ID.String()), zap.Error(err))
			return send(Frame{Type: FrameError, Error: feed.ErrorMessage(err)})
		}
		return send(Frame{Type: FrameDigest, Data: d})
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-resolverDone:
			return resolverErr

		case st := <-states:
			viewer = st.Viewer
			if err := send(Frame{Type: FrameSession, Data: st}); err != nil {
				return err
			}
			if st.Loading {
				continue
			}

			if err := s.rekey(ctx, viewer, &feedSlot, &digestSlot, send); err != nil {
				return err
			}
			initialized = true

			// Pins and the read watermark live on the profile, so every
			// state change re-renders both views.
			if err := pushFeed(); err != nil {
				return err
			}
			if err := pushDigest(); err != nil {
				return err
			}

		case snap := <-feedSlot.live.C():
			if snap.Err != nil {
				s.log.Warn("feed snapshot failed", zap.String("viewer_id", viewer.ID.String()), zap.Error(snap.Err))
				if err := send(Frame{Type: FrameError, Error: feed.ErrorMessage(snap.Err)}); err != nil {
					return err
				}
				continue
			}
			feedSlot.value, feedSlot.loaded = snap.Value, true
			if err := pushFeed(); err != nil {
				return err
			}

		case snap := <-digestSlot.live.C():
			if snap.Err != nil {
				s.log.Warn("digest snapshot failed", zap.String("viewer_id", viewer.ID.String()), zap.Error(snap.Err))
				if err := send(Frame{Type: FrameError, Error: feed.ErrorMessage(snap.Err)}); err != nil {
					return err
				}
				continue
			}
			digestSlot.value, digestSlot.loaded = snap.Value, true
			if err := pushDigest(); err != nil {
				return err
			}

		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			if !strings.EqualFold(cmd.Type, CommandFilter) {
				if err := send(Frame{Type: FrameError, Error: fmt.Sprintf("unknown command %q", cmd.Type)}); err != nil {
					return err
				}
				continue
			}
			view = view.apply(cmd)
			if err := pushFeed(); err != nil {
				return err
			}

		case <-tick:
			if !initialized {
				continue
			}
			if err := pushFeed(); err != nil {
				return err
			}
		}
	}
}

// rekey reopens a live query only when its key changed. A viewer without a
// college gets empty, already-loaded slots.
func (s *Streamer) rekey(ctx context.Context, viewer entity.Viewer, feedSlot, digestSlot *liveSlot, send func(Frame) error) error {
	var feedKey, digestKey string
	if viewer.HasCollege() {
		feedKey = viewer.CollegeID.String()
		digestKey = feedKey + ":" + viewer.ID.String()
	}

	if feedKey != feedSlot.key || (feedKey == "" && !feedSlot.loaded) {
		feedSlot.reset(feedKey)
		if feedKey == "" {
			feedSlot.loaded = true
		} else {
			live, err := s.feeds.Watch(ctx, viewer)
			if err != nil {
				s.log.Error("feed subscription failed", zap.String("viewer_id", viewer.ID.String()), zap.Error(err))
				if err := send(Frame{Type: FrameError, Error: feed.ErrorMessage(err)}); err != nil {
					return err
				}
			}
			feedSlot.live = live
		}
	}

	if digestKey != digestSlot.key || (digestKey == "" && !digestSlot.loaded) {
		digestSlot.reset(digestKey)
		if digestKey == "" {
			digestSlot.loaded = true
		} else {
			live, err := s.digests.Watch(ctx, viewer)
			if err != nil {
				s.log.Error("digest subscription failed", zap.String("viewer_id", viewer.ID.String()), zap.Error(err))
				if err := send(Frame{Type: FrameError, Error: feed.ErrorMessage(err)}); err != nil {
					return err
				}
			}
			digestSlot.live = live
		}
	}
	return nil
}
