package screens

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/cookie/internal/models"
)

// GroupDetail is everything the group screen renders.
type GroupDetail struct {
	Group   models.Group
	Members []models.Member
	Stories []models.Story
	Posts   []models.Post
}

// GroupDetailScreen loads a group with its members, stories and posts.
// The four reads run concurrently and succeed or fail together.
type GroupDetailScreen struct {
	view[*GroupDetail]

	mu      sync.Mutex
	groupID int64
	// cancel aborts the load in flight, if any.
	cancel context.CancelFunc
}

func NewGroupDetailScreen(env *Env, groupID int64) *GroupDetailScreen {
	return &GroupDetailScreen{view: view[*GroupDetail]{env: env}, groupID: groupID}
}

// SetGroup switches to another group, resetting the screen to Loading. A load
// still running for the previous group is cancelled and its result dropped.
func (s *GroupDetailScreen) SetGroup(groupID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if groupID == s.groupID {
		return
	}
	s.groupID = groupID
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loader.Reset()
	s.feedback = Feedback{}
}

func (s *GroupDetailScreen) GroupID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupID
}

// Load runs the four reads. The first failure cancels the others and the
// screen ends in StateErrored with no data. If SetGroup switches groups while
// it runs, Load returns ErrSuperseded and the screen stays in Loading.
func (s *GroupDetailScreen) Load(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	if s.loader.Busy() {
		s.mu.Unlock()
		return ErrBusy
	}
	groupID := s.groupID
	s.cancel = cancel
	s.mu.Unlock()

	return s.load(ctx, func(ctx context.Context) (*GroupDetail, error) {
		if _, err := s.env.requireSession(ctx); err != nil {
			return nil, err
		}

		var d GroupDetail
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			group, err := s.env.API.GetGroupDetails(gctx, groupID)
			if err != nil {
				return err
			}
			d.Group = *group
			return nil
		})
		g.Go(func() error {
			members, err := s.env.API.GetGroupMembers(gctx, groupID)
			d.Members = members
			return err
		})
		g.Go(func() error {
			stories, err := s.env.API.GetGroupStories(gctx, groupID)
			d.Stories = stories
			return err
		})
		g.Go(func() error {
			posts, err := s.env.API.GetGroupPosts(gctx, groupID)
			d.Posts = posts
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &d, nil
	})
}

// Detail returns the loaded detail, or nil unless the screen is Loaded.
func (s *GroupDetailScreen) Detail() *GroupDetail {
	d, ok := s.loader.Data()
	if !ok {
		return nil
	}
	return d
}

// QRScreen shows a shared group's join QR code.
type QRScreen struct {
	view[string]
	groupID int64
}

func NewQRScreen(env *Env, groupID int64) *QRScreen {
	return &QRScreen{view: view[string]{env: env}, groupID: groupID}
}

// Load fetches the SVG.
func (s *QRScreen) Load(ctx context.Context) error {
	return s.load(ctx, func(ctx context.Context) (string, error) {
		if _, err := s.env.requireSession(ctx); err != nil {
			return "", err
		}
		return s.env.API.GetGroupQR(ctx, s.groupID)
	})
}

// SVG returns the loaded markup, or "".
func (s *QRScreen) SVG() string {
	svg, _ := s.loader.Data()
	return svg
}

// Shared is the outcome of a sharing toggle. SVG is set only when sharing
// was switched on.
type Shared struct {
	Group models.Group
	SVG   string
}

// ShareScreen toggles a group's sharing and fetches its QR code when sharing
// is on.
type ShareScreen struct {
	view[*Shared]
	groupID int64
}

func NewShareScreen(env *Env, groupID int64) *ShareScreen {
	return &ShareScreen{view: view[*Shared]{env: env}, groupID: groupID}
}

// Toggle flips sharing, then loads the QR code if the group is now shared.
func (s *ShareScreen) Toggle(ctx context.Context) error {
	return s.load(ctx, func(ctx context.Context) (*Shared, error) {
		if _, err := s.env.requireSession(ctx); err != nil {
			return nil, err
		}
		group, err := s.env.API.ToggleGroupSharing(ctx, s.groupID)
		if err != nil {
			return nil, err
		}
		out := &Shared{Group: *group}
		if group.IsShared {
			svg, err := s.env.API.GetGroupQR(ctx, s.groupID)
			if err != nil {
				return nil, err
			}
			out.SVG = svg
		}
		return out, nil
	})
}

// Result returns the last toggle outcome, or nil.
func (s *ShareScreen) Result() *Shared {
	r, ok := s.loader.Data()
	if !ok {
		return nil
	}
	return r
}
