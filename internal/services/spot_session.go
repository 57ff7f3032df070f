package services

import (
	"context"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/geo"
	"drift-spot-service/internal/platform/obs"
	"drift-spot-service/internal/ports"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

type SessionState int

const (
	StateIdle SessionState = iota
	StateActive
	StateFinishing
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateFinishing:
		return "finishing"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// draftRun ties in-flight segment resolutions to one draft. Results carrying a
// run other than the session's current one are dropped.
//
// pending and idle are guarded by the session mutex. idle is closed whenever
// pending drops to zero and replaced when the next resolution starts.
type draftRun struct {
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	pending int
	idle    chan struct{}
}

func newDraftRun(gen uint64) *draftRun {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &draftRun{gen: gen, ctx: ctx, cancel: cancel, idle: idle}
}

func (r *draftRun) begin() {
	if r.pending == 0 {
		r.idle = make(chan struct{})
	}
	r.pending++
}

func (r *draftRun) end() {
	r.pending--
	if r.pending == 0 {
		close(r.idle)
	}
}

// nameOffer is the rename suggestion last shown for a taken name. Accepting
// it later publishes exactly that suggestion.
type nameOffer struct {
	taken     string
	suggested string
}

// SessionSnapshot is the read-only view rendered by clients.
type SessionSnapshot struct {
	IsCreating   bool
	State        SessionState
	Generation   uint64
	Waypoints    []domain.Coordinate
	RenderedPath []domain.Coordinate
	Name         string
	IsProcessing bool
	// SuggestedName is the pending rename offer, if the last finish collided.
	SuggestedName string
}

// SpotCreationSession collects tapped points into a draft route and publishes it.
//
// Each tap after the first resolves the leg from the previous waypoint in its
// own goroutine. Results land in a slot indexed by leg number, and the rendered
// path is assembled from those slots on read, so it is always in waypoint
// order regardless of completion order.
type SpotCreationSession struct {
	resolver  ports.PathResolver
	guard     *NameUniquenessGuard
	publisher *PublishCoordinator

	mu        sync.Mutex
	creator   domain.Creator
	state     SessionState
	gen       uint64
	run       *draftRun
	waypoints []domain.Coordinate
	segments  [][]domain.Coordinate // segments[k] covers waypoints[k] -> waypoints[k+1]
	name      string
	offer     nameOffer
	touched   time.Time
}

func NewSpotCreationSession(
	creator domain.Creator,
	resolver ports.PathResolver,
	guard *NameUniquenessGuard,
	publisher *PublishCoordinator,
) *SpotCreationSession {
	return &SpotCreationSession{
		creator:   creator,
		resolver:  resolver,
		guard:     guard,
		publisher: publisher,
	}
}

// Start opens an empty draft. A draft that is already Active is discarded and
// its in-flight resolutions are invalidated.
func (s *SpotCreationSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateFinishing:
		return fmt.Errorf("start session creator=%s: %w", s.creator.ID, domain.ErrPublishInProgress)
	case StateActive:
		log.Printf("session discard creator=%s gen=%d waypoints=%d", s.creator.ID, s.gen, len(s.waypoints))
	}

	s.resetLocked()
	s.gen++
	s.run = newDraftRun(s.gen)
	s.state = StateActive

	log.Printf("session start creator=%s gen=%d", s.creator.ID, s.gen)
	return nil
}

// AddPoint appends p to the waypoints and, from the second point on, starts
// resolving the leg that ends at p.
func (s *SpotCreationSession) AddPoint(p domain.Coordinate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return &domain.StateError{Op: "add point", State: s.state.String()}
	}

	s.waypoints = append(s.waypoints, p)
	if len(s.waypoints) == 1 {
		return nil
	}

	idx := len(s.segments)
	s.segments = append(s.segments, nil)
	from := s.waypoints[len(s.waypoints)-2]

	run := s.run
	run.begin()
	go s.resolve(run, idx, from, p)

	return nil
}

func (s *SpotCreationSession) resolve(run *draftRun, idx int, from, to domain.Coordinate) {
	path := s.resolver.ResolveSegment(run.ctx, from, to)

	s.mu.Lock()
	defer s.mu.Unlock()

	defer run.end()
	if s.run != run {
		return
	}
	s.segments[idx] = domain.CopyPath(path)
}

func (s *SpotCreationSession) SetName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return &domain.StateError{Op: "set name", State: s.state.String()}
	}
	if name != s.name {
		s.offer = nameOffer{}
	}
	s.name = name
	return nil
}

// Cancel discards the draft. Late segment results are ignored.
func (s *SpotCreationSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return &domain.StateError{Op: "cancel", State: s.state.String()}
	}

	log.Printf("session cancel creator=%s gen=%d", s.creator.ID, s.gen)
	s.resetLocked()
	s.state = StateIdle
	return nil
}

// Finish validates and publishes the draft.
//
// Pending segments are awaited, then the name is checked for uniqueness, the
// difficulty is classified and the spot is persisted, in that order. On any
// failure the session returns to Active with the draft intact.
func (s *SpotCreationSession) Finish(ctx context.Context, decider ports.RenameDecider) (_ *domain.Spot, err error) {
	defer obs.Time(ctx, "session.finish")(&err)

	s.mu.Lock()
	if s.state != StateActive {
		state := s.state
		s.mu.Unlock()
		return nil, &domain.StateError{Op: "finish", State: state.String()}
	}
	if len(s.waypoints) < 2 {
		s.mu.Unlock()
		return nil, &domain.ValidationError{Field: "waypoints", Reason: "at least 2 points required"}
	}
	name := domain.SanitizeName(s.name)
	if name == "" {
		s.mu.Unlock()
		return nil, &domain.ValidationError{Field: "name", Reason: "required"}
	}

	idle := s.run.idle
	s.state = StateFinishing
	s.mu.Unlock()

	spot, err := s.publish(ctx, idle, name, decider)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		var collision *domain.NameCollisionError
		if errors.As(err, &collision) {
			s.offer = nameOffer{taken: name, suggested: collision.Suggested}
		}
		s.state = StateActive
		return nil, err
	}

	s.resetLocked()
	s.state = StateIdle
	return spot, nil
}

func (s *SpotCreationSession) publish(
	ctx context.Context,
	idle <-chan struct{},
	name string,
	decider ports.RenameDecider,
) (*domain.Spot, error) {
	select {
	case <-idle:
	case <-ctx.Done():
		return nil, fmt.Errorf("finish: wait for segments: %w", ctx.Err())
	}

	s.mu.Lock()
	var offered string
	if s.offer.taken == name {
		offered = s.offer.suggested
	}
	s.mu.Unlock()

	if decider != nil {
		decider = s.recordOffer(decider)
	}

	finalName, err := s.guard.EnsureUnique(ctx, name, offered, decider)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	draft := s.draftLocked()
	creator := s.creator
	s.mu.Unlock()

	draft.Name = finalName
	difficulty := geo.ClassifyDifficulty(draft.Waypoints)

	return s.publisher.Persist(ctx, draft, difficulty, creator)
}

// recordOffer remembers the suggestion shown to decider, so a declined offer
// is the one offered again.
func (s *SpotCreationSession) recordOffer(decider ports.RenameDecider) ports.RenameDecider {
	return ports.RenameDeciderFunc(func(ctx context.Context, taken, suggested string) (bool, error) {
		s.mu.Lock()
		s.offer = nameOffer{taken: taken, suggested: suggested}
		s.mu.Unlock()
		return decider.ConfirmRename(ctx, taken, suggested)
	})
}

// Snapshot returns a copy of the current draft state.
func (s *SpotCreationSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.draftLocked()
	return SessionSnapshot{
		IsCreating:   s.state != StateIdle,
		State:        s.state,
		Generation:   s.gen,
		Waypoints:    d.Waypoints,
		RenderedPath: d.RenderedPath,
		Name:         d.Name,
		IsProcessing: d.IsProcessing,

		SuggestedName: s.offer.suggested,
	}
}

// Draft returns the draft as it would be published now.
func (s *SpotCreationSession) Draft() domain.SpotDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftLocked()
}

func (s *SpotCreationSession) draftLocked() domain.SpotDraft {
	return domain.SpotDraft{
		Waypoints:    domain.CopyPath(s.waypoints),
		RenderedPath: s.renderedPathLocked(),
		Name:         s.name,
		IsProcessing: s.run != nil && s.run.pending > 0,
	}
}

// The first waypoint stands in for the path until the first leg resolves;
// every leg starts at its own from-waypoint, so it then replaces the anchor.
func (s *SpotCreationSession) renderedPathLocked() []domain.Coordinate {
	path := []domain.Coordinate{}
	if len(s.waypoints) == 0 {
		return path
	}
	if len(s.segments) == 0 || s.segments[0] == nil {
		path = append(path, s.waypoints[0])
	}
	for _, seg := range s.segments {
		path = append(path, seg...)
	}
	return path
}

func (s *SpotCreationSession) resetLocked() {
	if s.run != nil {
		s.run.cancel()
		s.run = nil
	}
	s.waypoints = nil
	s.segments = nil
	s.name = ""
	s.offer = nameOffer{}
}

func (s *SpotCreationSession) touch(c domain.Creator, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creator = c
	s.touched = now
}

// expire discards a session untouched since before cutoff. Sessions that are
// publishing are kept.
func (s *SpotCreationSession) expire(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFinishing || s.touched.After(cutoff) {
		return false
	}
	if s.state == StateActive {
		log.Printf("session expire creator=%s gen=%d waypoints=%d", s.creator.ID, s.gen, len(s.waypoints))
	}
	s.resetLocked()
	s.state = StateIdle
	return true
}

// SessionRegistry holds one creation session per creator.
type SessionRegistry struct {
	resolver  ports.PathResolver
	guard     *NameUniquenessGuard
	publisher *PublishCoordinator

	mu       sync.Mutex
	sessions map[string]*SpotCreationSession
	now      func() time.Time
}

func NewSessionRegistry(
	resolver ports.PathResolver,
	guard *NameUniquenessGuard,
	publisher *PublishCoordinator,
) (*SessionRegistry, error) {
	if resolver == nil || guard == nil || publisher == nil {
		return nil, errors.New("session registry: resolver, guard and publisher are required")
	}
	return &SessionRegistry{
		resolver:  resolver,
		guard:     guard,
		publisher: publisher,
		sessions:  map[string]*SpotCreationSession{},
		now:       time.Now,
	}, nil
}

// Session returns the creator's session, creating an idle one on first use.
func (r *SessionRegistry) Session(creator domain.Creator) *SpotCreationSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[creator.ID]
	if !ok {
		s = NewSpotCreationSession(creator, r.resolver, r.guard, r.publisher)
		r.sessions[creator.ID] = s
	}
	s.touch(creator, r.now())
	return s
}

// EvictIdle drops sessions not looked up for longer than maxIdle. An abandoned
// Active draft is discarded with its session.
func (r *SessionRegistry) EvictIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	evicted := 0
	for id, s := range r.sessions {
		if s.expire(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len reports how many sessions are held.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RunEviction calls EvictIdle every interval until ctx is done.
func (r *SessionRegistry) RunEviction(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.EvictIdle(maxIdle); n > 0 {
				log.Printf("session eviction evicted=%d remaining=%d", n, r.Len())
			}
		}
	}
}
