package services

import (
	"context"
	"drift-spot-service/internal/adapters/routing"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/ports"
	"errors"
	"slices"
	"testing"
	"time"
)

var creator = domain.Creator{ID: "u1", Username: "DriftKing"}

func newSession(resolver ports.PathResolver, repo *fakeRepo, pub *recordingPublisher) *SpotCreationSession {
	guard := NewNameUniquenessGuard(repo)
	guard.suffix = func() int { return 42 }

	var events ports.EventPublisher
	if pub != nil {
		events = pub
	}
	return NewSpotCreationSession(creator, resolver, guard, NewPublishCoordinator(repo, events))
}

func pt(lat, lng float64) domain.Coordinate { return domain.Coordinate{Lat: lat, Lng: lng} }

func mustStart(t *testing.T, s *SpotCreationSession) {
	t.Helper()
	if err := s.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
}

func mustAdd(t *testing.T, s *SpotCreationSession, pts ...domain.Coordinate) {
	t.Helper()
	for _, p := range pts {
		if err := s.AddPoint(p); err != nil {
			t.Fatalf("AddPoint(%v) error: %v", p, err)
		}
	}
}

func TestSessionFirstPointIsRenderedImmediately(t *testing.T) {
	s := newSession(newGatedResolver(), newFakeRepo(), nil)
	mustStart(t, s)
	mustAdd(t, s, pt(1, 1))

	snap := s.Snapshot()
	if !snap.IsCreating || snap.State != StateActive {
		t.Fatalf("expected active session, got %+v", snap)
	}
	if !slices.Equal(snap.RenderedPath, []domain.Coordinate{pt(1, 1)}) {
		t.Fatalf("rendered path = %v, want single anchor", snap.RenderedPath)
	}
	if snap.IsProcessing {
		t.Fatalf("first point must not start a resolution")
	}
}

func TestSessionAssemblesSegmentsInWaypointOrder(t *testing.T) {
	r := newGatedResolver()
	s := newSession(r, newFakeRepo(), nil)

	p0, p1, p2, p3 := pt(0, 0), pt(0, 1), pt(1, 1), pt(1, 2)

	mustStart(t, s)
	mustAdd(t, s, p0, p1, p2, p3)
	waitStarted(t, r, 3)

	if !s.Snapshot().IsProcessing {
		t.Fatalf("expected isProcessing while segments are in flight")
	}

	// Last leg completes first.
	r.release(p3)
	waitFor(t, "segment 3", func() bool { return len(s.Snapshot().RenderedPath) == 4 })

	partial := s.Snapshot().RenderedPath
	want := append([]domain.Coordinate{p0}, legPath(p2, p3)...)
	if !slices.Equal(partial, want) {
		t.Fatalf("partial path = %v, want %v", partial, want)
	}

	r.release(p1)
	r.release(p2)
	waitFor(t, "all segments", func() bool { return !s.Snapshot().IsProcessing })

	var full []domain.Coordinate
	full = append(full, legPath(p0, p1)...)
	full = append(full, legPath(p1, p2)...)
	full = append(full, legPath(p2, p3)...)

	snap := s.Snapshot()
	if !slices.Equal(snap.RenderedPath, full) {
		t.Fatalf("rendered path = %v, want %v", snap.RenderedPath, full)
	}
	if !slices.Equal(snap.Waypoints, []domain.Coordinate{p0, p1, p2, p3}) {
		t.Fatalf("waypoints = %v", snap.Waypoints)
	}
	if len(snap.RenderedPath) < len(snap.Waypoints) {
		t.Fatalf("rendered path shorter than waypoints")
	}
}

func TestSessionCancelDropsLateResults(t *testing.T) {
	r := newGatedResolver()
	s := newSession(r, newFakeRepo(), nil)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	waitStarted(t, r, 1)

	idle := runIdle(s)

	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	r.release(pt(0, 1))
	waitClosed(t, idle)

	snap := s.Snapshot()
	if snap.State != StateIdle || snap.IsCreating {
		t.Fatalf("expected idle after cancel, got %v", snap.State)
	}
	if len(snap.RenderedPath) != 0 || len(snap.Waypoints) != 0 {
		t.Fatalf("late result mutated cancelled draft: %+v", snap)
	}
	if snap.IsProcessing {
		t.Fatalf("isProcessing must be false after cancel")
	}
}

func TestSessionRestartIgnoresResultsFromPreviousDraft(t *testing.T) {
	r := newGatedResolver()
	s := newSession(r, newFakeRepo(), nil)

	mustStart(t, s)
	mustAdd(t, s, pt(5, 5), pt(5, 6))
	waitStarted(t, r, 1)

	old := runIdle(s)

	// Starting again while Active discards the first draft.
	mustStart(t, s)
	mustAdd(t, s, pt(9, 9))

	r.release(pt(5, 6))
	waitClosed(t, old)

	snap := s.Snapshot()
	if !slices.Equal(snap.RenderedPath, []domain.Coordinate{pt(9, 9)}) {
		t.Fatalf("rendered path = %v, want only the new draft's anchor", snap.RenderedPath)
	}
	if !slices.Equal(snap.Waypoints, []domain.Coordinate{pt(9, 9)}) {
		t.Fatalf("waypoints = %v", snap.Waypoints)
	}
}

func TestSessionStartTwiceDiscardsFirstDraft(t *testing.T) {
	s := newSession(routing.LocalPathResolver{}, newFakeRepo(), nil)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	if err := s.SetName("First"); err != nil {
		t.Fatalf("SetName error: %v", err)
	}
	gen := s.Snapshot().Generation

	mustStart(t, s)

	snap := s.Snapshot()
	if snap.State != StateActive {
		t.Fatalf("state = %v, want active", snap.State)
	}
	if snap.Generation != gen+1 {
		t.Fatalf("generation = %d, want %d", snap.Generation, gen+1)
	}
	if len(snap.Waypoints) != 0 || snap.Name != "" || len(snap.RenderedPath) != 0 {
		t.Fatalf("expected empty draft, got %+v", snap)
	}
}

func TestSessionWrongStateCalls(t *testing.T) {
	s := newSession(routing.LocalPathResolver{}, newFakeRepo(), nil)

	var stateErr *domain.StateError
	if err := s.AddPoint(pt(0, 0)); !errors.As(err, &stateErr) {
		t.Fatalf("AddPoint while idle: expected StateError, got %v", err)
	}
	if err := s.SetName("x"); !errors.As(err, &stateErr) {
		t.Fatalf("SetName while idle: expected StateError, got %v", err)
	}
	if err := s.Cancel(); !errors.As(err, &stateErr) {
		t.Fatalf("Cancel while idle: expected StateError, got %v", err)
	}
	if _, err := s.Finish(context.Background(), nil); !errors.As(err, &stateErr) {
		t.Fatalf("Finish while idle: expected StateError, got %v", err)
	}
}

func TestSessionFinishRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	pub := &recordingPublisher{}
	s := newSession(routing.LocalPathResolver{}, repo, pub)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	if err := s.SetName("Test Spot"); err != nil {
		t.Fatalf("SetName error: %v", err)
	}

	spot, err := s.Finish(context.Background(), nil)
	if err != nil {
		t.Fatalf("Finish error: %v", err)
	}

	if len(spot.Points) < 2 {
		t.Fatalf("points = %v, want >= 2", spot.Points)
	}
	if spot.Difficulty != domain.DifficultyEasy {
		t.Fatalf("difficulty = %s, want Easy", spot.Difficulty)
	}
	if spot.Name != "Test Spot" {
		t.Fatalf("name = %q", spot.Name)
	}
	if spot.CreatorID != creator.ID || spot.CreatorName != creator.Username {
		t.Fatalf("creator = %s/%s", spot.CreatorID, spot.CreatorName)
	}
	if spot.ID == "" {
		t.Fatalf("expected generated id")
	}

	snap := s.Snapshot()
	if snap.State != StateIdle || len(snap.Waypoints) != 0 {
		t.Fatalf("expected idle empty session, got %+v", snap)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected 1 stored spot, got %d", len(repo.created))
	}
	events := pub.recorded()
	if len(events) != 1 || events[0].SpotID != spot.ID || events[0].Kind != domain.EventSpotCreated {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestSessionFinishWaitsForPendingSegments(t *testing.T) {
	r := newGatedResolver()
	repo := newFakeRepo()
	s := newSession(r, repo, nil)

	p0, p1 := pt(0, 0), pt(0, 1)
	mustStart(t, s)
	mustAdd(t, s, p0, p1)
	_ = s.SetName("Slow Road")
	waitStarted(t, r, 1)

	type result struct {
		spot *domain.Spot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		spot, err := s.Finish(context.Background(), nil)
		done <- result{spot, err}
	}()

	waitFor(t, "finishing state", func() bool { return s.Snapshot().State == StateFinishing })

	if err := s.Start(); !errors.Is(err, domain.ErrPublishInProgress) {
		t.Fatalf("Start while finishing: expected ErrPublishInProgress, got %v", err)
	}
	if err := s.AddPoint(pt(3, 3)); err == nil {
		t.Fatalf("AddPoint while finishing should fail")
	}

	r.release(p1)

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Finish error: %v", res.err)
		}
		if !slices.Equal(res.spot.Points, legPath(p0, p1)) {
			t.Fatalf("points = %v, want resolved leg", res.spot.Points)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Finish did not return")
	}
}

func TestSessionFinishValidation(t *testing.T) {
	tests := []struct {
		name   string
		points []domain.Coordinate
		title  string
		field  string
	}{
		{name: "one waypoint", points: []domain.Coordinate{pt(0, 0)}, title: "Valid Name", field: "waypoints"},
		{name: "blank name", points: []domain.Coordinate{pt(0, 0), pt(0, 1)}, title: "   ", field: "name"},
		{name: "short name", points: []domain.Coordinate{pt(0, 0), pt(0, 1)}, title: "ab", field: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			s := newSession(routing.LocalPathResolver{}, repo, nil)

			mustStart(t, s)
			mustAdd(t, s, tt.points...)
			_ = s.SetName(tt.title)

			_, err := s.Finish(context.Background(), nil)

			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", vErr.Field, tt.field)
			}

			snap := s.Snapshot()
			if snap.State != StateActive || len(snap.Waypoints) != len(tt.points) {
				t.Fatalf("draft not preserved: %+v", snap)
			}
			if len(repo.created) != 0 {
				t.Fatalf("nothing should be stored")
			}
		})
	}
}

func TestSessionFinishNameCollisionDeclined(t *testing.T) {
	repo := newFakeRepo("Test Spot")
	s := newSession(routing.LocalPathResolver{}, repo, nil)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1), pt(0, 2))
	_ = s.SetName("Test Spot")

	var offered string
	decline := func(_ context.Context, taken, suggested string) (bool, error) {
		offered = suggested
		return false, nil
	}

	_, err := s.Finish(context.Background(), ports.RenameDeciderFunc(decline))
	if !errors.Is(err, domain.ErrUserCancelled) {
		t.Fatalf("expected ErrUserCancelled, got %v", err)
	}
	if offered != "Test Spot 42" {
		t.Fatalf("offered %q, want %q", offered, "Test Spot 42")
	}

	snap := s.Snapshot()
	if snap.State != StateActive {
		t.Fatalf("state = %v, want active", snap.State)
	}
	if !slices.Equal(snap.Waypoints, []domain.Coordinate{pt(0, 0), pt(0, 1), pt(0, 2)}) {
		t.Fatalf("waypoints lost: %v", snap.Waypoints)
	}
	if len(repo.created) != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestSessionFinishNameCollisionAccepted(t *testing.T) {
	repo := newFakeRepo("Test Spot")
	s := newSession(routing.LocalPathResolver{}, repo, nil)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	_ = s.SetName("Test Spot")

	accept := func(context.Context, string, string) (bool, error) { return true, nil }

	spot, err := s.Finish(context.Background(), ports.RenameDeciderFunc(accept))
	if err != nil {
		t.Fatalf("Finish error: %v", err)
	}
	if spot.Name != "Test Spot 42" {
		t.Fatalf("name = %q, want suggestion", spot.Name)
	}
}

func TestSessionFinishNameCollisionWithoutDecider(t *testing.T) {
	s := newSession(routing.LocalPathResolver{}, newFakeRepo("Test Spot"), nil)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	_ = s.SetName("Test Spot")

	_, err := s.Finish(context.Background(), nil)

	var collision *domain.NameCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected NameCollisionError, got %v", err)
	}
	if collision.Suggested != "Test Spot 42" {
		t.Fatalf("suggested = %q", collision.Suggested)
	}
	if s.Snapshot().State != StateActive {
		t.Fatalf("session should stay active")
	}
}

func TestSessionFinishPersistenceFailureKeepsDraft(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("connection refused")
	pub := &recordingPublisher{}
	s := newSession(routing.LocalPathResolver{}, repo, pub)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	_ = s.SetName("Retry Road")

	_, err := s.Finish(context.Background(), nil)

	var pErr *domain.PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if snap := s.Snapshot(); snap.State != StateActive || len(snap.Waypoints) != 2 || snap.Name != "Retry Road" {
		t.Fatalf("draft not preserved: %+v", snap)
	}
	if len(pub.recorded()) != 0 {
		t.Fatalf("no event expected on failure")
	}

	repo.mu.Lock()
	repo.createErr = nil
	repo.mu.Unlock()

	if _, err := s.Finish(context.Background(), nil); err != nil {
		t.Fatalf("retry Finish error: %v", err)
	}
	if s.Snapshot().State != StateIdle {
		t.Fatalf("expected idle after retry")
	}
}

func TestSessionFinishContextCancelledWhileWaiting(t *testing.T) {
	r := newGatedResolver()
	s := newSession(r, newFakeRepo(), nil)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	_ = s.SetName("Never Done")
	waitStarted(t, r, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := s.Finish(ctx, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if s.Snapshot().State != StateActive {
		t.Fatalf("session should return to active")
	}

	r.release(pt(0, 1))
}

func TestSessionKeepsTappingAfterFinishTimedOut(t *testing.T) {
	r := newGatedResolver()
	repo := newFakeRepo()
	s := newSession(r, repo, nil)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	_ = s.SetName("Second Try")
	waitStarted(t, r, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Finish(ctx, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	// The leg completes right as new taps start further legs.
	r.release(pt(0, 1))
	mustAdd(t, s, pt(0, 2))
	waitFor(t, "first leg", func() bool { return len(s.Snapshot().RenderedPath) == 3 })
	mustAdd(t, s, pt(0, 3))
	waitStarted(t, r, 2)
	r.release(pt(0, 2))
	r.release(pt(0, 3))

	spot, err := s.Finish(context.Background(), nil)
	if err != nil {
		t.Fatalf("Finish error: %v", err)
	}
	want := append(append(legPath(pt(0, 0), pt(0, 1)), legPath(pt(0, 1), pt(0, 2))...), legPath(pt(0, 2), pt(0, 3))...)
	if !slices.Equal(spot.Points, want) {
		t.Fatalf("points = %v, want %v", spot.Points, want)
	}
}

func TestSessionAcceptedSuggestionIsTheOneOffered(t *testing.T) {
	repo := newFakeRepo("Harbor Loop")
	s := newSession(routing.LocalPathResolver{}, repo, nil)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	_ = s.SetName("Harbor Loop")

	_, err := s.Finish(context.Background(), nil)
	var collision *domain.NameCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected NameCollisionError, got %v", err)
	}
	if got := s.Snapshot().SuggestedName; got != collision.Suggested {
		t.Fatalf("snapshot suggestion = %q, want %q", got, collision.Suggested)
	}

	// A fresh draw would now produce a different suffix.
	s.guard.suffix = func() int { return 7 }

	var shown string
	accept := ports.RenameDeciderFunc(func(_ context.Context, _, suggested string) (bool, error) {
		shown = suggested
		return true, nil
	})
	spot, err := s.Finish(context.Background(), accept)
	if err != nil {
		t.Fatalf("Finish error: %v", err)
	}
	if spot.Name != collision.Suggested || shown != collision.Suggested {
		t.Fatalf("published %q after showing %q, want the offered %q", spot.Name, shown, collision.Suggested)
	}
	if s.Snapshot().SuggestedName != "" {
		t.Fatalf("suggestion should be cleared after publishing")
	}
}

func TestSessionDeclinedSuggestionIsOfferedAgain(t *testing.T) {
	s := newSession(routing.LocalPathResolver{}, newFakeRepo("Harbor Loop"), nil)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	_ = s.SetName("Harbor Loop")

	var offers []string
	decline := ports.RenameDeciderFunc(func(_ context.Context, _, suggested string) (bool, error) {
		offers = append(offers, suggested)
		return false, nil
	})

	_, _ = s.Finish(context.Background(), decline)
	s.guard.suffix = func() int { return 7 }
	_, _ = s.Finish(context.Background(), decline)

	if len(offers) != 2 || offers[0] != offers[1] {
		t.Fatalf("offers = %v, want the same suggestion twice", offers)
	}
}

func TestSessionRenameClearsSuggestion(t *testing.T) {
	s := newSession(routing.LocalPathResolver{}, newFakeRepo("Harbor Loop", "Harbor Loop 42"), nil)

	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	_ = s.SetName("Harbor Loop")

	if _, err := s.Finish(context.Background(), nil); err == nil {
		t.Fatalf("expected collision")
	}
	_ = s.SetName("Harbor Loop 42")
	if got := s.Snapshot().SuggestedName; got != "" {
		t.Fatalf("suggestion %q survived a rename", got)
	}

	s.guard.suffix = func() int { return 7 }
	_, err := s.Finish(context.Background(), nil)

	var collision *domain.NameCollisionError
	if !errors.As(err, &collision) || collision.Suggested != "Harbor Loop 42 7" {
		t.Fatalf("expected a fresh suggestion for the new name, got %v", err)
	}
}

func TestSessionRegistryReturnsOneSessionPerCreator(t *testing.T) {
	repo := newFakeRepo()
	reg, err := NewSessionRegistry(routing.LocalPathResolver{}, NewNameUniquenessGuard(repo), NewPublishCoordinator(repo, nil))
	if err != nil {
		t.Fatalf("NewSessionRegistry error: %v", err)
	}

	a := reg.Session(domain.Creator{ID: "u1", Username: "one"})
	b := reg.Session(domain.Creator{ID: "u1", Username: "renamed"})
	c := reg.Session(domain.Creator{ID: "u2", Username: "two"})

	if a != b {
		t.Fatalf("expected the same session for the same creator")
	}
	if a == c {
		t.Fatalf("expected distinct sessions for distinct creators")
	}

	if _, err := NewSessionRegistry(nil, nil, nil); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}

func TestSessionRegistryEvictsUnusedSessions(t *testing.T) {
	repo := newFakeRepo()
	reg, err := NewSessionRegistry(routing.LocalPathResolver{}, NewNameUniquenessGuard(repo), NewPublishCoordinator(repo, nil))
	if err != nil {
		t.Fatalf("NewSessionRegistry error: %v", err)
	}

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	idle := reg.Session(domain.Creator{ID: "idle"})
	abandoned := reg.Session(domain.Creator{ID: "abandoned"})
	mustStart(t, abandoned)
	mustAdd(t, abandoned, pt(0, 0))

	now = now.Add(20 * time.Minute)
	recent := reg.Session(domain.Creator{ID: "recent"})
	mustStart(t, recent)

	now = now.Add(15 * time.Minute)
	if n := reg.EvictIdle(30 * time.Minute); n != 2 {
		t.Fatalf("evicted %d sessions, want 2", n)
	}
	if reg.Len() != 1 {
		t.Fatalf("registry holds %d sessions, want 1", reg.Len())
	}
	if abandoned.Snapshot().IsCreating {
		t.Fatalf("abandoned draft should be discarded")
	}
	if reg.Session(domain.Creator{ID: "recent"}) != recent {
		t.Fatalf("recently used session was evicted")
	}
	if reg.Session(domain.Creator{ID: "idle"}) == idle {
		t.Fatalf("expected a fresh session after eviction")
	}
}

func TestSessionRegistryKeepsPublishingSessions(t *testing.T) {
	r := newGatedResolver()
	repo := newFakeRepo()
	reg, err := NewSessionRegistry(r, NewNameUniquenessGuard(repo), NewPublishCoordinator(repo, nil))
	if err != nil {
		t.Fatalf("NewSessionRegistry error: %v", err)
	}

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	s := reg.Session(creator)
	mustStart(t, s)
	mustAdd(t, s, pt(0, 0), pt(0, 1))
	_ = s.SetName("Slow Publish")
	waitStarted(t, r, 1)

	done := make(chan error, 1)
	go func() {
		_, err := s.Finish(context.Background(), nil)
		done <- err
	}()
	waitFor(t, "finishing", func() bool { return s.Snapshot().State == StateFinishing })

	now = now.Add(time.Hour)
	if n := reg.EvictIdle(time.Minute); n != 0 {
		t.Fatalf("evicted %d sessions while publishing", n)
	}

	r.release(pt(0, 1))
	if err := <-done; err != nil {
		t.Fatalf("Finish error: %v", err)
	}
}
