package services

import (
	"context"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/geo"
	"sync"
	"testing"
	"time"
)

// gatedResolver blocks each leg until the test releases the gate for its
// destination, so completion order is fully controlled.
type gatedResolver struct {
	mu      sync.Mutex
	gates   map[domain.Coordinate]chan struct{}
	started chan domain.Coordinate
}

func newGatedResolver() *gatedResolver {
	return &gatedResolver{
		gates:   map[domain.Coordinate]chan struct{}{},
		started: make(chan domain.Coordinate, 32),
	}
}

func (r *gatedResolver) gate(to domain.Coordinate) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.gates[to]
	if !ok {
		g = make(chan struct{})
		r.gates[to] = g
	}
	return g
}

func (r *gatedResolver) release(to domain.Coordinate) { close(r.gate(to)) }

func (r *gatedResolver) ResolveSegment(ctx context.Context, from, to domain.Coordinate) []domain.Coordinate {
	r.started <- to
	select {
	case <-r.gate(to):
		return legPath(from, to)
	case <-ctx.Done():
		return geo.SmoothPath([]domain.Coordinate{from, to})
	}
}

// legPath is the canned "snapped" geometry: endpoints plus their midpoint.
func legPath(from, to domain.Coordinate) []domain.Coordinate {
	mid := domain.Coordinate{Lat: (from.Lat + to.Lat) / 2, Lng: (from.Lng + to.Lng) / 2}
	return []domain.Coordinate{from, mid, to}
}

type fakeRepo struct {
	mu        sync.Mutex
	taken     map[string]bool
	created   []*domain.Spot
	createErr error
	uniqueErr error
}

func newFakeRepo(taken ...string) *fakeRepo {
	r := &fakeRepo{taken: map[string]bool{}}
	for _, n := range taken {
		r.taken[n] = true
	}
	return r
}

func (r *fakeRepo) CreateSpot(_ context.Context, s *domain.Spot) (*domain.Spot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}
	r.created = append(r.created, s)
	return s, nil
}

func (r *fakeRepo) IsSpotNameUnique(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.uniqueErr != nil {
		return false, r.uniqueErr
	}
	return !r.taken[name], nil
}

func (r *fakeRepo) ListSpots(context.Context) ([]*domain.Spot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Spot(nil), r.created...), nil
}

func (r *fakeRepo) GetSpot(_ context.Context, id string) (*domain.Spot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.created {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, domain.ErrSpotNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.SpotCreatedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.SpotCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) recorded() []domain.SpotCreatedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.SpotCreatedEvent(nil), p.events...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitStarted(t *testing.T, r *gatedResolver, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		select {
		case <-r.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d resolutions started", i, n)
		}
	}
}

// runIdle returns the channel closed once the current draft has no
// resolutions in flight.
func runIdle(s *SpotCreationSession) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run.idle
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for in-flight resolutions")
	}
}
