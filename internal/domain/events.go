package domain

const EventSpotCreated = "spot_created"

// Completion signal emitted once per successful publish.
type SpotCreatedEvent struct {
	Kind       string     `json:"kind"`
	SpotID     string     `json:"spotId"`
	Name       string     `json:"name"`
	Difficulty Difficulty `json:"difficulty"`
}

func NewSpotCreatedEvent(s *Spot) SpotCreatedEvent {
	return SpotCreatedEvent{
		Kind:       EventSpotCreated,
		SpotID:     s.ID,
		Name:       s.Name,
		Difficulty: s.Difficulty,
	}
}
