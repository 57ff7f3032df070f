package domain

import (
	"fmt"
	"strings"
	"time"
)

type Difficulty string

const (
	DifficultyEasy    Difficulty = "Easy"
	DifficultyMedium  Difficulty = "Medium"
	DifficultyHard    Difficulty = "Hard"
	DifficultyExtreme Difficulty = "Extreme"
)

// ParseDifficulty accepts the canonical names case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	case "extreme":
		return DifficultyExtreme, nil
	}
	return "", fmt.Errorf("parse difficulty: unknown value %q", s)
}

// Creator identifies the user publishing a spot.
type Creator struct {
	ID       string
	Username string
}

type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type DriftRun struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Score     int       `json:"score"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
}

// Published drift route. Social fields (likes, comments, runs) are owned
// by other services; they start empty on creation.
type Spot struct {
	ID           string
	Name         string
	CreatorID    string
	CreatorName  string
	Points       []Coordinate
	Waypoints    []Coordinate
	Difficulty   Difficulty
	DriftScore   int
	Likes        int
	LikedBy      []string
	Comments     int
	CommentsList []Comment
	Runs         []DriftRun
	CreatedAt    time.Time
}

// SpotDraft is the in-progress route owned by a creation session.
type SpotDraft struct {
	Waypoints    []Coordinate
	RenderedPath []Coordinate
	Name         string
	IsProcessing bool
}
