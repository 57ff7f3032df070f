package repositories

import (
	"context"
	"drift-spot-service/internal/domain"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Beginner is satisfied by *pgxpool.Pool and pgxmock pools.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Initialize the Postgres schema. Safe to run repeatedly.
func InitSchema(ctx context.Context, db Beginner) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	createSpotsQuery := `
	CREATE TABLE IF NOT EXISTS spots (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		creator_id TEXT NOT NULL,
		creator_name TEXT NOT NULL,
		points JSONB NOT NULL,
		waypoints JSONB NOT NULL DEFAULT '[]'::jsonb,
		difficulty TEXT NOT NULL,
		drift_score INTEGER NOT NULL DEFAULT 0,
		likes INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
		liked_by TEXT[] NOT NULL DEFAULT '{}',
		comments INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	// Not unique: name uniqueness is best-effort and checked by the application.
	createNameIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_spots_lower_name
	ON spots (lower(name));
	`

	statements := []string{
		createSpotsQuery,
		createNameIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type SpotSeed struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	CreatorID   string              `json:"creator_id"`
	CreatorName string              `json:"creator_name"`
	Points      []domain.Coordinate `json:"points"`
	Waypoints   []domain.Coordinate `json:"waypoints"`
	Difficulty  string              `json:"difficulty"`
	DriftScore  int                 `json:"drift_score"`
	Likes       int                 `json:"likes"`
	LikedBy     []string            `json:"liked_by"`
	Comments    int                 `json:"comments"`
}

// LoadSeedFile parses and validates a JSON array of spots.
func LoadSeedFile(jsonPath string) ([]*domain.Spot, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("load seed: read %q: %w", jsonPath, err)
	}

	var data []SpotSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("load seed: parse json: %w", err)
	}

	spots := make([]*domain.Spot, 0, len(data))
	for i, item := range data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return nil, fmt.Errorf("load seed: item %d: id cannot be empty", i+1)
		}

		if err := domain.ValidateSpotName(item.Name); err != nil {
			return nil, fmt.Errorf("load seed: item %d: %w", i+1, err)
		}

		if len(item.Points) < 2 {
			return nil, fmt.Errorf("load seed: item %d: need at least 2 points, got %d", i+1, len(item.Points))
		}

		difficulty, err := domain.ParseDifficulty(item.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("load seed: item %d: %w", i+1, err)
		}

		if item.Likes < 0 {
			return nil, fmt.Errorf("load seed: item %d: likes cannot be negative", i+1)
		}

		likedBy := item.LikedBy
		if likedBy == nil {
			likedBy = []string{}
		}

		spots = append(spots, &domain.Spot{
			ID:          id,
			Name:        strings.TrimSpace(item.Name),
			CreatorID:   item.CreatorID,
			CreatorName: item.CreatorName,
			Points:      item.Points,
			Waypoints:   item.Waypoints,
			Difficulty:  difficulty,
			DriftScore:  item.DriftScore,
			Likes:       item.Likes,
			LikedBy:     likedBy,
			Comments:    item.Comments,
		})
	}

	return spots, nil
}

// Populate the database with spot data from a JSON file. Existing ids are overwritten.
func SeedFromJSON(ctx context.Context, db Beginner, jsonPath string) (int, error) {
	spots, err := LoadSeedFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed spots: %w", err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed spots: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
	INSERT INTO spots (
		id, name, creator_id, creator_name, points, waypoints,
		difficulty, drift_score, likes, liked_by, comments
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		points = EXCLUDED.points,
		waypoints = EXCLUDED.waypoints,
		difficulty = EXCLUDED.difficulty,
		drift_score = EXCLUDED.drift_score,
		likes = EXCLUDED.likes,
		liked_by = EXCLUDED.liked_by,
		comments = EXCLUDED.comments;
	`

	for _, s := range spots {
		points, waypoints, err := encodePaths(s)
		if err != nil {
			return 0, fmt.Errorf("seed spots: id=%s: %w", s.ID, err)
		}

		if _, err := tx.Exec(ctx, query,
			s.ID, s.Name, s.CreatorID, s.CreatorName, points, waypoints,
			string(s.Difficulty), s.DriftScore, s.Likes, s.LikedBy, s.Comments,
		); err != nil {
			return 0, fmt.Errorf("seed spots: insert id=%s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("seed spots: commit tx: %w", err)
	}

	return len(spots), nil
}

func encodePaths(s *domain.Spot) ([]byte, []byte, error) {
	points, err := json.Marshal(s.Points)
	if err != nil {
		return nil, nil, fmt.Errorf("encode points: %w", err)
	}

	waypoints := s.Waypoints
	if waypoints == nil {
		waypoints = []domain.Coordinate{}
	}
	wp, err := json.Marshal(waypoints)
	if err != nil {
		return nil, nil, fmt.Errorf("encode waypoints: %w", err)
	}

	return points, wp, nil
}
