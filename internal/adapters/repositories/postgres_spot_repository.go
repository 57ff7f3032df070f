package repositories

import (
	"context"
	"drift-spot-service/internal/domain"
	"drift-spot-service/internal/platform/db"
	"drift-spot-service/internal/platform/obs"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Postgres-backed implementation of the SpotRepository port.
type PostgresSpotRepository struct{ DB db.Querier }

func NewPostgresSpotRepository(q db.Querier) *PostgresSpotRepository {
	return &PostgresSpotRepository{DB: q}
}

const selectSpotColumns = `
	SELECT
		id, name, creator_id, creator_name, points, waypoints,
		difficulty, drift_score, likes, liked_by, comments, created_at
	FROM spots
`

func (r *PostgresSpotRepository) CreateSpot(ctx context.Context, spot *domain.Spot) (_ *domain.Spot, err error) {
	defer obs.Time(ctx, "spots.create")(&err)

	if r.DB == nil {
		return nil, errors.New("postgres spot repository: DB is nil")
	}
	if spot == nil {
		return nil, errors.New("create spot: spot is nil")
	}

	points, waypoints, err := encodePaths(spot)
	if err != nil {
		return nil, fmt.Errorf("create spot: %w", err)
	}

	likedBy := spot.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}

	query := `
	INSERT INTO spots (
		id, name, creator_id, creator_name, points, waypoints,
		difficulty, drift_score, likes, liked_by, comments
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING created_at;
	`

	var createdAt time.Time
	if err := r.DB.QueryRow(ctx, query,
		spot.ID, spot.Name, spot.CreatorID, spot.CreatorName, points, waypoints,
		string(spot.Difficulty), spot.DriftScore, spot.Likes, likedBy, spot.Comments,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("create spot: insert id=%s: %w", spot.ID, err)
	}

	out := *spot
	out.LikedBy = likedBy
	out.CreatedAt = createdAt
	return &out, nil
}

func (r *PostgresSpotRepository) IsSpotNameUnique(ctx context.Context, name string) (bool, error) {
	if r.DB == nil {
		return false, errors.New("postgres spot repository: DB is nil")
	}

	var exists bool
	err := r.DB.QueryRow(ctx, `
	SELECT EXISTS (
		SELECT 1 FROM spots WHERE lower(name) = lower($1)
	);
	`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check spot name: %w", err)
	}

	return !exists, nil
}

// Return all spots ordered by creation time.
func (r *PostgresSpotRepository) ListSpots(ctx context.Context) (_ []*domain.Spot, err error) {
	defer obs.Time(ctx, "spots.list")(&err)

	if r.DB == nil {
		return nil, errors.New("postgres spot repository: DB is nil")
	}

	rows, err := r.DB.Query(ctx, selectSpotColumns+` ORDER BY created_at, id;`)
	if err != nil {
		return nil, fmt.Errorf("list spots: query spots table: %w", err)
	}
	defer rows.Close()

	spots := make([]*domain.Spot, 0, 64)
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("list spots: %w", err)
		}
		spots = append(spots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list spots: row iteration: %w", err)
	}

	return spots, nil
}

func (r *PostgresSpotRepository) GetSpot(ctx context.Context, id string) (*domain.Spot, error) {
	if r.DB == nil {
		return nil, errors.New("postgres spot repository: DB is nil")
	}

	s, err := scanSpot(r.DB.QueryRow(ctx, selectSpotColumns+` WHERE id = $1;`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSpotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get spot id=%s: %w", id, err)
	}

	return s, nil
}

func scanSpot(row pgx.Row) (*domain.Spot, error) {
	var (
		s                 domain.Spot
		points, waypoints []byte
		difficulty        string
	)

	if err := row.Scan(
		&s.ID, &s.Name, &s.CreatorID, &s.CreatorName, &points, &waypoints,
		&difficulty, &s.DriftScore, &s.Likes, &s.LikedBy, &s.Comments, &s.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(points, &s.Points); err != nil {
		return nil, fmt.Errorf("decode points of %s: %w", s.ID, err)
	}
	if len(waypoints) > 0 {
		if err := json.Unmarshal(waypoints, &s.Waypoints); err != nil {
			return nil, fmt.Errorf("decode waypoints of %s: %w", s.ID, err)
		}
	}

	s.Difficulty = domain.Difficulty(difficulty)
	return &s, nil
}
