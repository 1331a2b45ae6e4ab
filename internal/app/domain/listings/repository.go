package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/publimicro/marketplace-api/internal/app/models"
)

// PGXPool is the slice of pgxpool.Pool the listings repository needs.
// Satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type PGXPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists listings. The proximity snapshot travels as JSONB.
type Repository interface {
	CreateListing(ctx context.Context, listing *models.Listing) error
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	SearchListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error)
	// UpdateProximity replaces the stored proximity snapshot of one listing.
	UpdateProximity(ctx context.Context, id uuid.UUID, proximity []models.ProximityResult) error
	// ActivePropertiesWithCoordinates returns active property listings that
	// carry coordinates, for batch re-enrichment.
	ActivePropertiesWithCoordinates(ctx context.Context) ([]models.Listing, error)
}

type RepositoryImpl struct {
	db PGXPool
}

var _ Repository = (*RepositoryImpl)(nil)

func NewRepository(db PGXPool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const listingColumns = `
	id, user_id, category, title, slug, description, price_cents,
	city, state, latitude, longitude, proximity, status, created_at, updated_at
`

func scanListing(row pgx.Row) (*models.Listing, error) {
	var (
		listing      models.Listing
		lat, lon     *float64
		proximityRaw []byte
	)
	err := row.Scan(
		&listing.ID, &listing.UserID, &listing.Category, &listing.Title,
		&listing.Slug, &listing.Description, &listing.PriceCents,
		&listing.City, &listing.State, &lat, &lon, &proximityRaw,
		&listing.Status, &listing.CreatedAt, &listing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		listing.Coordinates = &models.Coordinates{Latitude: *lat, Longitude: *lon}
	}
	if len(proximityRaw) > 0 {
		if err := json.Unmarshal(proximityRaw, &listing.Proximity); err != nil {
			return nil, fmt.Errorf("failed to decode proximity snapshot: %w", err)
		}
	}
	return &listing, nil
}

func (r *RepositoryImpl) CreateListing(ctx context.Context, listing *models.Listing) error {
	var lat, lon *float64
	if listing.Coordinates != nil {
		lat = &listing.Coordinates.Latitude
		lon = &listing.Coordinates.Longitude
	}

	var proximityRaw []byte
	if listing.Proximity != nil {
		raw, err := json.Marshal(listing.Proximity)
		if err != nil {
			return fmt.Errorf("failed to encode proximity snapshot: %w", err)
		}
		proximityRaw = raw
	}

	query := `
		INSERT INTO listings (user_id, category, title, slug, description,
		                      price_cents, city, state, latitude, longitude,
		                      proximity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		listing.UserID, listing.Category, listing.Title, listing.Slug,
		listing.Description, listing.PriceCents, listing.City, listing.State,
		lat, lon, proximityRaw, listing.Status,
	).Scan(&listing.ID, &listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE id = $1
	`
	listing, err := scanListing(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("listing %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query listing: %w", err)
	}
	return listing, nil
}

// SearchListings builds the filter dynamically; zero filter values add no
// predicate. Results are newest first.
func (r *RepositoryImpl) SearchListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	builder := squirrel.Select(
		"id", "user_id", "category", "title", "slug", "description",
		"price_cents", "city", "state", "latitude", "longitude",
		"proximity", "status", "created_at", "updated_at",
	).
		From("listings").
		PlaceholderFormat(squirrel.Dollar).
		OrderBy("created_at DESC")

	if filter.Category != "" {
		builder = builder.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.City != "" {
		builder = builder.Where(squirrel.Eq{"city": filter.City})
	}
	if filter.State != "" {
		builder = builder.Where(squirrel.Eq{"state": filter.State})
	}
	if filter.Status != "" {
		builder = builder.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.MinPriceCents > 0 {
		builder = builder.Where(squirrel.GtOrEq{"price_cents": filter.MinPriceCents})
	}
	if filter.MaxPriceCents > 0 {
		builder = builder.Where(squirrel.LtOrEq{"price_cents": filter.MaxPriceCents})
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	builder = builder.Limit(uint64(limit))
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	defer rows.Close()

	var results []models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		results = append(results, *listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read listing rows: %w", err)
	}
	return results, nil
}

func (r *RepositoryImpl) UpdateProximity(ctx context.Context, id uuid.UUID, proximity []models.ProximityResult) error {
	raw, err := json.Marshal(proximity)
	if err != nil {
		return fmt.Errorf("failed to encode proximity snapshot: %w", err)
	}

	query := `
		UPDATE listings
		SET proximity = $2, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, raw)
	if err != nil {
		return fmt.Errorf("failed to update proximity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listing %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) ActivePropertiesWithCoordinates(ctx context.Context) ([]models.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE category = 'properties'
		  AND status = 'active'
		  AND latitude IS NOT NULL
		  AND longitude IS NOT NULL
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query property listings: %w", err)
	}
	defer rows.Close()

	var results []models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		results = append(results, *listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read listing rows: %w", err)
	}
	return results, nil
}
