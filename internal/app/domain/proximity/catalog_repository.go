package proximity

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/publimicro/marketplace-api/internal/app/models"
)

// CatalogRepository is the POI data source consumed by the enrichment
// service. The seeded table stands in for a real places API.
type CatalogRepository interface {
	QueryByBoundingBox(ctx context.Context, box models.BoundingBox) ([]models.PointOfInterest, error)
}

type CatalogRepositoryImpl struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) CatalogRepository {
	return &CatalogRepositoryImpl{db: db}
}

// QueryByBoundingBox returns all POIs inside the box in stable catalog order
// (insertion order). Ordering matters: equidistant POIs tie-break on it.
func (r *CatalogRepositoryImpl) QueryByBoundingBox(ctx context.Context, box models.BoundingBox) ([]models.PointOfInterest, error) {
	query := `
		SELECT id, name, category, latitude, longitude
		FROM points_of_interest
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pois []models.PointOfInterest
	for rows.Next() {
		var p models.PointOfInterest
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Category,
			&p.Coordinates.Latitude,
			&p.Coordinates.Longitude,
		)
		if err != nil {
			return nil, err
		}
		pois = append(pois, p)
	}

	return pois, rows.Err()
}
