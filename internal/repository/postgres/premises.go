package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
)

const premiseColumns = `id, name, location, latitude, longitude, image, price,
	available, total, features, rating, description`

type PremiseRepo struct {
	pool Pool
	db   DB
}

func (r *PremiseRepo) With(db DB) *PremiseRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *PremiseRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// GetPremise retrieves a premise by its ID.
//
// Returns:
//   - *domain.Premise: the premise when found.
//   - error: repository.ErrNotFound if the premise is not found.
func (r *PremiseRepo) GetPremise(ctx context.Context, id int64) (*domain.Premise, error) {
	const op = "postgresrepo.PremiseRepo.GetPremise"

	p, err := scanPremise(r.handle().QueryRow(ctx,
		`SELECT `+premiseColumns+`
		 FROM premises WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

// ListPremises lists premises ordered by ID.
func (r *PremiseRepo) ListPremises(ctx context.Context, limit, offset int) ([]domain.Premise, error) {
	const op = "postgresrepo.PremiseRepo.ListPremises"

	rows, err := r.handle().Query(ctx,
		`SELECT `+premiseColumns+`
		 FROM premises
		 ORDER BY id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.Premise{}
	for rows.Next() {
		p, err := scanPremise(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanPremise(row pgx.Row) (*domain.Premise, error) {
	var p domain.Premise

	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Location,
		&p.Latitude,
		&p.Longitude,
		&p.Image,
		&p.Price,
		&p.Available,
		&p.Total,
		&p.Features,
		&p.Rating,
		&p.Description,
	); err != nil {
		return nil, err
	}

	if p.Features == nil {
		p.Features = []string{}
	}

	return &p, nil
}
