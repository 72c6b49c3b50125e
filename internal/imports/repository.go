package imports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) PortExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM ports WHERE code=$1)`, code).Scan(&exists)
	return exists, err
}

func (r *repository) CreatePort(ctx context.Context, port Port) error {
	_, err := r.db.Exec(ctx, `INSERT INTO ports (code, name, country) VALUES ($1,$2,$3)`,
		port.Code, port.Name, port.Country)
	return err
}

func (r *repository) AirportExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM airports WHERE code=$1)`, code).Scan(&exists)
	return exists, err
}

func (r *repository) CreateAirport(ctx context.Context, airport Airport) error {
	_, err := r.db.Exec(ctx, `INSERT INTO airports (code, name, city, country) VALUES ($1,$2,$3,$4)`,
		airport.Code, airport.Name, airport.City, airport.Country)
	return err
}
