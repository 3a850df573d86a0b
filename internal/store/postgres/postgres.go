// Package postgres stores slots in a parking_slots table reached through a
// pgx pool. State transitions are single conditional UPDATEs so concurrent
// writers can never both win the same slot.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/guregu/null.v4"

	"parking-occupancy/internal/parking"
)

//go:embed schema.sql
var schema string

type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Store struct {
	db Querier
}

func New(db Querier) *Store {
	return &Store{db: db}
}

// NewPool opens a traced pool and pings it, retrying with exponential backoff
// while the database comes up.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	dbName := "parking"
	if config.ConnConfig.Database != "" {
		dbName = config.ConnConfig.Database
	}
	config.ConnConfig.Tracer = otelpgx.NewTracer(
		otelpgx.WithTrimSQLInSpanName(),
		otelpgx.WithDisableQuerySpanNamePrefix(),
		otelpgx.WithSpanNameFunc(func(stmt string) string {
			fields := strings.Fields(stmt)
			if len(fields) == 0 {
				return dbName
			}
			return dbName + " " + strings.ToUpper(fields[0])
		}),
	)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(5),
	)
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Seed inserts a free slot for each label that is not already present.
func (s *Store) Seed(ctx context.Context, labels []string) error {
	for _, label := range labels {
		_, err := s.db.Exec(ctx,
			`INSERT INTO parking_slots (slot_number) VALUES ($1) ON CONFLICT (slot_number) DO NOTHING`,
			label,
		)
		if err != nil {
			return fmt.Errorf("seed slot %s: %w", label, err)
		}
	}
	return nil
}

const slotColumns = `id, slot_number, occupied, vehicle_number, entry_time`

func (s *Store) ListSlots(ctx context.Context) ([]parking.Slot, error) {
	rows, err := s.db.Query(ctx, `SELECT `+slotColumns+` FROM parking_slots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var slots []parking.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
	}

	return slots, nil
}

func (s *Store) Occupy(ctx context.Context, slotID int, vehicleNumber string, entryTime time.Time) (parking.Slot, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE parking_slots
		SET occupied = TRUE, vehicle_number = $2, entry_time = $3, updated_at = NOW()
		WHERE id = $1 AND NOT occupied
		RETURNING `+slotColumns,
		slotID, vehicleNumber, entryTime.UTC(),
	)

	slot, err := scanSlot(row)
	if err == nil {
		return slot, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return parking.Slot{}, s.transitionError(ctx, slotID, parking.ErrSlotAlreadyOccupied)
	}
	return parking.Slot{}, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
}

func (s *Store) Release(ctx context.Context, slotID int) (parking.Slot, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE parking_slots
		SET occupied = FALSE, vehicle_number = NULL, entry_time = NULL, updated_at = NOW()
		WHERE id = $1 AND occupied
		RETURNING `+slotColumns,
		slotID,
	)

	slot, err := scanSlot(row)
	if err == nil {
		return slot, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return parking.Slot{}, s.transitionError(ctx, slotID, parking.ErrSlotNotOccupied)
	}
	return parking.Slot{}, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
}

// transitionError tells a missing row apart from a row in the wrong state
// after a conditional UPDATE matched nothing.
func (s *Store) transitionError(ctx context.Context, slotID int, conflict error) error {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM parking_slots WHERE id = $1)`, slotID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
	}
	if !exists {
		return parking.ErrSlotNotFound
	}
	return conflict
}

func scanSlot(row pgx.Row) (parking.Slot, error) {
	var (
		id            int
		number        string
		occupied      bool
		vehicleNumber null.String
		entryTime     null.Time
	)
	if err := row.Scan(&id, &number, &occupied, &vehicleNumber, &entryTime); err != nil {
		return parking.Slot{}, err
	}

	slot := parking.NewSlot(id, number)
	if occupied {
		// A row flagged occupied without an entry time keeps the zero time.
		slot = slot.Park(vehicleNumber.ValueOrZero(), entryTime.ValueOrZero().UTC())
	}
	return slot, nil
}
