package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akavalov/fairwatch/internal/domain"
)

// AlertStore persists fired alert events.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates an AlertStore backed by the given connection pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Insert appends one fired alert.
func (s *AlertStore) Insert(ctx context.Context, ev domain.AlertEvent) error {
	const query = `
		INSERT INTO alert_events
			(id, venue, instrument, last_price, reference_price, spread_pct,
			 direction, volume_24h, index_info, network_info, buy_limit_info, fired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		ev.ID, ev.Venue, ev.Instrument, ev.LastPrice, ev.ReferencePrice, ev.SpreadPct,
		string(ev.Direction), ev.Volume24h, ev.IndexInfo, ev.NetworkInfo, ev.BuyLimitInfo, ev.FiredAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert alert %s: %w", ev.Key(), err)
	}
	return nil
}

// ListRecent returns the latest fired alerts, newest first.
func (s *AlertStore) ListRecent(ctx context.Context, limit int) ([]domain.AlertEvent, error) {
	if limit <= 0 {
		limit = 10
	}

	const query = `
		SELECT id, venue, instrument, last_price, reference_price, spread_pct,
		       direction, volume_24h, index_info, network_info, buy_limit_info, fired_at
		FROM alert_events
		ORDER BY fired_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts: %w", err)
	}
	defer rows.Close()

	var events []domain.AlertEvent
	for rows.Next() {
		var ev domain.AlertEvent
		var direction string
		if err := rows.Scan(
			&ev.ID, &ev.Venue, &ev.Instrument, &ev.LastPrice, &ev.ReferencePrice, &ev.SpreadPct,
			&direction, &ev.Volume24h, &ev.IndexInfo, &ev.NetworkInfo, &ev.BuyLimitInfo, &ev.FiredAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan alert: %w", err)
		}
		ev.Direction = domain.Direction(direction)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list alerts: %w", err)
	}
	return events, nil
}
