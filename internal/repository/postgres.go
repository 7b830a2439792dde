package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telhawk-systems/debugconsole/internal/database"
	"github.com/telhawk-systems/debugconsole/internal/models"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Connection pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// Ping checks database connectivity for health probes.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()
	return r.pool.Ping(ctx)
}

const eventColumns = `id, event_type, message, severity, source, user_id, username,
		       session_key, payload, occurred_at, created_at`

func (r *PostgresRepository) CreateEvent(ctx context.Context, event *models.DebugEvent) error {
	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate event id: %w", err)
	}

	payload := event.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO admin_debug_events (
			id, event_type, message, severity, source, user_id, username,
			session_key, payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	var createdAt time.Time
	err = r.pool.QueryRow(ctx, query,
		id, event.EventType, event.Message, event.Severity, event.Source,
		event.UserID, event.Username, event.SessionKey, payloadJSON, event.OccurredAt,
	).Scan(&createdAt)
	if err != nil {
		// string_data_right_truncation (22001) from the VARCHAR(64) columns
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "22001" {
			return fmt.Errorf("%w: %s", ErrValueTooLong, pgErr.Message)
		}
		return fmt.Errorf("failed to create debug event: %w", err)
	}

	event.ID = id.String()
	event.CreatedAt = createdAt
	return nil
}

func (r *PostgresRepository) GetEvent(ctx context.Context, id string) (*models.DebugEvent, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrEventNotFound
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	query := `SELECT ` + eventColumns + ` FROM admin_debug_events WHERE id = $1`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get debug event: %w", err)
	}
	return event, nil
}

func (r *PostgresRepository) ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.DebugEvent, int, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	where, args := buildWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM admin_debug_events` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count debug events: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM admin_debug_events%s
		ORDER BY occurred_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, eventColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list debug events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.DebugEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan debug event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating debug events: %w", err)
	}

	return events, total, nil
}

func (r *PostgresRepository) PurgeEvents(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := database.BulkContext(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM admin_debug_events WHERE occurred_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge debug events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func buildWhere(filter models.EventFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.Severity != "" {
		add("severity = $%d", filter.Severity)
	}
	if filter.Source != "" {
		add("source = $%d", filter.Source)
	}
	if filter.EventType != "" {
		add("event_type = $%d", filter.EventType)
	}
	if filter.Since != nil {
		add("occurred_at >= $%d", *filter.Since)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEvent(row pgx.Row) (*models.DebugEvent, error) {
	var event models.DebugEvent
	var payloadJSON []byte
	err := row.Scan(
		&event.ID, &event.EventType, &event.Message, &event.Severity, &event.Source,
		&event.UserID, &event.Username, &event.SessionKey, &payloadJSON,
		&event.OccurredAt, &event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Payload = map[string]interface{}{}
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}
	return &event, nil
}
