package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"heliowatch/internal/domain/models"
	domrepo "heliowatch/internal/domain/repository"
	applogger "heliowatch/pkg/logger"
)

// ReadingSchema creates the telemetry history table. Statements are
// idempotent and run through pkg/clickhouse InitSchema at startup.
func ReadingSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ts         DateTime64(3, 'UTC'),
            instrument LowCardinality(String),
            value      Float64,
            source     LowCardinality(String)
        )
        ENGINE = MergeTree()
        PARTITION BY toYYYYMMDD(ts)
        ORDER BY (instrument, ts)
        TTL toDateTime(ts) + INTERVAL 90 DAY
    `, table)}
}

// ClickHouseReadingStore implements Storage over the readings table.
type ClickHouseReadingStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseReadingStore creates the store.
func NewClickHouseReadingStore(db *sql.DB, table string) *ClickHouseReadingStore {
	return &ClickHouseReadingStore{db: db, table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseReadingStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseReadingStore) Store(ctx context.Context, r *models.InstrumentReading) error {
	if r == nil {
		return fmt.Errorf("reading is nil")
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, instrument, value, source) VALUES (?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q, r.Timestamp, string(r.Instrument), r.Value, "groundlink")
	if err != nil {
		s.logErr("store reading", err)
	}
	return err
}

func (s *ClickHouseReadingStore) StoreBatch(ctx context.Context, readings []*models.InstrumentReading) error {
	if len(readings) == 0 {
		return nil
	}
	// multi-row VALUES in chunks to cut round-trips
	const chunkSize = 2000
	for start := 0; start < len(readings); start += chunkSize {
		end := start + chunkSize
		if end > len(readings) {
			end = len(readings)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, r := range readings[start:end] {
			if r == nil || r.Instrument == "" || r.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, r.Timestamp, string(r.Instrument), r.Value, "groundlink")
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, instrument, value, source) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.logErr("store batch", err)
			return err
		}
	}
	return nil
}

func (s *ClickHouseReadingStore) Query(ctx context.Context, id models.Instrument, from, to time.Time, limit int) ([]*models.InstrumentReading, error) {
	q := fmt.Sprintf(`
        SELECT instrument, ts, value FROM %s
        WHERE instrument = ? AND ts >= ? AND ts <= ?
        ORDER BY ts DESC LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, string(id), from, to, limit)
	if err != nil {
		s.logErr("query readings", err)
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

func (s *ClickHouseReadingStore) GetLatestN(ctx context.Context, id models.Instrument, n int) ([]*models.InstrumentReading, error) {
	q := fmt.Sprintf(`
        SELECT instrument, ts, value FROM %s
        WHERE instrument = ?
        ORDER BY ts DESC LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, string(id), n)
	if err != nil {
		s.logErr("latest readings", err)
		return nil, fmt.Errorf("latest readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

func (s *ClickHouseReadingStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseReadingStore) Close() error {
	return nil // pool owned by pkg/clickhouse client
}

func scanReadings(rows *sql.Rows) ([]*models.InstrumentReading, error) {
	var out []*models.InstrumentReading
	for rows.Next() {
		var r models.InstrumentReading
		var ins string
		if err := rows.Scan(&ins, &r.Timestamp, &r.Value); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Instrument = models.Instrument(ins)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *ClickHouseReadingStore) logErr(op string, err error) {
	if s.l != nil {
		s.l.Error("clickhouse "+op, applogger.Error(err))
	}
}

var _ domrepo.Storage = (*ClickHouseReadingStore)(nil)
