package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/turtacn/EconSOM/internal/domain/observation"
	"github.com/turtacn/EconSOM/internal/infrastructure/database/postgres"
	"github.com/turtacn/EconSOM/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// observationFilter keeps rows the pipeline can use at all.  Sentinels such
// as "n/a" pass here and are rejected later by coercion.
const observationFilter = `
		WHERE o.value IS NOT NULL AND o.value != ''
		  AND o.country IS NOT NULL AND o.country != ''
		  AND o.year >= $1`

const fetchObservationsQuery = `
		SELECT o.country, i.name AS indicator_name, i.category, o.value, o.year, i.unit
		FROM observations o
		JOIN indicators i ON o.indicator_id = i.id` + observationFilter + `
		ORDER BY o.country, i.name, o.year DESC`

const countObservationsQuery = `
		SELECT COUNT(*)
		FROM observations o
		JOIN indicators i ON o.indicator_id = i.id` + observationFilter

type postgresObservationRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

// ObservationRepository is the observation store backed by PostgreSQL.
type ObservationRepository interface {
	observation.Repository
	observation.Importer
}

func NewPostgresObservationRepo(conn *postgres.Connection, log logging.Logger) ObservationRepository {
	return &postgresObservationRepo{
		conn:     conn,
		log:      log,
		executor: conn.DB(),
	}
}

func (r *postgresObservationRepo) FetchObservations(ctx context.Context, q observation.Query) ([]observation.Observation, error) {
	query := fetchObservationsQuery
	args := []interface{}{q.MinYear}
	if q.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, q.Limit)
	}

	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceQuery, "failed to fetch observations")
	}
	defer rows.Close()

	var out []observation.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDataSourceParseError, "failed to scan observation")
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceQuery, "failed to iterate observations")
	}

	r.log.Debug("fetched observations",
		logging.Int("rows", len(out)),
		logging.Int("min_year", q.MinYear),
		logging.Int("limit", q.Limit))
	return out, nil
}

func (r *postgresObservationRepo) CountObservations(ctx context.Context, q observation.Query) (int64, error) {
	var n int64
	if err := r.executor.QueryRowContext(ctx, countObservationsQuery, q.MinYear).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDataSourceQuery, "failed to count observations")
	}
	return n, nil
}

// ImportObservations upserts rows in one transaction.  Indicators are
// created on first sight.  Rows without a country, indicator or year are
// skipped.
func (r *postgresObservationRepo) ImportObservations(ctx context.Context, rows []observation.Observation) (*observation.ImportStats, error) {
	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	txRepo := &postgresObservationRepo{conn: r.conn, log: r.log, executor: tx}

	stats, err := txRepo.importRows(ctx, rows)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}

	r.log.Info("imported observations",
		logging.Int("indicators", stats.Indicators),
		logging.Int("inserted", stats.Inserted),
		logging.Int("updated", stats.Updated),
		logging.Int("skipped", stats.Skipped))
	return stats, nil
}

func (r *postgresObservationRepo) importRows(ctx context.Context, rows []observation.Observation) (*observation.ImportStats, error) {
	stats := &observation.ImportStats{}
	ids := make(map[string]int)

	for _, o := range rows {
		country := strings.TrimSpace(o.Country)
		name := strings.TrimSpace(o.IndicatorName)
		if country == "" || name == "" || o.Year == 0 {
			stats.Skipped++
			continue
		}

		id, ok := ids[name]
		if !ok {
			var err error
			if id, err = r.upsertIndicator(ctx, name, o.Unit, o.Category); err != nil {
				return nil, err
			}
			ids[name] = id
			stats.Indicators++
		}

		var inserted bool
		err := r.executor.QueryRowContext(ctx, `
			INSERT INTO observations (indicator_id, country, year, value)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (indicator_id, country, year) DO UPDATE SET value = EXCLUDED.value
			RETURNING (xmax = 0)`,
			id, country, o.Year, storedValue(o.Value),
		).Scan(&inserted)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert observation").
				WithDetail(fmt.Sprintf("%s/%s/%d", country, name, o.Year))
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
	}
	return stats, nil
}

func (r *postgresObservationRepo) upsertIndicator(ctx context.Context, name, unit, category string) (int, error) {
	var id int
	err := r.executor.QueryRowContext(ctx, `
		INSERT INTO indicators (name, unit, category)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		ON CONFLICT (name) DO UPDATE SET
			unit = COALESCE(EXCLUDED.unit, indicators.unit),
			category = COALESCE(EXCLUDED.category, indicators.category)
		RETURNING id`,
		name, unit, category,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert indicator").WithDetail(name)
	}
	return id, nil
}

func (r *postgresObservationRepo) ListIndicators(ctx context.Context) ([]observation.Indicator, error) {
	rows, err := r.executor.QueryContext(ctx, `
		SELECT id, name, unit, category, tags
		FROM indicators
		ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceQuery, "failed to list indicators")
	}
	defer rows.Close()

	var out []observation.Indicator
	for rows.Next() {
		var (
			ind            observation.Indicator
			unit, category sql.NullString
			tags           []string
		)
		if err := rows.Scan(&ind.ID, &ind.Name, &unit, &category, pq.Array(&tags)); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDataSourceParseError, "failed to scan indicator")
		}
		ind.Unit, ind.Category, ind.Tags = unit.String, category.String, tags
		out = append(out, ind)
	}
	return out, rows.Err()
}

func scanObservation(s scanner) (observation.Observation, error) {
	var (
		o              observation.Observation
		category, unit sql.NullString
		value          sql.NullString
	)
	if err := s.Scan(&o.Country, &o.IndicatorName, &category, &value, &o.Year, &unit); err != nil {
		return o, err
	}
	o.Category, o.Unit = category.String, unit.String
	if value.Valid {
		o.Value = value.String
	}
	return o, nil
}

// storedValue renders a raw value for the TEXT column.  nil stays NULL.
func storedValue(v any) sql.NullString {
	switch x := v.(type) {
	case nil:
		return sql.NullString{}
	case string:
		return sql.NullString{String: x, Valid: true}
	case float64:
		return sql.NullString{String: strconv.FormatFloat(x, 'g', -1, 64), Valid: true}
	case float32:
		return sql.NullString{String: strconv.FormatFloat(float64(x), 'g', -1, 32), Valid: true}
	case int:
		return sql.NullString{String: strconv.Itoa(x), Valid: true}
	case int64:
		return sql.NullString{String: strconv.FormatInt(x, 10), Valid: true}
	case json.Number:
		return sql.NullString{String: x.String(), Valid: true}
	}
	return sql.NullString{String: fmt.Sprint(v), Valid: true}
}

//Personal.AI order the ending
