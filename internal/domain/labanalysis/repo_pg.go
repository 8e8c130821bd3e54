package labanalysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KyaptainJoyboy/Galpal/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type analysisRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &analysisRepoPG{pool: pool}
}

func (r *analysisRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// begin opens a transaction on the request connection, nesting as a
// savepoint when one is already open.
func (r *analysisRepoPG) begin(ctx context.Context) (context.Context, pgx.Tx, error) {
	if tx := db.TxFromContext(ctx); tx != nil {
		nested, err := tx.Begin(ctx)
		if err != nil {
			return ctx, nil, err
		}
		return db.ContextWithTx(ctx, nested), nested, nil
	}
	if db.ConnFromContext(ctx) != nil {
		return db.WithTx(ctx)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return db.ContextWithTx(ctx, tx), tx, nil
}

const analysisCols = `a.id, a.patient_id, a.fluid_type, a.test_date, a.metrics, a.egfr,
	a.summary, a.risks, a.advisories, a.citations, a.confidence, a.error, a.notes,
	a.analyzed_at, a.created_at,
	COALESCE((SELECT json_agg(json_build_object(
			'name', c.name, 'risk_level', c.risk_level,
			'explanation', c.explanation, 'source', c.source) ORDER BY c.position)
		FROM lab_condition c WHERE c.analysis_id = a.id), '[]'::json)`

func (r *analysisRepoPG) scan(row pgx.Row) (*Analysis, error) {
	var a Analysis
	err := row.Scan(&a.ID, &a.PatientID, &a.FluidType, &a.TestDate, &a.Metrics, &a.EGFR,
		&a.Summary, &a.Risks, &a.Advisories, &a.Citations, &a.Confidence, &a.Error, &a.Notes,
		&a.AnalyzedAt, &a.CreatedAt, &a.Conditions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *analysisRepoPG) Create(ctx context.Context, a *Analysis) error {
	ctx, tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	a.ID = uuid.New()
	err = tx.QueryRow(ctx, `
		INSERT INTO lab_analysis (id, patient_id, fluid_type, test_date, metrics, egfr,
			summary, risks, advisories, citations, confidence, error, notes, analyzed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at`,
		a.ID, a.PatientID, a.FluidType, a.TestDate, a.Metrics, a.EGFR,
		a.Summary, a.Risks, a.Advisories, a.Citations, a.Confidence, a.Error, a.Notes, a.AnalyzedAt,
	).Scan(&a.CreatedAt)
	if err != nil {
		return err
	}

	for i, c := range a.Conditions {
		_, err := tx.Exec(ctx, `
			INSERT INTO lab_condition (id, analysis_id, patient_id, position, name, risk_level,
				explanation, source, test_date)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			uuid.New(), a.ID, a.PatientID, i, c.Name, c.RiskLevel, c.Explanation, c.Source, a.TestDate)
		if err != nil {
			return fmt.Errorf("insert condition %q: %w", c.Name, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *analysisRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+analysisCols+` FROM lab_analysis a WHERE a.id = $1`, id))
}

func (r *analysisRepoPG) List(ctx context.Context, limit, offset int) ([]*Analysis, int, error) {
	return r.query(ctx, ``, nil, limit, offset)
}

func (r *analysisRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Analysis, int, error) {
	return r.query(ctx, ` WHERE a.patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *analysisRepoPG) query(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Analysis, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_analysis a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+analysisCols+` FROM lab_analysis a`+where+
			` ORDER BY a.test_date DESC, a.created_at DESC`+limitClause(n), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Analysis
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *analysisRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM lab_analysis WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *analysisRepoPG) ListConditions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ConditionRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM lab_condition WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT c.analysis_id, c.patient_id, a.fluid_type, c.test_date, c.name, c.risk_level,
			c.explanation, c.source, c.created_at
		FROM lab_condition c JOIN lab_analysis a ON a.id = c.analysis_id
		WHERE c.patient_id = $1
		ORDER BY c.test_date DESC, c.created_at DESC, c.position`+limitClause(1),
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ConditionRecord
	for rows.Next() {
		var c ConditionRecord
		if err := rows.Scan(&c.AnalysisID, &c.PatientID, &c.FluidType, &c.TestDate, &c.Name,
			&c.RiskLevel, &c.Explanation, &c.Source, &c.DetectedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &c)
	}
	return items, total, rows.Err()
}

func limitClause(n int) string {
	return " LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
}
