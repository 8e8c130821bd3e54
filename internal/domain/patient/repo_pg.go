package patient

import (
	"context"
	"errors"
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

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, mrn, name, age, sex, date_of_birth, contact_email, contact_phone,
	medical_history, current_medications, allergies, created_at, updated_at`

func (r *patientRepoPG) scan(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.Name, &p.Age, &p.Sex, &p.DateOfBirth,
		&p.ContactEmail, &p.ContactPhone, &p.MedicalHistory, &p.CurrentMedications,
		&p.Allergies, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, mrn, name, age, sex, date_of_birth, contact_email,
			contact_phone, medical_history, current_medications, allergies)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		p.ID, p.MRN, p.Name, p.Age, p.Sex, p.DateOfBirth, p.ContactEmail,
		p.ContactPhone, p.MedicalHistory, p.CurrentMedications, p.Allergies,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET mrn=$2, name=$3, age=$4, sex=$5, date_of_birth=$6,
			contact_email=$7, contact_phone=$8, medical_history=$9,
			current_medications=$10, allergies=$11, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.MRN, p.Name, p.Age, p.Sex, p.DateOfBirth, p.ContactEmail,
		p.ContactPhone, p.MedicalHistory, p.CurrentMedications, p.Allergies,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return r.query(ctx, ``, nil, limit, offset)
}

func (r *patientRepoPG) Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	return r.query(ctx, ` WHERE name ILIKE $1 OR mrn ILIKE $1`, []interface{}{"%" + q + "%"}, limit, offset)
}

func (r *patientRepoPG) query(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient`+where+
			` ORDER BY name, created_at`+limitClause(n), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// limitClause numbers the LIMIT/OFFSET placeholders after n filter args.
func limitClause(n int) string {
	return " LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
}
