package company

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caretrack/caretrack/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type companyRepoPG struct{ pool *pgxpool.Pool }

func NewCompanyRepoPG(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepoPG{pool: pool}
}

func (r *companyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const companyCols = `id, name, address_line, city, state, postal_code,
	contact_phone, contact_email, created_at, updated_at`

func (r *companyRepoPG) scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.AddressLine, &c.City, &c.State, &c.PostalCode,
		&c.ContactPhone, &c.ContactEmail, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *companyRepoPG) Create(ctx context.Context, c *Company) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO companies (name, address_line, city, state, postal_code, contact_phone, contact_email)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at`,
		c.Name, c.AddressLine, c.City, c.State, c.PostalCode, c.ContactPhone, c.ContactEmail).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *companyRepoPG) GetByID(ctx context.Context, id int64) (*Company, error) {
	return r.scanCompany(r.conn(ctx).QueryRow(ctx, `SELECT `+companyCols+` FROM companies WHERE id = $1`, id))
}

func (r *companyRepoPG) Update(ctx context.Context, c *Company) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE companies SET name=$2, address_line=$3, city=$4, state=$5, postal_code=$6,
			contact_phone=$7, contact_email=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.AddressLine, c.City, c.State, c.PostalCode, c.ContactPhone, c.ContactEmail).
		Scan(&c.UpdatedAt)
}

func (r *companyRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *companyRepoPG) List(ctx context.Context, limit, offset int) ([]*Company, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+companyCols+` FROM companies ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Company
	for rows.Next() {
		c, err := r.scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

const segmentCols = `id, name, company_id, created_at, updated_at`

func (r *companyRepoPG) scanSegment(row pgx.Row) (*Segment, error) {
	var s Segment
	err := row.Scan(&s.ID, &s.Name, &s.CompanyID, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *companyRepoPG) CreateSegment(ctx context.Context, s *Segment) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO segments (name, company_id) VALUES ($1,$2)
		RETURNING id, created_at, updated_at`,
		s.Name, s.CompanyID).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *companyRepoPG) GetSegmentByID(ctx context.Context, id int64) (*Segment, error) {
	return r.scanSegment(r.conn(ctx).QueryRow(ctx, `SELECT `+segmentCols+` FROM segments WHERE id = $1`, id))
}

func (r *companyRepoPG) UpdateSegment(ctx context.Context, s *Segment) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE segments SET name=$2, company_id=$3, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Name, s.CompanyID).Scan(&s.UpdatedAt)
}

func (r *companyRepoPG) DeleteSegment(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM segments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *companyRepoPG) ListSegments(ctx context.Context, companyID *int64) ([]*Segment, error) {
	query := `SELECT ` + segmentCols + ` FROM segments ORDER BY name`
	args := []interface{}{}
	if companyID != nil {
		query = `SELECT ` + segmentCols + ` FROM segments WHERE company_id = $1 ORDER BY name`
		args = append(args, *companyID)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Segment
	for rows.Next() {
		s, err := r.scanSegment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *companyRepoPG) ListSegmentIDsByCompany(ctx context.Context, companyID int64) ([]int64, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT id FROM segments WHERE company_id = $1`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
