package client

import (
	"context"
	"fmt"
	"strings"

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

type personInfoRepoPG struct{ pool *pgxpool.Pool }

func NewPersonInfoRepoPG(pool *pgxpool.Pool) PersonInfoRepository {
	return &personInfoRepoPG{pool: pool}
}

func (r *personInfoRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const personInfoCols = `id, first_name, last_name, date_of_birth, gender, phone, email,
	address_line, city, state, postal_code,
	next_of_kin_name, next_of_kin_relation, next_of_kin_phone,
	hcp_level, hcp_start_date, status, segment_id, created_by, created_at, updated_at`

func (r *personInfoRepoPG) scanRow(row pgx.Row) (*PersonInfo, error) {
	var p PersonInfo
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender, &p.Phone, &p.Email,
		&p.AddressLine, &p.City, &p.State, &p.PostalCode,
		&p.NextOfKinName, &p.NextOfKinRelation, &p.NextOfKinPhone,
		&p.HCPLevel, &p.HCPStartDate, &p.Status, &p.SegmentID, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *personInfoRepoPG) Create(ctx context.Context, p *PersonInfo) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO person_info (first_name, last_name, date_of_birth, gender, phone, email,
			address_line, city, state, postal_code,
			next_of_kin_name, next_of_kin_relation, next_of_kin_phone,
			hcp_level, hcp_start_date, status, segment_id, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING id, created_at, updated_at`,
		p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.Phone, p.Email,
		p.AddressLine, p.City, p.State, p.PostalCode,
		p.NextOfKinName, p.NextOfKinRelation, p.NextOfKinPhone,
		p.HCPLevel, p.HCPStartDate, p.Status, p.SegmentID, p.CreatedBy).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *personInfoRepoPG) GetByID(ctx context.Context, id int64) (*PersonInfo, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+personInfoCols+` FROM person_info WHERE id = $1`, id))
}

func (r *personInfoRepoPG) Update(ctx context.Context, p *PersonInfo) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE person_info SET first_name=$2, last_name=$3, date_of_birth=$4, gender=$5,
			phone=$6, email=$7, address_line=$8, city=$9, state=$10, postal_code=$11,
			next_of_kin_name=$12, next_of_kin_relation=$13, next_of_kin_phone=$14,
			hcp_level=$15, hcp_start_date=$16, segment_id=$17, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.Phone, p.Email, p.AddressLine, p.City, p.State, p.PostalCode,
		p.NextOfKinName, p.NextOfKinRelation, p.NextOfKinPhone,
		p.HCPLevel, p.HCPStartDate, p.SegmentID).Scan(&p.UpdatedAt)
}

func (r *personInfoRepoPG) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE person_info SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *personInfoRepoPG) List(ctx context.Context, f ListFilter) ([]*PersonInfo, int, error) {
	var clauses []string
	var args []interface{}

	if f.SegmentIDs != nil {
		args = append(args, f.SegmentIDs)
		clauses = append(clauses, fmt.Sprintf("(segment_id IS NULL OR segment_id = ANY($%d))", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.SegmentID != nil {
		args = append(args, *f.SegmentID)
		clauses = append(clauses, fmt.Sprintf("segment_id = $%d", len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM person_info`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM person_info%s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		personInfoCols, where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PersonInfo
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
