package masterdata

import (
	"context"
	"errors"
	"strconv"

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

type masterDataRepoPG struct{ pool *pgxpool.Pool }

func NewMasterDataRepoPG(pool *pgxpool.Pool) MasterDataRepository {
	return &masterDataRepoPG{pool: pool}
}

func (r *masterDataRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const masterDataCols = `id, service_category, service_type, service_provider,
	segment_id, active, created_at, updated_at`

func (r *masterDataRepoPG) scanRow(row pgx.Row) (*MasterData, error) {
	var md MasterData
	err := row.Scan(&md.ID, &md.ServiceCategory, &md.ServiceType, &md.ServiceProvider,
		&md.SegmentID, &md.Active, &md.CreatedAt, &md.UpdatedAt)
	return &md, err
}

func (r *masterDataRepoPG) Create(ctx context.Context, md *MasterData) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO master_data (service_category, service_type, service_provider, segment_id, active)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		md.ServiceCategory, md.ServiceType, md.ServiceProvider, md.SegmentID, md.Active).
		Scan(&md.ID, &md.CreatedAt, &md.UpdatedAt)
}

func (r *masterDataRepoPG) GetByID(ctx context.Context, id int64) (*MasterData, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+masterDataCols+` FROM master_data WHERE id = $1`, id))
}

func (r *masterDataRepoPG) Update(ctx context.Context, md *MasterData) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE master_data SET service_category=$2, service_type=$3, service_provider=$4,
			segment_id=$5, active=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		md.ID, md.ServiceCategory, md.ServiceType, md.ServiceProvider, md.SegmentID, md.Active).
		Scan(&md.UpdatedAt)
}

func (r *masterDataRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM master_data WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *masterDataRepoPG) List(ctx context.Context, segmentIDs []int64, limit, offset int) ([]*MasterData, int, error) {
	where := ``
	args := []interface{}{}
	if segmentIDs != nil {
		// Global rows are visible to every scoped caller.
		where = ` WHERE (segment_id IS NULL OR segment_id = ANY($1))`
		args = append(args, segmentIDs)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM master_data`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + masterDataCols + ` FROM master_data` + where +
		` ORDER BY service_category, service_type, service_provider` +
		` LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MasterData
	for rows.Next() {
		md, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, md)
	}
	return items, total, rows.Err()
}

func (r *masterDataRepoPG) FindActiveTriple(ctx context.Context, category, svcType, provider string, segmentID *int64) (*MasterData, error) {
	md, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `
		SELECT `+masterDataCols+` FROM master_data
		WHERE service_category = $1 AND service_type = $2 AND service_provider = $3
		  AND active
		  AND (segment_id IS NULL OR segment_id = $4)
		ORDER BY segment_id NULLS LAST
		LIMIT 1`,
		category, svcType, provider, segmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return md, nil
}

func (r *masterDataRepoPG) ListReferencingServices(ctx context.Context, id int64) ([]*ServiceRef, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT cs.id, COALESCE(pi.first_name || ' ' || pi.last_name, ''), cs.status
		FROM client_services cs
		JOIN master_data md ON md.id = $1
		LEFT JOIN person_info pi ON pi.id = cs.client_id
		WHERE cs.service_category = md.service_category
		  AND cs.service_type = md.service_type
		  AND cs.service_provider = md.service_provider
		  AND (md.segment_id IS NULL OR cs.segment_id = md.segment_id)`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []*ServiceRef
	for rows.Next() {
		var ref ServiceRef
		if err := rows.Scan(&ref.ServiceID, &ref.ClientName, &ref.Status); err != nil {
			return nil, err
		}
		refs = append(refs, &ref)
	}
	return refs, rows.Err()
}
