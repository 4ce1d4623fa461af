package documents

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

type documentRepoPG struct{ pool *pgxpool.Pool }

func NewDocumentRepoPG(pool *pgxpool.Pool) DocumentRepository {
	return &documentRepoPG{pool: pool}
}

func (r *documentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const documentCols = `id, client_id, name, type, file_name, storage_key,
	content_type, size, segment_id, uploaded_by, created_at`

func (r *documentRepoPG) scanRow(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.ClientID, &d.Name, &d.Type, &d.FileName, &d.StorageKey,
		&d.ContentType, &d.Size, &d.SegmentID, &d.UploadedBy, &d.CreatedAt)
	return &d, err
}

func (r *documentRepoPG) Create(ctx context.Context, d *Document) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO documents (client_id, name, type, file_name, storage_key, content_type, size, segment_id, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at`,
		d.ClientID, d.Name, d.Type, d.FileName, d.StorageKey, d.ContentType, d.Size, d.SegmentID, d.UploadedBy).
		Scan(&d.ID, &d.CreatedAt)
}

func (r *documentRepoPG) GetByID(ctx context.Context, id int64) (*Document, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+documentCols+` FROM documents WHERE id = $1`, id))
}

func (r *documentRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *documentRepoPG) ListByClient(ctx context.Context, clientID int64, segmentIDs []int64) ([]*Document, error) {
	query := `SELECT ` + documentCols + ` FROM documents WHERE client_id = $1`
	args := []interface{}{clientID}
	if segmentIDs != nil {
		query += ` AND (segment_id IS NULL OR segment_id = ANY($2))`
		args = append(args, segmentIDs)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Document
	for rows.Next() {
		d, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *documentRepoPG) ExistsByClientAndFileName(ctx context.Context, clientID int64, fileName string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE client_id = $1 AND file_name = $2)`,
		clientID, fileName).Scan(&exists)
	return exists, err
}
