package careservice

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

type clientServiceRepoPG struct{ pool *pgxpool.Pool }

func NewClientServiceRepoPG(pool *pgxpool.Pool) ClientServiceRepository {
	return &clientServiceRepoPG{pool: pool}
}

func (r *clientServiceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const clientServiceCols = `id, client_id, service_category, service_type, service_provider,
	master_data_id, schedule_days, hours_per_week, status, segment_id, created_at, updated_at`

func (r *clientServiceRepoPG) scanRow(row pgx.Row) (*ClientService, error) {
	var cs ClientService
	err := row.Scan(&cs.ID, &cs.ClientID, &cs.ServiceCategory, &cs.ServiceType, &cs.ServiceProvider,
		&cs.MasterDataID, &cs.ScheduleDays, &cs.HoursPerWeek, &cs.Status, &cs.SegmentID,
		&cs.CreatedAt, &cs.UpdatedAt)
	return &cs, err
}

func (r *clientServiceRepoPG) Create(ctx context.Context, cs *ClientService) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO client_services (client_id, service_category, service_type, service_provider,
			master_data_id, schedule_days, hours_per_week, status, segment_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		cs.ClientID, cs.ServiceCategory, cs.ServiceType, cs.ServiceProvider,
		cs.MasterDataID, cs.ScheduleDays, cs.HoursPerWeek, cs.Status, cs.SegmentID).
		Scan(&cs.ID, &cs.CreatedAt, &cs.UpdatedAt)
}

func (r *clientServiceRepoPG) GetByID(ctx context.Context, id int64) (*ClientService, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+clientServiceCols+` FROM client_services WHERE id = $1`, id))
}

func (r *clientServiceRepoPG) Update(ctx context.Context, cs *ClientService) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE client_services SET service_category=$2, service_type=$3, service_provider=$4,
			master_data_id=$5, schedule_days=$6, hours_per_week=$7, segment_id=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		cs.ID, cs.ServiceCategory, cs.ServiceType, cs.ServiceProvider,
		cs.MasterDataID, cs.ScheduleDays, cs.HoursPerWeek, cs.SegmentID).Scan(&cs.UpdatedAt)
}

func (r *clientServiceRepoPG) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE client_services SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *clientServiceRepoPG) List(ctx context.Context, f ListFilter) ([]*ClientService, int, error) {
	var clauses []string
	var args []interface{}

	if f.SegmentIDs != nil {
		args = append(args, f.SegmentIDs)
		clauses = append(clauses, fmt.Sprintf("(segment_id IS NULL OR segment_id = ANY($%d))", len(args)))
	}
	if f.ClientID != nil {
		args = append(args, *f.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM client_services`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM client_services%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		clientServiceCols, where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ClientService
	for rows.Next() {
		cs, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cs)
	}
	return items, total, rows.Err()
}

func (r *clientServiceRepoPG) CreateCaseNote(ctx context.Context, note *ServiceCaseNote) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO service_case_notes (client_service_id, note, created_by)
		VALUES ($1,$2,$3)
		RETURNING id, created_at`,
		note.ClientServiceID, note.Note, note.CreatedBy).
		Scan(&note.ID, &note.CreatedAt)
}

func (r *clientServiceRepoPG) LinkCaseNoteDocument(ctx context.Context, caseNoteID, documentID int64) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO case_note_documents (case_note_id, document_id) VALUES ($1,$2)`,
		caseNoteID, documentID)
	return err
}

func (r *clientServiceRepoPG) ListCaseNotes(ctx context.Context, clientServiceID int64) ([]*ServiceCaseNote, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, client_service_id, note, created_by, created_at
		FROM service_case_notes WHERE client_service_id = $1
		ORDER BY created_at DESC`, clientServiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*ServiceCaseNote
	for rows.Next() {
		var n ServiceCaseNote
		if err := rows.Scan(&n.ID, &n.ClientServiceID, &n.Note, &n.CreatedBy, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, n := range notes {
		docs, err := r.conn(ctx).Query(ctx, `
			SELECT d.id, d.name, d.file_name
			FROM case_note_documents cnd
			JOIN documents d ON d.id = cnd.document_id
			WHERE cnd.case_note_id = $1`, n.ID)
		if err != nil {
			return nil, err
		}
		for docs.Next() {
			var link DocumentLink
			if err := docs.Scan(&link.ID, &link.Name, &link.FileName); err != nil {
				docs.Close()
				return nil, err
			}
			n.LinkedDocuments = append(n.LinkedDocuments, link)
		}
		if err := docs.Err(); err != nil {
			docs.Close()
			return nil, err
		}
		docs.Close()
	}
	return notes, nil
}
