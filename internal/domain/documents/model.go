// Package documents manages uploaded file metadata and the blob content
// behind it. Files a client uploads are limited to 5 MB and a small
// extension whitelist; the filename is unique per client.
package documents

import "time"

// MaxUploadSize caps a single uploaded file.
const MaxUploadSize = 5 * 1024 * 1024

// Extensions accepted for upload, lowercased including the dot.
var allowedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true,
	".jpg": true, ".jpeg": true, ".png": true,
}

// Document maps to the documents table.
type Document struct {
	ID          int64     `db:"id" json:"id"`
	ClientID    int64     `db:"client_id" json:"clientId"`
	Name        string    `db:"name" json:"name"`
	Type        *string   `db:"type" json:"type,omitempty"`
	FileName    string    `db:"file_name" json:"fileName"`
	StorageKey  string    `db:"storage_key" json:"-"`
	ContentType string    `db:"content_type" json:"contentType"`
	Size        int64     `db:"size" json:"size"`
	SegmentID   *int64    `db:"segment_id" json:"segmentId,omitempty"`
	UploadedBy  *int64    `db:"uploaded_by" json:"uploadedBy,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
