// Package labresults manages lab result report files for patients. File
// content lives in a content-addressed blob store; this package keeps the
// per-patient metadata and enforces who may see which report.
package labresults

import (
	"time"

	"github.com/google/uuid"
)

// LabReport is the metadata record for one uploaded result file. Content is
// fetched from the blob store by ContentHash.
type LabReport struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	TestName    string    `db:"test_name" json:"test_name"`
	FileName    string    `db:"file_name" json:"file_name"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	ContentHash string    `db:"content_hash" json:"-"`
	Note        string    `db:"note" json:"note,omitempty"`
	UploadedBy  uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// allowedContentTypes lists the report formats centers may upload.
var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"text/csv":        true,
	"text/plain":      true,
}

func AllowedContentType(ct string) bool {
	return allowedContentTypes[ct]
}
