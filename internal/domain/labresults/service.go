package labresults

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medislot/medislot/internal/platform/blobstore"
)

type Service struct {
	reports ReportRepository
	blobs   blobstore.Store
	log     zerolog.Logger
}

func NewService(reports ReportRepository, blobs blobstore.Store, log zerolog.Logger) *Service {
	return &Service{reports: reports, blobs: blobs, log: log}
}

// UploadRequest carries one report file and its metadata.
type UploadRequest struct {
	PatientID   uuid.UUID
	TestName    string
	FileName    string
	ContentType string
	Note        string
	Content     io.Reader
	UploadedBy  uuid.UUID
}

// Upload stores the file content and records the report metadata. Identical
// content uploaded for two patients shares one blob.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*LabReport, error) {
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if req.TestName == "" {
		return nil, fmt.Errorf("test_name is required")
	}
	if req.FileName == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if !AllowedContentType(req.ContentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, req.ContentType)
	}

	hash, size, err := s.blobs.Put(ctx, req.Content)
	if err != nil {
		return nil, err
	}

	report := &LabReport{
		PatientID:   req.PatientID,
		TestName:    req.TestName,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   size,
		ContentHash: hash,
		Note:        req.Note,
		UploadedBy:  req.UploadedBy,
		UploadedAt:  time.Now().UTC(),
	}
	// A failed insert can leave a blob with no metadata row; it is
	// reclaimed when the last report sharing its hash is deleted.
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("report_id", report.ID.String()).
		Str("patient_id", report.PatientID.String()).
		Int64("size", size).
		Msg("lab report uploaded")
	return report, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*LabReport, error) {
	return s.reports.GetByID(ctx, id)
}

// Download returns the report metadata and a reader over its content. The
// caller owns closing the reader.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (*LabReport, io.ReadCloser, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, report.ContentHash)
	if err != nil {
		s.log.Error().Err(err).Str("report_id", id.String()).Msg("report content missing from blob store")
		return nil, nil, err
	}
	return report, rc, nil
}

func (s *Service) List(ctx context.Context, params map[string]string, limit, offset int) ([]*LabReport, int, error) {
	for _, key := range []string{"from", "to"} {
		if v, ok := params[key]; ok {
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				if _, err := time.Parse("2006-01-02", v); err != nil {
					return nil, 0, fmt.Errorf("%w: %s date %q", ErrInvalidFilter, key, v)
				}
			}
		}
	}
	return s.reports.List(ctx, params, limit, offset)
}

// Delete removes the metadata record, and the underlying blob once no other
// report references the same content.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		return err
	}

	n, err := s.reports.CountByHash(ctx, report.ContentHash)
	if err == nil && n == 0 {
		if err := s.blobs.Delete(ctx, report.ContentHash); err != nil {
			s.log.Warn().Err(err).Str("hash", report.ContentHash).Msg("blob cleanup failed")
		}
	}
	return nil
}
