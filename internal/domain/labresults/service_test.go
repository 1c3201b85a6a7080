package labresults

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medislot/medislot/internal/platform/blobstore"
)

type mockReportRepo struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*LabReport
	seq     int64
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{reports: make(map[uuid.UUID]*LabReport)}
}

func (m *mockReportRepo) Create(_ context.Context, r *LabReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	m.seq++
	r.UploadedAt = time.Unix(m.seq, 0).UTC()
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *mockReportRepo) GetByID(_ context.Context, id uuid.UUID) (*LabReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockReportRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *mockReportRepo) List(_ context.Context, params map[string]string, limit, offset int) ([]*LabReport, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []*LabReport{}
	for _, r := range m.reports {
		if p, ok := params["patient"]; ok && r.PatientID.String() != p {
			continue
		}
		if q, ok := params["q"]; ok {
			lq := strings.ToLower(q)
			if !strings.Contains(strings.ToLower(r.TestName), lq) &&
				!strings.Contains(strings.ToLower(r.FileName), lq) {
				continue
			}
		}
		if f, ok := params["from"]; ok {
			if t := parseTestTime(f); r.UploadedAt.Before(t) {
				continue
			}
		}
		if t, ok := params["to"]; ok {
			if bound := parseTestTime(t); r.UploadedAt.After(bound) {
				continue
			}
		}
		cp := *r
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UploadedAt.After(matched[j].UploadedAt)
	})

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *mockReportRepo) CountByHash(_ context.Context, hash string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reports {
		if r.ContentHash == hash {
			n++
		}
	}
	return n, nil
}

func parseTestTime(v string) time.Time {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02", v)
	return t
}

func newTestService() (*Service, *mockReportRepo, *blobstore.MemStore) {
	repo := newMockReportRepo()
	blobs := blobstore.NewMemStore()
	return NewService(repo, blobs, zerolog.Nop()), repo, blobs
}

func mustUpload(t *testing.T, svc *Service, patient uuid.UUID, testName, content string) *LabReport {
	t.Helper()
	report, err := svc.Upload(context.Background(), UploadRequest{
		PatientID:   patient,
		TestName:    testName,
		FileName:    testName + ".pdf",
		ContentType: "application/pdf",
		Content:     strings.NewReader(content),
		UploadedBy:  uuid.New(),
	})
	if err != nil {
		t.Fatalf("Upload(%s): %v", testName, err)
	}
	return report
}

func TestUploadAndDownload(t *testing.T) {
	svc, _, _ := newTestService()
	patient := uuid.New()

	report := mustUpload(t, svc, patient, "CBC Panel", "result body")
	if report.ID == uuid.Nil {
		t.Fatal("report id not assigned")
	}
	if report.SizeBytes != int64(len("result body")) {
		t.Errorf("SizeBytes = %d", report.SizeBytes)
	}
	if report.ContentHash == "" {
		t.Error("content hash not recorded")
	}

	got, rc, err := svc.Download(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	if got.TestName != "CBC Panel" {
		t.Errorf("TestName = %q", got.TestName)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "result body" {
		t.Errorf("content = %q", data)
	}
}

func TestUploadValidation(t *testing.T) {
	svc, _, _ := newTestService()

	cases := []struct {
		name string
		req  UploadRequest
	}{
		{"missing patient", UploadRequest{TestName: "CBC", FileName: "a.pdf", ContentType: "application/pdf", Content: strings.NewReader("x")}},
		{"missing test name", UploadRequest{PatientID: uuid.New(), FileName: "a.pdf", ContentType: "application/pdf", Content: strings.NewReader("x")}},
		{"missing file name", UploadRequest{PatientID: uuid.New(), TestName: "CBC", ContentType: "application/pdf", Content: strings.NewReader("x")}},
	}
	for _, tc := range cases {
		if _, err := svc.Upload(context.Background(), tc.req); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Upload(context.Background(), UploadRequest{
		PatientID:   uuid.New(),
		TestName:    "CBC",
		FileName:    "report.exe",
		ContentType: "application/octet-stream",
		Content:     strings.NewReader("x"),
	})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestSharedContentSurvivesSingleDelete(t *testing.T) {
	svc, _, blobs := newTestService()
	ctx := context.Background()

	a := mustUpload(t, svc, uuid.New(), "Lipid Profile", "identical bytes")
	b := mustUpload(t, svc, uuid.New(), "Lipid Profile", "identical bytes")
	if a.ContentHash != b.ContentHash {
		t.Fatal("identical content should share a hash")
	}

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete first: %v", err)
	}
	if _, err := blobs.Open(ctx, b.ContentHash); err != nil {
		t.Fatalf("blob should survive while another report references it: %v", err)
	}

	if err := svc.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete second: %v", err)
	}
	if _, err := blobs.Open(ctx, b.ContentHash); !errors.Is(err, blobstore.ErrBlobNotFound) {
		t.Errorf("blob should be reclaimed after last reference: err = %v", err)
	}
}

func TestDownloadMissing(t *testing.T) {
	svc, _, _ := newTestService()
	if _, _, err := svc.Download(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	svc, _, _ := newTestService()
	if err := svc.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	mustUpload(t, svc, alice, "CBC Panel", "a")
	mustUpload(t, svc, alice, "Lipid Profile", "b")
	mustUpload(t, svc, bob, "CBC Panel", "c")

	reports, total, err := svc.List(ctx, map[string]string{"patient": alice.String()}, 20, 0)
	if err != nil {
		t.Fatalf("List by patient: %v", err)
	}
	if total != 2 || len(reports) != 2 {
		t.Errorf("patient filter: total = %d, len = %d", total, len(reports))
	}

	_, total, err = svc.List(ctx, map[string]string{"q": "lipid"}, 20, 0)
	if err != nil {
		t.Fatalf("List by q: %v", err)
	}
	if total != 1 {
		t.Errorf("q filter: total = %d, want 1", total)
	}

	// Mock clock starts at the epoch, so everything is before year 2000.
	_, total, err = svc.List(ctx, map[string]string{"from": "2000-01-01"}, 20, 0)
	if err != nil {
		t.Fatalf("List by from: %v", err)
	}
	if total != 0 {
		t.Errorf("from filter: total = %d, want 0", total)
	}
	_, total, err = svc.List(ctx, map[string]string{"to": "2000-01-01"}, 20, 0)
	if err != nil {
		t.Fatalf("List by to: %v", err)
	}
	if total != 3 {
		t.Errorf("to filter: total = %d, want 3", total)
	}
}

func TestListRejectsBadDates(t *testing.T) {
	svc, _, _ := newTestService()
	if _, _, err := svc.List(context.Background(), map[string]string{"from": "yesterday"}, 20, 0); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("err = %v, want ErrInvalidFilter", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, _, _ := newTestService()
	patient := uuid.New()

	mustUpload(t, svc, patient, "First", "1")
	mustUpload(t, svc, patient, "Second", "2")

	reports, _, err := svc.List(context.Background(), nil, 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reports) != 2 || reports[0].TestName != "Second" {
		t.Errorf("expected newest first, got %+v", reports)
	}
}
