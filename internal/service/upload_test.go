package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chameleon-backend/internal/models"

	"go.uber.org/zap"
)

type fakeUploadRepo struct {
	records   []*models.UploadRecord
	insertErr error
	nextID    int64
}

func (r *fakeUploadRepo) Insert(record *models.UploadRecord) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.nextID++
	record.ID = r.nextID
	record.CreatedAt = time.Now()
	r.records = append(r.records, record)
	return nil
}

func (r *fakeUploadRepo) SelectExpired(cutoff time.Time) ([]*models.UploadRecord, error) {
	var expired []*models.UploadRecord
	for _, record := range r.records {
		if record.CreatedAt.Before(cutoff) {
			expired = append(expired, record)
		}
	}
	return expired, nil
}

func (r *fakeUploadRepo) DeleteBatch(ids []int64) error {
	keep := r.records[:0]
	for _, record := range r.records {
		deleted := false
		for _, id := range ids {
			if record.ID == id {
				deleted = true
				break
			}
		}
		if !deleted {
			keep = append(keep, record)
		}
	}
	r.records = keep
	return nil
}

func newTestUploads(t *testing.T) (Uploads, *fakeUploadRepo, string) {
	t.Helper()
	root := t.TempDir()
	repo := &fakeUploadRepo{}
	return NewUploads(root, []string{"png", "jpg", "jpeg"}, repo, zap.NewNop()), repo, root
}

func TestAccept_RejectsDisallowedExtension(t *testing.T) {
	t.Parallel()

	uploads, _, root := newTestUploads(t)

	for _, name := range []string{"a.exe", "a.gif", "a", "a.png.sh"} {
		_, _, err := uploads.Accept(strings.NewReader("payload"), name)
		if !errors.Is(err, ErrUnsupportedFileType) {
			t.Fatalf("%q: expected ErrUnsupportedFileType, got %v", name, err)
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rejected uploads must not leave files, found %d", len(entries))
	}
}

func TestAccept_StoresWithCollisionFreeName(t *testing.T) {
	t.Parallel()

	uploads, _, root := newTestUploads(t)

	nameA, pathA, err := uploads.Accept(strings.NewReader("first"), "a.png")
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	nameB, pathB, err := uploads.Accept(strings.NewReader("second"), "a.png")
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}

	if nameA == "a.png" || nameB == "a.png" {
		t.Fatalf("stored name must differ from the original")
	}
	if nameA == nameB {
		t.Fatalf("repeated uploads of the same name must not collide: %q", nameA)
	}

	for path, want := range map[string]string{pathA: "first", pathB: "second"} {
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("stored file missing: %v", err)
		}
		if string(got) != want {
			t.Fatalf("stored content mismatch: got %q want %q", got, want)
		}
		if filepath.Dir(path) != root {
			t.Fatalf("file stored outside the storage root: %s", path)
		}
	}
}

func TestAccept_SanitizesOriginalName(t *testing.T) {
	t.Parallel()

	uploads, _, root := newTestUploads(t)

	name, path, err := uploads.Accept(strings.NewReader("x"), "../../etc/pass wd$.png")
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if strings.ContainsAny(name, "/\\$ ") {
		t.Fatalf("stored name not sanitized: %q", name)
	}
	if filepath.Dir(path) != root {
		t.Fatalf("sanitized upload escaped the storage root: %s", path)
	}
}

func TestRecord_PersistsOwnership(t *testing.T) {
	t.Parallel()

	uploads, repo, _ := newTestUploads(t)

	if err := uploads.Record("owner-hash", "stored.png", "/tmp/stored.png"); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	if len(repo.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(repo.records))
	}
	record := repo.records[0]
	if record.OwnerHash != "owner-hash" || record.Filename != "stored.png" || record.Path != "/tmp/stored.png" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.CreatedAt.IsZero() {
		t.Fatalf("record must carry a creation timestamp")
	}
}

func TestRecord_PropagatesRepositoryError(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	repo := &fakeUploadRepo{insertErr: errors.New("connection reset")}
	uploads := NewUploads(root, []string{"png"}, repo, zap.NewNop())

	if err := uploads.Record("owner-hash", "stored.png", "/tmp/stored.png"); err == nil {
		t.Fatalf("expected error from repository, got nil")
	}
}
