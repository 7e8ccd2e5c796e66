package cleanup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chameleon-backend/internal/models"

	"go.uber.org/zap"
)

type fakeUploadRepo struct {
	records     []*models.UploadRecord
	deleteErr   error
	deleteCalls int
}

func (r *fakeUploadRepo) Insert(record *models.UploadRecord) error {
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
	if len(ids) == 0 {
		return nil
	}
	r.deleteCalls++
	if r.deleteErr != nil {
		// Simulates a failed transaction: nothing is deleted.
		return r.deleteErr
	}
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

func addUpload(t *testing.T, repo *fakeUploadRepo, dir string, id int64, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, "upload_"+time.Now().Format("150405.000000000")+"_"+string(rune('a'+id)))
	if err := os.WriteFile(path, []byte("image bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	repo.records = append(repo.records, &models.UploadRecord{
		ID:        id,
		OwnerHash: "owner",
		Filename:  filepath.Base(path),
		Path:      path,
		CreatedAt: time.Now().Add(-age),
	})
	return path
}

func TestSweep_ReclaimsExpiredOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := &fakeUploadRepo{}
	oldPath := addUpload(t, repo, dir, 1, 2*time.Hour)
	freshPath := addUpload(t, repo, dir, 2, 30*time.Minute)

	cleaner := NewCleaner(repo, time.Hour, time.Hour, zap.NewNop())
	if err := cleaner.Sweep(time.Now()); err != nil {
		t.Fatalf("Sweep error: %v", err)
	}

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expired file still exists")
	}
	if _, err := os.Stat(freshPath); err != nil {
		t.Fatalf("fresh file was removed: %v", err)
	}
	if len(repo.records) != 1 || repo.records[0].ID != 2 {
		t.Fatalf("expected only the fresh record to remain, got %+v", repo.records)
	}
}

func TestSweep_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := &fakeUploadRepo{}
	addUpload(t, repo, dir, 1, 2*time.Hour)

	cleaner := NewCleaner(repo, time.Hour, time.Hour, zap.NewNop())
	if err := cleaner.Sweep(time.Now()); err != nil {
		t.Fatalf("first Sweep error: %v", err)
	}
	if err := cleaner.Sweep(time.Now()); err != nil {
		t.Fatalf("second Sweep error: %v", err)
	}

	if repo.deleteCalls != 1 {
		t.Fatalf("second sweep with nothing expired must be a no-op, got %d delete calls", repo.deleteCalls)
	}
}

func TestSweep_MissingFileStillRemovesRecord(t *testing.T) {
	t.Parallel()

	repo := &fakeUploadRepo{}
	repo.records = append(repo.records, &models.UploadRecord{
		ID:        1,
		OwnerHash: "owner",
		Filename:  "gone.png",
		Path:      filepath.Join(t.TempDir(), "gone.png"),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	})

	cleaner := NewCleaner(repo, time.Hour, time.Hour, zap.NewNop())
	if err := cleaner.Sweep(time.Now()); err != nil {
		t.Fatalf("Sweep error: %v", err)
	}
	if len(repo.records) != 0 {
		t.Fatalf("record for an already-absent file must still be removed")
	}
}

func TestSweep_UndeletableFileKeepsRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := &fakeUploadRepo{}

	// A non-empty directory cannot be removed with os.Remove, standing in
	// for an upload file that fails to delete.
	stubborn := filepath.Join(dir, "stubborn")
	if err := os.MkdirAll(filepath.Join(stubborn, "inner"), 0o755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}
	repo.records = append(repo.records, &models.UploadRecord{
		ID:        1,
		OwnerHash: "owner",
		Filename:  "stubborn",
		Path:      stubborn,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	})

	cleaner := NewCleaner(repo, time.Hour, time.Hour, zap.NewNop())
	if err := cleaner.Sweep(time.Now()); err != nil {
		t.Fatalf("Sweep error: %v", err)
	}

	if len(repo.records) != 1 {
		t.Fatalf("a record must never outlive its file: record was deleted while the file remains")
	}
}

func TestSweep_DatabaseFailurePropagates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := &fakeUploadRepo{deleteErr: errors.New("deadlock detected")}
	addUpload(t, repo, dir, 1, 2*time.Hour)

	cleaner := NewCleaner(repo, time.Hour, time.Hour, zap.NewNop())
	if err := cleaner.Sweep(time.Now()); err == nil {
		t.Fatalf("expected database failure to propagate for retry on the next tick")
	}
	if len(repo.records) != 1 {
		t.Fatalf("rolled-back sweep must leave records in place")
	}
}
