package repository

import (
	"time"

	"chameleon-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// UploadRepository is the only mutable shared state in the gateway. Records
// are inserted by the request that owns them and deleted only by the
// retention sweep, so no cross-request locking is needed; DeleteBatch runs
// in a single transaction so a failed sweep leaves every record in place.
type UploadRepository interface {
	Insert(record *models.UploadRecord) error
	SelectExpired(cutoff time.Time) ([]*models.UploadRecord, error)
	DeleteBatch(ids []int64) error
}

type uploadRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewUploadRepository(db *sqlx.DB, log *logrus.Logger) UploadRepository {
	return &uploadRepository{db: db, log: log}
}

func (r *uploadRepository) Insert(record *models.UploadRecord) error {
	query := `INSERT INTO image_uploads (owner_hash, filename, path) VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.db.QueryRowx(query, record.OwnerHash, record.Filename, record.Path).StructScan(record)
}

func (r *uploadRepository) SelectExpired(cutoff time.Time) ([]*models.UploadRecord, error) {
	var records []*models.UploadRecord
	query := `SELECT id, owner_hash, filename, path, created_at FROM image_uploads WHERE created_at < $1`
	err := r.db.Select(&records, query, cutoff)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *uploadRepository) DeleteBatch(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}

	query := `DELETE FROM image_uploads WHERE id = ANY($1)`
	if _, err := tx.Exec(query, pq.Array(ids)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Errorf("Failed to roll back upload deletion: %v", rbErr)
		}
		return err
	}

	return tx.Commit()
}
