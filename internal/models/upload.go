package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UploadRecord tracks an accepted image upload. Record and backing file
// share a lifecycle: both are reclaimed together once CreatedAt falls past
// the retention window.
type UploadRecord struct {
	ID        int64     `db:"id"`
	OwnerHash string    `db:"owner_hash"`
	Filename  string    `db:"filename"`
	Path      string    `db:"path"`
	CreatedAt time.Time `db:"created_at"`
}

// Claims defines the structure of the session JWT claims. SubjectHash is the
// sole authorization key; DisplayHandle is informational only.
type Claims struct {
	SubjectHash   string `json:"identifier"`
	DisplayHandle string `json:"github_login"`
	jwt.RegisteredClaims
}
