package domain

import "time"

// UploadedFile is the metadata row for one stored blob.
type UploadedFile struct {
	ID          string
	ProjectID   string
	UserID      string // uploader
	Title       string
	Filename    string // original client filename
	Handle      string // blob storage key
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

// BlobDeletion records a storage delete that failed after its metadata was
// removed. Housekeeping retries it until the blob is gone.
type BlobDeletion struct {
	ID            string
	Handle        string
	Reason        string
	Attempts      int
	CreatedAt     time.Time
	LastAttemptAt *time.Time
}
