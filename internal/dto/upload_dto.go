package dto

import "github.com/google/uuid"

// UploadResponse describes a stored file.
type UploadResponse struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}
