package upload

import (
	"strings"
	"time"

	"github.com/streamhive/upload-service/internal/probe"
	"github.com/streamhive/upload-service/pkg/enums"
)

// Request is the fully-validated, decoded upload job handed to the engine.
// It is immutable once constructed; the payload is read-only for the
// pipeline's lifetime.
type Request struct {
	UploadID         string
	UserID           string
	Username         string
	OriginalFilename string
	FileExtension    string
	DeclaredMimeType string
	FileSizeBytes    int64
	Payload          []byte

	Title       string
	Description string
	Tags        string
	IsPrivate   bool
	Category    enums.VideoCategory
}

// Record is the status-store entry for one upload. Updates are merges, never
// full overwrites, so fields recorded by earlier stages survive later
// failures.
type Record struct {
	UploadID      string             `json:"upload_id"`
	UserID        string             `json:"user_id"`
	Status        enums.UploadStatus `json:"status"`
	Progress      int                `json:"progress"`
	Title         string             `json:"title"`
	RawVideoPath  string             `json:"raw_video_path,omitempty"`
	ContainerName string             `json:"container_name,omitempty"`
	BlobURL       string             `json:"blob_url,omitempty"`
	MediaInfo     *probe.MediaInfo   `json:"media_info,omitempty"`
	QualityLevel  string             `json:"quality_level,omitempty"`
	Error         string             `json:"error,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Patch is a partial Record update. Nil fields are left untouched by merge.
type Patch struct {
	Status        *enums.UploadStatus
	Progress      *int
	RawVideoPath  *string
	ContainerName *string
	BlobURL       *string
	MediaInfo     *probe.MediaInfo
	QualityLevel  *string
	Error         *string
}

func (r *Record) apply(patch Patch, now time.Time) {
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.Progress != nil {
		r.Progress = *patch.Progress
	}
	if patch.RawVideoPath != nil {
		r.RawVideoPath = *patch.RawVideoPath
	}
	if patch.ContainerName != nil {
		r.ContainerName = *patch.ContainerName
	}
	if patch.BlobURL != nil {
		r.BlobURL = *patch.BlobURL
	}
	if patch.MediaInfo != nil {
		r.MediaInfo = patch.MediaInfo
	}
	if patch.QualityLevel != nil {
		r.QualityLevel = *patch.QualityLevel
	}
	if patch.Error != nil {
		r.Error = *patch.Error
	}
	r.UpdatedAt = now
}

func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.MediaInfo != nil {
		info := *r.MediaInfo
		out.MediaInfo = &info
	}
	return &out
}

// Receipt is the immediate acknowledgment returned to the caller of Submit.
type Receipt struct {
	UploadID                       string             `json:"upload_id"`
	Status                         enums.UploadStatus `json:"status"`
	EstimatedProcessingTimeSeconds int                `json:"estimated_processing_time_seconds"`
}

// UploadedEvent is the canonical payload announcing a stored raw video to the
// transcoding queue.
type UploadedEvent struct {
	UploadID         string   `json:"upload_id"`
	UserID           string   `json:"user_id"`
	Username         string   `json:"username"`
	OriginalFilename string   `json:"original_filename"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	IsPrivate        bool     `json:"is_private"`
	Category         string   `json:"category"`
	RawVideoPath     string   `json:"raw_video_path"`
	ContainerName    string   `json:"container_name"`
	BlobURL          string   `json:"blob_url"`
}

// NormalizeTags splits a comma-delimited tag string into trimmed, non-empty
// tokens. An empty input yields an empty slice, never nil, so the event
// payload always carries a JSON array.
func NormalizeTags(raw string) []string {
	tags := []string{}
	for _, token := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(token); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

// StorageKey derives the deterministic raw-object key for an upload.
func StorageKey(userID, uploadID, fileExtension string) string {
	return "raw/" + userID + "/" + uploadID + fileExtension
}

func ptr[T any](v T) *T {
	return &v
}
