package enums

import "fmt"

// UploadStatus describes the lifecycle state of a video upload.
type UploadStatus string

const (
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusUploaded  UploadStatus = "uploaded"
	UploadStatusQueued    UploadStatus = "queued_for_transcoding"
	UploadStatusFailed    UploadStatus = "failed"
)

var validUploadStatuses = []UploadStatus{
	UploadStatusUploading,
	UploadStatusUploaded,
	UploadStatusQueued,
	UploadStatusFailed,
}

// String returns the literal string for the status.
func (u UploadStatus) String() string {
	return string(u)
}

// IsValid reports whether the status is known.
func (u UploadStatus) IsValid() bool {
	for _, candidate := range validUploadStatuses {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions may occur.
func (u UploadStatus) IsTerminal() bool {
	return u == UploadStatusQueued || u == UploadStatusFailed
}

// ParseUploadStatus converts raw input into an UploadStatus.
func ParseUploadStatus(value string) (UploadStatus, error) {
	for _, candidate := range validUploadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload status %q", value)
}
