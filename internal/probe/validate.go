package probe

// Policy thresholds for accepting a probed payload into the pipeline.
const (
	minDurationSeconds = 1.0
	maxDurationSeconds = 4 * 60 * 60
	minWidth           = 240
	minHeight          = 180

	warnFrameRate    = 60.0
	warnVideoBitrate = 50_000_000
)

// Validation is the outcome of applying the upload acceptance policy to a
// MediaInfo. Errors reject the upload, warnings are informational only.
type Validation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validate applies the acceptance policy. The probe itself stays honest about
// what the payload contains; requiring a video stream is a caller decision
// made here.
func Validate(info *MediaInfo) Validation {
	v := Validation{Valid: true}
	if info == nil {
		v.Valid = false
		v.Errors = append(v.Errors, "no media metadata available")
		return v
	}

	if !info.HasVideo {
		v.Valid = false
		v.Errors = append(v.Errors, "file does not contain a valid video stream")
	}
	if info.DurationSeconds < minDurationSeconds {
		v.Valid = false
		v.Errors = append(v.Errors, "video duration must be at least 1 second")
	}
	if info.DurationSeconds > maxDurationSeconds {
		v.Valid = false
		v.Errors = append(v.Errors, "video duration cannot exceed 4 hours")
	}
	if info.Width < minWidth || info.Height < minHeight {
		v.Valid = false
		v.Errors = append(v.Errors, "video resolution too low (minimum 240x180)")
	}

	if !info.HasAudio {
		v.Warnings = append(v.Warnings, "video does not contain an audio track")
	}
	if info.FrameRate > warnFrameRate {
		v.Warnings = append(v.Warnings, "high frame rate detected (>60fps), may increase processing time")
	}
	if info.VideoBitrate > warnVideoBitrate {
		v.Warnings = append(v.Warnings, "very high bitrate detected, consider compressing before upload")
	}

	return v
}

// QualityLevel buckets a resolution into the ladder the transcoder targets.
func QualityLevel(height int) string {
	switch {
	case height >= 2160:
		return "4K"
	case height >= 1080:
		return "1080p"
	case height >= 720:
		return "720p"
	case height >= 480:
		return "480p"
	case height >= 360:
		return "360p"
	default:
		return "240p"
	}
}
