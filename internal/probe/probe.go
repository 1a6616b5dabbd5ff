package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/streamhive/upload-service/pkg/config"
)

// Error marks a payload that could not be decoded as a media container.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("probe: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("probe: %s", e.Reason)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MediaInfo is the fully-populated description of a probed payload. Numeric
// fields default to zero and codec fields to "unknown" when the corresponding
// stream is absent.
type MediaInfo struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Bitrate         int64   `json:"bitrate"`
	ContainerFormat string  `json:"container_format"`

	Width        int     `json:"width"`
	Height       int     `json:"height"`
	VideoCodec   string  `json:"video_codec"`
	VideoBitrate int64   `json:"video_bitrate"`
	FrameRate    float64 `json:"frame_rate"`
	AspectRatio  string  `json:"aspect_ratio"`

	AudioCodec      string `json:"audio_codec"`
	AudioBitrate    int64  `json:"audio_bitrate"`
	AudioChannels   int    `json:"audio_channels"`
	AudioSampleRate int64  `json:"audio_sample_rate"`

	HasVideo bool `json:"has_video"`
	HasAudio bool `json:"has_audio"`
	IsHD     bool `json:"is_hd"`
	Is4K     bool `json:"is_4k"`
}

// Prober extracts media metadata from raw bytes.
type Prober interface {
	Probe(ctx context.Context, payload []byte) (*MediaInfo, error)
}

// FFProbe shells out to the ffprobe binary, feeding the payload over stdin.
type FFProbe struct {
	path    string
	timeout time.Duration
}

func NewFFProbe(cfg config.ProbeConfig) *FFProbe {
	path := cfg.FFProbePath
	if path == "" {
		path = "ffprobe"
	}
	return &FFProbe{path: path, timeout: cfg.Timeout}
}

func (f *FFProbe) Probe(ctx context.Context, payload []byte) (*MediaInfo, error) {
	if len(payload) == 0 {
		return nil, &Error{Reason: "empty payload"}
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.path,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-i", "pipe:0",
	)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = "ffprobe failed"
		}
		return nil, &Error{Reason: reason, Err: err}
	}

	return parseOutput(stdout.Bytes())
}

// ffprobe JSON shape, reduced to the fields the pipeline reads.
type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType          string `json:"codec_type"`
	CodecName          string `json:"codec_name"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	BitRate            string `json:"bit_rate"`
	RFrameRate         string `json:"r_frame_rate"`
	DisplayAspectRatio string `json:"display_aspect_ratio"`
	Channels           int    `json:"channels"`
	SampleRate         string `json:"sample_rate"`
}

func parseOutput(raw []byte) (*MediaInfo, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{Reason: "unreadable ffprobe output", Err: err}
	}
	if out.Format.FormatName == "" && len(out.Streams) == 0 {
		return nil, &Error{Reason: "payload is not a media container"}
	}

	info := &MediaInfo{
		DurationSeconds: parseFloat(out.Format.Duration),
		Bitrate:         parseInt(out.Format.BitRate),
		ContainerFormat: stringOrUnknown(out.Format.FormatName),
		VideoCodec:      "unknown",
		AspectRatio:     "unknown",
		AudioCodec:      "unknown",
	}

	for i := range out.Streams {
		s := &out.Streams[i]
		switch s.CodecType {
		case "video":
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.Width = s.Width
			info.Height = s.Height
			info.VideoCodec = stringOrUnknown(s.CodecName)
			info.VideoBitrate = parseInt(s.BitRate)
			info.AspectRatio = stringOrUnknown(s.DisplayAspectRatio)
			if s.RFrameRate != "" {
				rate, err := ParseFrameRate(s.RFrameRate)
				if err != nil {
					return nil, err
				}
				info.FrameRate = rate
			}
		case "audio":
			if info.HasAudio {
				continue
			}
			info.HasAudio = true
			info.AudioCodec = stringOrUnknown(s.CodecName)
			info.AudioBitrate = parseInt(s.BitRate)
			info.AudioChannels = s.Channels
			info.AudioSampleRate = parseInt(s.SampleRate)
		}
	}

	info.IsHD = info.HasVideo && info.Height >= 720
	info.Is4K = info.HasVideo && info.Height >= 2160
	return info, nil
}

// ParseFrameRate evaluates ffprobe's rational frame-rate notation, either a
// plain number or "num/den". Malformed input is a probe error, never evaluated
// as anything else.
func ParseFrameRate(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	num, den, found := strings.Cut(raw, "/")
	if !found {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || rate < 0 {
			return 0, &Error{Reason: fmt.Sprintf("malformed frame rate %q", raw)}
		}
		return rate, nil
	}

	n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
	if err != nil {
		return 0, &Error{Reason: fmt.Sprintf("malformed frame rate %q", raw)}
	}
	d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
	if err != nil {
		return 0, &Error{Reason: fmt.Sprintf("malformed frame rate %q", raw)}
	}
	if d == 0 {
		return 0, nil
	}
	if n < 0 || d < 0 {
		return 0, &Error{Reason: fmt.Sprintf("malformed frame rate %q", raw)}
	}
	return float64(n) / float64(d), nil
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(raw string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func stringOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
