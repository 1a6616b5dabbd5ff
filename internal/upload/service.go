package upload

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/streamhive/upload-service/internal/probe"
	"github.com/streamhive/upload-service/pkg/enums"
	"github.com/streamhive/upload-service/pkg/logger"
	"github.com/streamhive/upload-service/pkg/metrics"
	"github.com/streamhive/upload-service/pkg/storage/gcs"
)

// Pipeline stage names, used in status errors and metric labels.
const (
	StageProbe    = "probe"
	StageValidate = "validate"
	StageStore    = "store"
	StagePublish  = "publish"
)

// StageError carries the name of the pipeline stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BlobWriter is the storage capability the engine consumes.
type BlobWriter interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) (*gcs.UploadResult, error)
}

// Service orchestrates the upload pipeline: status init, media probe, blob
// write, event publish and the status bookkeeping between them.
type Service struct {
	store     StatusStore
	prober    probe.Prober
	blobs     BlobWriter
	publisher Publisher
	metrics   *metrics.PipelineMetrics
	logg      *logger.Logger
	bucket    string
	now       func() time.Time
}

func NewService(store StatusStore, prober probe.Prober, blobs BlobWriter, publisher Publisher, pipelineMetrics *metrics.PipelineMetrics, logg *logger.Logger, rawBucket string) *Service {
	return &Service{
		store:     store,
		prober:    prober,
		blobs:     blobs,
		publisher: publisher,
		metrics:   pipelineMetrics,
		logg:      logg,
		bucket:    rawBucket,
		now:       time.Now,
	}
}

// Submit runs the full pipeline for one upload. The record's terminal state
// is always observable via the status store: on success the receipt reports
// queued_for_transcoding, on stage failure the record is marked failed and
// the stage error is returned to the caller.
func (s *Service) Submit(ctx context.Context, req *Request) (*Receipt, error) {
	if req == nil {
		return nil, errors.New("nil upload request")
	}
	if req.UploadID == "" {
		return nil, errors.New("upload id is required")
	}
	if req.UserID == "" {
		return nil, errors.New("user id is required")
	}

	ctx = s.logg.WithUploadID(s.logg.WithUserID(ctx, req.UserID), req.UploadID)

	key := StorageKey(req.UserID, req.UploadID, req.FileExtension)

	created := s.now()
	if err := s.store.Create(ctx, &Record{
		UploadID:  req.UploadID,
		UserID:    req.UserID,
		Status:    enums.UploadStatusUploading,
		Progress:  0,
		Title:     req.Title,
		CreatedAt: created,
		UpdatedAt: created,
	}); err != nil {
		return nil, fmt.Errorf("initializing upload status: %w", err)
	}
	s.metrics.IncStarted()
	s.logg.Info(ctx, "upload pipeline started")

	info, err := s.probeStage(ctx, req)
	if err != nil {
		return nil, s.fail(ctx, req.UploadID, StageProbe, err)
	}

	if err := s.validateStage(ctx, info); err != nil {
		return nil, s.fail(ctx, req.UploadID, StageValidate, err)
	}

	result, err := s.storeStage(ctx, req, key, info)
	if err != nil {
		return nil, s.fail(ctx, req.UploadID, StageStore, err)
	}

	quality := probe.QualityLevel(info.Height)
	if err := s.store.Merge(ctx, req.UploadID, Patch{
		Status:        ptr(enums.UploadStatusUploaded),
		Progress:      ptr(50),
		RawVideoPath:  ptr(key),
		ContainerName: ptr(s.bucket),
		BlobURL:       ptr(result.URL),
		MediaInfo:     info,
		QualityLevel:  ptr(quality),
	}); err != nil {
		return nil, s.fail(ctx, req.UploadID, StageStore, err)
	}

	if err := s.publishStage(ctx, req, key, result.URL); err != nil {
		return nil, s.fail(ctx, req.UploadID, StagePublish, err)
	}

	if err := s.store.Merge(ctx, req.UploadID, Patch{
		Status:   ptr(enums.UploadStatusQueued),
		Progress: ptr(60),
	}); err != nil {
		return nil, s.fail(ctx, req.UploadID, StagePublish, err)
	}

	s.metrics.IncCompleted()
	s.logg.Info(ctx, "upload queued for transcoding")

	return &Receipt{
		UploadID:                       req.UploadID,
		Status:                         enums.UploadStatusQueued,
		EstimatedProcessingTimeSeconds: EstimateProcessingSeconds(info.DurationSeconds, req.FileSizeBytes),
	}, nil
}

// Status returns the record for uploadID when owned by requestingUserID.
func (s *Service) Status(ctx context.Context, uploadID, requestingUserID string) (*Record, error) {
	return s.store.Get(ctx, uploadID, requestingUserID)
}

// ListByUser returns the caller's uploads, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*Record, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) probeStage(ctx context.Context, req *Request) (*probe.MediaInfo, error) {
	started := s.now()
	info, err := s.prober.Probe(ctx, req.Payload)
	s.metrics.ObserveStage(StageProbe, s.now().Sub(started))
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Service) validateStage(ctx context.Context, info *probe.MediaInfo) error {
	validation := probe.Validate(info)
	for _, warning := range validation.Warnings {
		s.logg.Warn(ctx, warning)
	}
	if !validation.Valid {
		return errors.New(strings.Join(validation.Errors, "; "))
	}
	return nil
}

func (s *Service) storeStage(ctx context.Context, req *Request, key string, info *probe.MediaInfo) (*gcs.UploadResult, error) {
	contentType := req.DeclaredMimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	started := s.now()
	result, err := s.blobs.Upload(ctx, s.bucket, key, req.Payload, contentType, blobMetadata(req, info))
	s.metrics.ObserveStage(StageStore, s.now().Sub(started))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) publishStage(ctx context.Context, req *Request, key, blobURL string) error {
	event := &UploadedEvent{
		UploadID:         req.UploadID,
		UserID:           req.UserID,
		Username:         req.Username,
		OriginalFilename: req.OriginalFilename,
		Title:            req.Title,
		Description:      req.Description,
		Tags:             NormalizeTags(req.Tags),
		IsPrivate:        req.IsPrivate,
		Category:         req.Category.String(),
		RawVideoPath:     key,
		ContainerName:    s.bucket,
		BlobURL:          blobURL,
	}

	started := s.now()
	err := s.publisher.Publish(ctx, event)
	s.metrics.ObserveStage(StagePublish, s.now().Sub(started))
	return err
}

// fail records the terminal failure and re-raises it once to the caller. The
// status store keeps whatever earlier stages already recorded; in particular
// a blob written before a publish failure stays referenced, never rolled
// back.
func (s *Service) fail(ctx context.Context, uploadID, stage string, cause error) error {
	if mergeErr := s.store.Merge(ctx, uploadID, Patch{
		Status: ptr(enums.UploadStatusFailed),
		Error:  ptr(cause.Error()),
	}); mergeErr != nil {
		s.logg.Error(ctx, "recording upload failure", mergeErr)
	}
	s.metrics.IncFailed(stage)
	s.logg.Error(ctx, "upload pipeline failed", cause)
	return &StageError{Stage: stage, Err: cause}
}

// blobMetadata assembles the pre-sanitation object metadata. All values are
// stringified here; character-set sanitation happens inside the blob writer.
func blobMetadata(req *Request, info *probe.MediaInfo) map[string]string {
	return map[string]string{
		"upload-id":         req.UploadID,
		"user-id":           req.UserID,
		"original-filename": req.OriginalFilename,
		"title":             req.Title,
		"description":       req.Description,
		"tags":              req.Tags,
		"is-private":        strconv.FormatBool(req.IsPrivate),
		"category":          req.Category.String(),
		"duration":          strconv.FormatFloat(info.DurationSeconds, 'f', -1, 64),
		"width":             strconv.Itoa(info.Width),
		"height":            strconv.Itoa(info.Height),
		"bitrate":           strconv.FormatInt(info.Bitrate, 10),
	}
}
