package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/streamhive/upload-service/internal/probe"
	"github.com/streamhive/upload-service/pkg/enums"
	"github.com/streamhive/upload-service/pkg/logger"
	"github.com/streamhive/upload-service/pkg/storage/gcs"
)

type stubProber struct {
	info *probe.MediaInfo
	err  error
}

func (s *stubProber) Probe(_ context.Context, _ []byte) (*probe.MediaInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.info, nil
}

type stubBlobWriter struct {
	mu       sync.Mutex
	err      error
	bucket   string
	key      string
	metadata map[string]string
}

func (s *stubBlobWriter) Upload(_ context.Context, bucket, key string, _ []byte, _ string, metadata map[string]string) (*gcs.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.bucket = bucket
	s.key = key
	s.metadata = metadata
	return &gcs.UploadResult{URL: "https://storage.googleapis.com/" + bucket + "/" + key, ETag: "etag-1"}, nil
}

type stubPublisher struct {
	mu     sync.Mutex
	err    error
	events []*UploadedEvent
}

func (s *stubPublisher) Publish(_ context.Context, event *UploadedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

// recordingStore tracks the progress values written for each upload id.
type recordingStore struct {
	StatusStore
	mu       sync.Mutex
	progress map[string][]int
}

func newRecordingStore(inner StatusStore) *recordingStore {
	return &recordingStore{StatusStore: inner, progress: make(map[string][]int)}
}

func (r *recordingStore) Create(ctx context.Context, record *Record) error {
	if err := r.StatusStore.Create(ctx, record); err != nil {
		return err
	}
	r.mu.Lock()
	r.progress[record.UploadID] = append(r.progress[record.UploadID], record.Progress)
	r.mu.Unlock()
	return nil
}

func (r *recordingStore) Merge(ctx context.Context, uploadID string, patch Patch) error {
	if err := r.StatusStore.Merge(ctx, uploadID, patch); err != nil {
		return err
	}
	if patch.Progress != nil {
		r.mu.Lock()
		r.progress[uploadID] = append(r.progress[uploadID], *patch.Progress)
		r.mu.Unlock()
	}
	return nil
}

func goodMediaInfo() *probe.MediaInfo {
	return &probe.MediaInfo{
		DurationSeconds: 10,
		Bitrate:         2_500_000,
		ContainerFormat: "mp4",
		Width:           1920,
		Height:          1080,
		VideoCodec:      "h264",
		FrameRate:       30,
		AspectRatio:     "16:9",
		AudioCodec:      "aac",
		AudioChannels:   2,
		HasVideo:        true,
		HasAudio:        true,
		IsHD:            true,
	}
}

func demoRequest() *Request {
	return &Request{
		UploadID:         "upload-1",
		UserID:           "user-a",
		Username:         "alice",
		OriginalFilename: "demo.mp4",
		FileExtension:    ".mp4",
		DeclaredMimeType: "video/mp4",
		FileSizeBytes:    50 << 20,
		Payload:          []byte("fake video bytes"),
		Title:            "Demo",
		Tags:             "go, video",
		Category:         enums.VideoCategoryOther,
	}
}

func newTestService(store StatusStore, prober probe.Prober, blobs BlobWriter, publisher Publisher) *Service {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewService(store, prober, blobs, publisher, nil, logg, "raw-videos")
}

func TestSubmitHappyPath(t *testing.T) {
	t.Parallel()

	store := newRecordingStore(NewMemoryStore())
	blobs := &stubBlobWriter{}
	publisher := &stubPublisher{}
	svc := newTestService(store, &stubProber{info: goodMediaInfo()}, blobs, publisher)

	receipt, err := svc.Submit(context.Background(), demoRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if receipt.Status != enums.UploadStatusQueued {
		t.Fatalf("receipt status = %s, want queued_for_transcoding", receipt.Status)
	}
	// 10s video, 50 MiB: max(2*10 + 1*30, 60) = 60
	if receipt.EstimatedProcessingTimeSeconds != 60 {
		t.Fatalf("estimate = %d, want 60", receipt.EstimatedProcessingTimeSeconds)
	}

	record, err := svc.Status(context.Background(), "upload-1", "user-a")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if record.Status != enums.UploadStatusQueued || record.Progress != 60 {
		t.Fatalf("record = %s/%d, want queued/60", record.Status, record.Progress)
	}
	if record.RawVideoPath != "raw/user-a/upload-1.mp4" {
		t.Fatalf("raw path = %q", record.RawVideoPath)
	}
	if record.ContainerName != "raw-videos" || record.BlobURL == "" {
		t.Fatalf("storage fields missing: %+v", record)
	}
	if record.MediaInfo == nil || record.MediaInfo.VideoCodec != "h264" {
		t.Fatalf("media info not recorded: %+v", record.MediaInfo)
	}
	if record.QualityLevel != "1080p" {
		t.Fatalf("quality level = %q, want 1080p", record.QualityLevel)
	}

	// progress along the happy path is non-decreasing: 0 -> 50 -> 60
	got := store.progress["upload-1"]
	want := []int{0, 50, 60}
	if len(got) != len(want) {
		t.Fatalf("progress sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("progress sequence = %v, want %v", got, want)
		}
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.RawVideoPath != "raw/user-a/upload-1.mp4" || event.ContainerName != "raw-videos" {
		t.Fatalf("unexpected event location: %+v", event)
	}
	if len(event.Tags) != 2 || event.Tags[0] != "go" || event.Tags[1] != "video" {
		t.Fatalf("tags not normalized: %v", event.Tags)
	}

	if blobs.metadata["upload-id"] != "upload-1" || blobs.metadata["duration"] != "10" {
		t.Fatalf("unexpected blob metadata: %v", blobs.metadata)
	}
}

func TestSubmitProbeFailure(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(store, &stubProber{err: &probe.Error{Reason: "payload is not a media container"}}, &stubBlobWriter{}, &stubPublisher{})

	_, err := svc.Submit(context.Background(), demoRequest())
	if err == nil {
		t.Fatal("expected submit to re-raise probe failure")
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageProbe {
		t.Fatalf("expected probe stage error, got %v", err)
	}

	record, getErr := store.Get(context.Background(), "upload-1", "user-a")
	if getErr != nil {
		t.Fatalf("Get: %v", getErr)
	}
	if record.Status != enums.UploadStatusFailed {
		t.Fatalf("status = %s, want failed", record.Status)
	}
	if record.Error == "" {
		t.Fatal("failed record must carry the error message")
	}
}

func TestSubmitPublishFailureKeepsBlobFields(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	publisher := &stubPublisher{err: &PublishError{Topic: "video-transcode-queue", Err: errors.New("broker unavailable")}}
	svc := newTestService(store, &stubProber{info: goodMediaInfo()}, &stubBlobWriter{}, publisher)

	_, err := svc.Submit(context.Background(), demoRequest())
	if err == nil {
		t.Fatal("expected submit to re-raise publish failure")
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StagePublish {
		t.Fatalf("expected publish stage error, got %v", err)
	}

	record, getErr := store.Get(context.Background(), "upload-1", "user-a")
	if getErr != nil {
		t.Fatalf("Get: %v", getErr)
	}
	if record.Status != enums.UploadStatusFailed {
		t.Fatalf("status = %s, want failed", record.Status)
	}
	// no rollback: the stored blob stays referenced
	if record.RawVideoPath == "" || record.BlobURL == "" {
		t.Fatalf("blob fields must survive a publish failure: %+v", record)
	}
	if !strings.Contains(record.Error, "broker unavailable") {
		t.Fatalf("unexpected recorded error: %q", record.Error)
	}
}

func TestSubmitRejectsInvalidVideo(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	info := goodMediaInfo()
	info.HasVideo = false
	info.Width = 0
	info.Height = 0
	svc := newTestService(store, &stubProber{info: info}, &stubBlobWriter{}, &stubPublisher{})

	_, err := svc.Submit(context.Background(), demoRequest())
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageValidate {
		t.Fatalf("expected validate stage error, got %v", err)
	}

	record, getErr := store.Get(context.Background(), "upload-1", "user-a")
	if getErr != nil {
		t.Fatalf("Get: %v", getErr)
	}
	if !strings.Contains(record.Error, "video stream") {
		t.Fatalf("unexpected recorded error: %q", record.Error)
	}
}

func TestSubmitRequiresIdentity(t *testing.T) {
	t.Parallel()

	svc := newTestService(NewMemoryStore(), &stubProber{info: goodMediaInfo()}, &stubBlobWriter{}, &stubPublisher{})

	req := demoRequest()
	req.UploadID = ""
	if _, err := svc.Submit(context.Background(), req); err == nil {
		t.Fatal("expected error for missing upload id")
	}

	req = demoRequest()
	req.UserID = ""
	if _, err := svc.Submit(context.Background(), req); err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestConcurrentSubmitsStayIsolated(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc := newTestService(store, &stubProber{info: goodMediaInfo()}, &stubBlobWriter{}, &stubPublisher{})

	var wg sync.WaitGroup
	for _, ids := range [][2]string{{"upload-a", "user-a"}, {"upload-b", "user-b"}} {
		wg.Add(1)
		go func(uploadID, userID string) {
			defer wg.Done()
			req := demoRequest()
			req.UploadID = uploadID
			req.UserID = userID
			if _, err := svc.Submit(context.Background(), req); err != nil {
				t.Errorf("Submit(%s): %v", uploadID, err)
			}
		}(ids[0], ids[1])
	}
	wg.Wait()

	// each user sees only their own record
	if _, err := store.Get(context.Background(), "upload-a", "user-b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user get must return not-found, got %v", err)
	}
	if _, err := store.Get(context.Background(), "upload-b", "user-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user get must return not-found, got %v", err)
	}

	recordA, err := store.Get(context.Background(), "upload-a", "user-a")
	if err != nil {
		t.Fatalf("Get upload-a: %v", err)
	}
	recordB, err := store.Get(context.Background(), "upload-b", "user-b")
	if err != nil {
		t.Fatalf("Get upload-b: %v", err)
	}
	if recordA.RawVideoPath == recordB.RawVideoPath {
		t.Fatal("records must not share storage keys")
	}
	if recordA.UserID == recordB.UserID {
		t.Fatal("records must not cross-contaminate owners")
	}
}
