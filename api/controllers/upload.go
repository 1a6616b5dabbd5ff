package controllers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/streamhive/upload-service/api/middleware"
	"github.com/streamhive/upload-service/api/responses"
	"github.com/streamhive/upload-service/api/validators"
	"github.com/streamhive/upload-service/internal/probe"
	"github.com/streamhive/upload-service/internal/upload"
	"github.com/streamhive/upload-service/pkg/config"
	"github.com/streamhive/upload-service/pkg/enums"
	pkgerrors "github.com/streamhive/upload-service/pkg/errors"
	"github.com/streamhive/upload-service/pkg/logger"
	"github.com/streamhive/upload-service/pkg/pagination"
)

const multipartMemoryLimit = 32 << 20

// UploadService is the pipeline surface the upload controllers consume.
type UploadService interface {
	Submit(ctx context.Context, req *upload.Request) (*upload.Receipt, error)
	Status(ctx context.Context, uploadID, requestingUserID string) (*upload.Record, error)
	ListByUser(ctx context.Context, userID string) ([]*upload.Record, error)
}

// UploadVideo accepts a multipart video upload and runs the orchestration
// pipeline. On success the client gets a 202 with the upload id and a
// processing-time estimate; afterwards progress is observed via the status
// endpoint.
func UploadVideo(svc UploadService, cfg config.UploadConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes()+multipartMemoryLimit)
		if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
			responses.WriteError(ctx, logg, w, decodeUploadError(err))
			return
		}

		file, header, err := r.FormFile("video")
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no video file provided"))
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if err := checkFileType(ext, cfg.AllowedExtensions()); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		form, err := validators.ParseUploadForm(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload, err := io.ReadAll(file)
		if err != nil {
			responses.WriteError(ctx, logg, w, decodeUploadError(err))
			return
		}
		if int64(len(payload)) > cfg.MaxUploadBytes() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodePayloadTooLarge, "video exceeds the maximum upload size"))
			return
		}

		req := &upload.Request{
			UploadID:         uuid.NewString(),
			UserID:           middleware.UserIDFromContext(ctx),
			Username:         middleware.UsernameFromContext(ctx),
			OriginalFilename: header.Filename,
			FileExtension:    ext,
			DeclaredMimeType: header.Header.Get("Content-Type"),
			FileSizeBytes:    int64(len(payload)),
			Payload:          payload,
			Title:            form.Title,
			Description:      form.Description,
			Tags:             form.Tags,
			IsPrivate:        form.IsPrivate,
			Category:         form.Category,
		}

		receipt, err := svc.Submit(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, submitError(err))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, receipt)
	}
}

// UploadStatus returns the caller's view of one upload's progress.
func UploadStatus(svc UploadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		uploadID := strings.TrimSpace(chi.URLParam(r, "uploadId"))
		if uploadID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "upload id is required"))
			return
		}

		record, err := svc.Status(ctx, uploadID, middleware.UserIDFromContext(ctx))
		if err != nil {
			if errors.Is(err, upload.ErrNotFound) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found or access denied"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch upload status"))
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// MyUploads lists the caller's uploads, newest first, with page pagination
// and an optional status filter.
func MyUploads(svc UploadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		params := pagination.Normalize(page, limit)

		var statusFilter enums.UploadStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseUploadStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
					WithDetails(map[string]string{"status": "is invalid"}))
				return
			}
			statusFilter = parsed
		}

		records, err := svc.ListByUser(ctx, middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list uploads"))
			return
		}

		if statusFilter != "" {
			filtered := records[:0]
			for _, record := range records {
				if record.Status == statusFilter {
					filtered = append(filtered, record)
				}
			}
			records = filtered
		}

		start, end := pagination.Bounds(params, len(records))
		responses.WriteSuccess(w, map[string]any{
			"uploads":    records[start:end],
			"pagination": pagination.NewMeta(params, len(records)),
		})
	}
}

func checkFileType(ext string, allowed []string) error {
	trimmed := strings.TrimPrefix(ext, ".")
	ok := false
	for _, candidate := range allowed {
		if candidate == trimmed {
			ok = true
			break
		}
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnsupportedMedia, "invalid file format").
			WithDetails(map[string]any{"allowed_formats": allowed})
	}

	if mimeType := mime.TypeByExtension(ext); mimeType != "" && !strings.HasPrefix(mimeType, "video/") {
		return pkgerrors.New(pkgerrors.CodeUnsupportedMedia, "file must be a video")
	}
	return nil
}

func decodeUploadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return pkgerrors.Wrap(pkgerrors.CodePayloadTooLarge, err, "video exceeds the maximum upload size")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart request")
}

// submitError maps pipeline stage failures onto API error codes. Probe and
// validate failures are the client's payload, store and publish failures are
// dependency trouble.
func submitError(err error) error {
	var stageErr *upload.StageError
	if !errors.As(err, &stageErr) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upload failed")
	}

	details := map[string]any{"stage": stageErr.Stage}
	switch stageErr.Stage {
	case upload.StageProbe:
		var probeErr *probe.Error
		if errors.As(err, &probeErr) {
			return pkgerrors.Wrap(pkgerrors.CodeUnsupportedMedia, err, "could not read video metadata").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe unavailable").WithDetails(details)
	case upload.StageValidate:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, stageErr.Err.Error()).WithDetails(details)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload pipeline failed").WithDetails(details)
	}
}
