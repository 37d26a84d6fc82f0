package daemon

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"hlsforge/internal/api"
	"hlsforge/internal/fileutil"
	"hlsforge/internal/logging"
	"hlsforge/internal/queue"
)

// multipartOverhead is allowed on top of upload.max_bytes for boundaries and
// part headers before the request body is cut off.
const multipartOverhead = 1 << 20

var extensionsByType = map[string]string{
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/x-m4v":     ".m4v",
}

var errMissingFile = errors.New("file is empty")

// handleUpload accepts one video in the configured multipart field, stores it
// as <upload_dir>/<uuid><ext> and enqueues it. The job name is the uuid.
func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithContext(r.Context(), s.logger)
	limit := s.cfg.Upload.MaxBytes
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart/form-data body", "")
		return
	}
	part, err := s.findFilePart(reader)
	if err != nil {
		s.writeUploadError(w, err)
		return
	}
	defer part.Close()

	mediaType := partMediaType(part)
	if !s.allowedType(mediaType) {
		writeError(w, http.StatusUnsupportedMediaType, "file type is not valid",
			"accepted types: "+strings.Join(s.cfg.Upload.AllowedTypes, ", "))
		return
	}

	ext := uploadExtension(mediaType, part.FileName())
	stored, written, err := fileutil.Ingest(part, s.cfg.Paths.UploadDir, uuid.NewString()+ext, limit)
	if err != nil {
		s.writeUploadError(w, err)
		if !isClientUploadError(err) {
			logging.ErrorWithContext(logger, "upload could not be stored", "upload_store_failed",
				logging.String("upload_dir", s.cfg.Paths.UploadDir),
				logging.Error(err),
			)
		}
		return
	}
	if written == 0 {
		_ = os.Remove(stored)
		s.writeUploadError(w, errMissingFile)
		return
	}

	record, err := s.daemon.Enqueue(r.Context(), stored)
	if err != nil {
		if removeErr := os.Remove(stored); removeErr != nil {
			logging.WarnWithContext(logger, "rejected upload left behind", "upload_cleanup_failed",
				logging.String("path", stored),
				logging.Error(removeErr),
			)
		}
		s.writeDomainError(w, r, err)
		return
	}

	logger.Info("upload queued",
		logging.String(logging.FieldEventType, "upload_queued"),
		logging.String(logging.FieldJobName, record.Name),
		logging.String("original_name", part.FileName()),
		logging.String("content_type", mediaType),
		logging.Int64("bytes", written),
	)
	writeJSON(w, http.StatusCreated, api.UploadResponse{
		JobName: record.Name,
		Status:  string(queue.StatusPending),
		URL:     api.FromRecord(record).URL,
		Type:    api.MediaTypeHLS,
	})
}

// findFilePart skips form parts until the configured file field. Only the
// first matching part is read; later parts are ignored.
func (s *apiServer) findFilePart(reader *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errMissingFile
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == s.cfg.Upload.Field && part.FileName() != "" {
			return part, nil
		}
		_ = part.Close()
	}
}

func (s *apiServer) allowedType(mediaType string) bool {
	if len(s.cfg.Upload.AllowedTypes) == 0 {
		return strings.HasPrefix(mediaType, "video/")
	}
	return slices.Contains(s.cfg.Upload.AllowedTypes, mediaType)
}

func (s *apiServer) writeUploadError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, errMissingFile):
		writeError(w, http.StatusBadRequest, "file is empty", fmt.Sprintf("send the video in the %q form field", s.cfg.Upload.Field))
	case errors.Is(err, fileutil.ErrTooLarge), errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "file is too large",
			fmt.Sprintf("maximum upload size is %d MiB", s.cfg.Upload.MaxBytes>>20))
	case errors.Is(err, fileutil.ErrExists):
		writeError(w, http.StatusConflict, "a video with this name already exists", "")
	default:
		writeError(w, http.StatusInternalServerError, "upload failed", "")
	}
}

func isClientUploadError(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.Is(err, fileutil.ErrTooLarge) || errors.As(err, &maxErr) || errors.Is(err, fileutil.ErrExists)
}

func partMediaType(part *multipart.Part) string {
	mediaType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}

func uploadExtension(mediaType, fileName string) string {
	if ext, ok := extensionsByType[mediaType]; ok {
		return ext
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" || len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		return ".bin"
	}
	return ext
}
