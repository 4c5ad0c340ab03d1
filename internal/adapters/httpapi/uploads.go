package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"motoriz/internal/upload"
	"motoriz/pkg/domain"
)

// multipartOverhead is allowed on top of the file size limit for headers and
// boundaries.
const multipartOverhead = 64 << 10

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request, files int64) bool {
	limit := files*(s.uploads.MaxSize()+multipartOverhead) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(s.uploads.MaxSize()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds the %d MiB limit", s.uploads.MaxSize()>>20))
			return false
		}
		writeError(w, http.StatusBadRequest, "expected multipart form data")
		return false
	}
	return true
}

func (s *Server) saveHeader(r *http.Request, folder string, fh *multipart.FileHeader) (upload.Result, error) {
	f, err := fh.Open()
	if err != nil {
		return upload.Result{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer func() { _ = f.Close() }()
	return s.uploads.Save(r.Context(), folder, fh.Filename, f)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r, 1) {
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		s.writeFailure(w, r, domain.NewValidationError("file", "is required"))
		return
	}
	res, err := s.saveHeader(r, r.PathValue("folder"), headers[0])
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUploadMany(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r, MaxFilesPerUpload) {
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	headers := r.MultipartForm.File["files"]
	switch {
	case len(headers) == 0:
		s.writeFailure(w, r, domain.NewValidationError("files", "is required"))
		return
	case len(headers) > MaxFilesPerUpload:
		s.writeFailure(w, r, domain.NewValidationError("files", "at most "+strconv.Itoa(MaxFilesPerUpload)+" files per request"))
		return
	}
	folder := r.PathValue("folder")
	out := make([]upload.Result, 0, len(headers))
	for _, fh := range headers {
		res, err := s.saveHeader(r, folder, fh)
		if err != nil {
			s.rollbackUploads(r, out)
			s.writeFailure(w, r, err)
			return
		}
		out = append(out, res)
	}
	writeJSON(w, http.StatusCreated, out)
}

// rollbackUploads removes the files already stored by a failed batch.
func (s *Server) rollbackUploads(r *http.Request, stored []upload.Result) {
	for _, res := range stored {
		if err := s.uploads.Delete(r.Context(), res.Folder, res.Filename); err != nil {
			s.logger.Warn("upload rollback failed", "folder", res.Folder, "file", res.Filename, "error", err)
		}
	}
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.uploads.Delete(r.Context(), r.PathValue("folder"), r.PathValue("filename")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "file deleted"})
}

func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	info, rc, err := s.uploads.Open(r.Context(), r.PathValue("folder"), r.PathValue("filename"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	defer func() { _ = rc.Close() }()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if info.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(info.ETag))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
