// Package upload stores admin image uploads in blob storage.
package upload

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"

	"motoriz/internal/blob"
	"motoriz/internal/core"
	"motoriz/pkg/domain"
)

// DefaultMaxSize is the per-file limit.
const DefaultMaxSize int64 = 5 << 20

// Folders accepted by Save.
var Folders = []string{"products", "news", "services", "avatars"}

// Result describes a stored upload.
type Result struct {
	Folder   string `json:"folder"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// Service validates and stores uploads.
type Service struct {
	store   blob.Store
	maxSize int64
	metrics *core.Metrics
	logger  core.Logger
	newName func() string
}

// Option configures a Service.
type Option func(*Service)

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithMetrics counts uploads on m.
func WithMetrics(m *core.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an upload service over store.
func New(store blob.Store, opts ...Option) *Service {
	s := &Service{store: store, maxSize: DefaultMaxSize, logger: core.NopLogger{}, newName: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxSize returns the per-file limit in bytes.
func (s *Service) MaxSize() int64 { return s.maxSize }

// Store returns the underlying blob store.
func (s *Service) Store() blob.Store { return s.store }

// Save stores r under folder with a generated <uuid><ext> name. Only image
// content is accepted.
func (s *Service) Save(ctx context.Context, folder, originalName string, r io.Reader) (Result, error) {
	res, err := s.save(ctx, folder, originalName, r)
	s.metrics.ObserveUpload(folder, err)
	if err != nil {
		s.logger.Warn("upload rejected", "folder", folder, "file", originalName, "error", err)
		return Result{}, err
	}
	s.logger.Info("upload stored", "folder", folder, "file", res.Filename, "size", res.Size)
	return res, nil
}

func (s *Service) save(ctx context.Context, folder, originalName string, r io.Reader) (Result, error) {
	if err := checkFolder(folder); err != nil {
		return Result{}, err
	}
	br := bufio.NewReaderSize(io.LimitReader(r, s.maxSize+1), 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Result{}, fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return Result{}, domain.NewValidationError("file", "is empty")
	}
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return Result{}, domain.NewValidationError("file", "only image files are allowed")
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return Result{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(body)) > s.maxSize {
		return Result{}, domain.NewValidationError("file", fmt.Sprintf("exceeds the %d MiB limit", s.maxSize>>20))
	}
	filename := s.newName() + extension(originalName, contentType)
	info, err := s.store.Put(ctx, folder+"/"+filename, bytes.NewReader(body), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"original-name": path.Base(originalName)},
	})
	if err != nil {
		return Result{}, fmt.Errorf("store upload: %w", err)
	}
	return Result{Folder: folder, Filename: filename, URL: s.url(ctx, info), Size: info.Size}, nil
}

// Open returns a stored upload.
func (s *Service) Open(ctx context.Context, folder, filename string) (blob.Info, io.ReadCloser, error) {
	key, err := keyFor(folder, filename)
	if err != nil {
		return blob.Info{}, nil, err
	}
	info, rc, err := s.store.Get(ctx, key)
	if errors.Is(err, blob.ErrNotExist) {
		return blob.Info{}, nil, fmt.Errorf("upload %s: %w", key, domain.ErrNotFound)
	}
	return info, rc, err
}

// Delete removes a stored upload.
func (s *Service) Delete(ctx context.Context, folder, filename string) error {
	key, err := keyFor(folder, filename)
	if err != nil {
		return err
	}
	ok, err := s.store.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("delete upload %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("upload %s: %w", key, domain.ErrNotFound)
	}
	s.logger.Info("upload deleted", "folder", folder, "file", filename)
	return nil
}

func (s *Service) url(ctx context.Context, info blob.Info) string {
	if info.URL != "" {
		return info.URL
	}
	if u, err := s.store.PresignURL(ctx, info.Key, blob.SignedURLOptions{}); err == nil {
		return u
	}
	return "/uploads/" + info.Key
}

func checkFolder(folder string) error {
	if !slices.Contains(Folders, folder) {
		return domain.NewValidationError("folder", fmt.Sprintf("must be one of %s", strings.Join(Folders, ", ")))
	}
	return nil
}

func keyFor(folder, filename string) (string, error) {
	if err := checkFolder(folder); err != nil {
		return "", err
	}
	if filename == "" || filename != path.Base(filename) || strings.Contains(filename, "..") {
		return "", domain.NewValidationError("filename", "invalid file name")
	}
	return folder + "/" + filename, nil
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// extension follows the sniffed content type. The original extension is
// kept only for image types missing from imageExtensions, and only when it is
// a short alphanumeric suffix.
func extension(originalName, contentType string) string {
	if ext, ok := imageExtensions[contentType]; ok {
		return ext
	}
	ext := strings.ToLower(path.Ext(originalName))
	if len(ext) < 2 || len(ext) > 5 || strings.Trim(ext[1:], "abcdefghijklmnopqrstuvwxyz0123456789") != "" {
		return ""
	}
	return ext
}
