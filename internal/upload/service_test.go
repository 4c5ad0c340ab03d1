package upload

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoriz/internal/blob"
	"motoriz/internal/core"
	"motoriz/pkg/domain"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newService(t *testing.T, opts ...Option) (*Service, blob.Store) {
	t.Helper()
	store := blob.NewMemory()
	s := New(store, opts...)
	s.newName = func() string { return "11111111-2222-3333-4444-555555555555" }
	return s, store
}

func TestSaveStoresImageUnderUUIDName(t *testing.T) {
	metrics := core.NewMetrics("")
	s, store := newService(t, WithMetrics(metrics))
	res, err := s.Save(context.Background(), "products", "Helm Safety.PNG", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555.png", res.Filename)
	assert.Equal(t, "products", res.Folder)
	assert.Equal(t, int64(len(pngHeader)), res.Size)
	assert.NotEmpty(t, res.URL)

	info, err := store.Head(context.Background(), "products/"+res.Filename)
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Uploads.WithLabelValues("products", "ok")))
}

func TestSaveIgnoresMisleadingExtension(t *testing.T) {
	s, store := newService(t)
	res, err := s.Save(context.Background(), "avatars", "profile.html", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555.png", res.Filename)
	_, err = store.Head(context.Background(), "avatars/"+res.Filename)
	require.NoError(t, err)
}

func TestSaveRejectsBadInput(t *testing.T) {
	s, _ := newService(t, WithMaxSize(32))
	cases := map[string]struct {
		folder string
		body   []byte
		field  string
	}{
		"folder":    {folder: "secrets", body: pngHeader, field: "folder"},
		"empty":     {folder: "news", body: nil, field: "file"},
		"not image": {folder: "news", body: []byte("%PDF-1.4 not an image"), field: "file"},
		"too large": {folder: "avatars", body: append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...), field: "file"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Save(context.Background(), tc.folder, "x.png", bytes.NewReader(tc.body))
			ve, ok := domain.FirstValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestExtensionFollowsSniffedType(t *testing.T) {
	assert.Equal(t, ".png", extension("upload", "image/png"))
	assert.Equal(t, ".jpg", extension("a.JPEG", "image/jpeg"))
	assert.Equal(t, ".png", extension("page.html", "image/png"), "sniffed type wins over the name")
	assert.Equal(t, ".gif", extension("x.svgz", "image/gif"))
	assert.Equal(t, ".ico", extension("favicon.ICO", "image/x-icon"))
	assert.Equal(t, "", extension("blob", "image/x-unknown"))
	assert.Equal(t, "", extension("a.p%hp", "image/x-unknown"))
}

func TestOpenAndDelete(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	res, err := s.Save(ctx, "news", "cover.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	info, rc, err := s.Open(ctx, "news", res.Filename)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, pngHeader, body)
	assert.Equal(t, "image/png", info.ContentType)

	require.NoError(t, s.Delete(ctx, "news", res.Filename))
	assert.ErrorIs(t, s.Delete(ctx, "news", res.Filename), domain.ErrNotFound)
	_, _, err = s.Open(ctx, "news", res.Filename)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, name := range []string{"", "../x.png", "a/b.png"} {
		err := s.Delete(ctx, "news", name)
		assert.ErrorIs(t, err, domain.ErrValidation, name)
	}
	assert.Equal(t, blob.DriverMemory, s.Store().Driver())
}

func TestNilLoggerKeepsNop(t *testing.T) {
	s, _ := newService(t, WithLogger(nil))
	assert.IsType(t, core.NopLogger{}, s.logger)
	_, err := s.Save(context.Background(), "garage", "x.png", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
