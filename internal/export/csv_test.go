package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoriz/internal/blob"
	"motoriz/internal/core"
	"motoriz/pkg/domain"
)

func TestExportQuotesAndRoundTrips(t *testing.T) {
	headers := []string{"No", "Judul"}
	rows := [][]string{
		{"1", "By Sarah Miller, Local News Reporter SONOMA"},
		{"2", `Motor "Listrik" Baru`},
		{"3", "baris\nbaru"},
	}
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, headers, rows))
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Contains(t, buf.String(), `"By Sarah Miller, Local News Reporter SONOMA"`)
	assert.Contains(t, buf.String(), `"Motor ""Listrik"" Baru"`)

	got, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	want := append([][]string{headers}, rows...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("csv round trip (-want +got):\n%s", diff)
	}
}

func TestFilenameUsesUTCDate(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	now := time.Date(2025, 10, 6, 2, 0, 0, 0, jakarta)
	assert.Equal(t, "data-layanan-2025-10-05.csv", Filename(DomainServices, now))
}

func newService(t *testing.T) *core.Service {
	t.Helper()
	ctx := context.Background()
	svc, err := core.NewInMemoryService(ctx, core.WithClock(core.ClockFunc(func() time.Time {
		return time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	})))
	require.NoError(t, err)
	pt, _ := svc.ProductTypes.Create(ctx, domain.ProductType{Name: "Suku Cadang"})
	accu, _ := svc.Categories.Create(ctx, domain.Category{Name: "Accu", ProductTypeID: pt.ID})
	ban, _ := svc.Categories.Create(ctx, domain.Category{Name: "Ban", ProductTypeID: pt.ID})
	_, err = svc.Products.Create(ctx, domain.Product{Name: "GS Astra Premium N50", CategoryID: accu.ID, Price: 770000, Stock: 15, Images: []string{"a.jpg"}})
	require.NoError(t, err)
	_, err = svc.Products.Create(ctx, domain.Product{Name: "Maxxis Victra", CategoryID: ban.ID, Price: 195000, Stock: 22, Images: []string{"b.jpg"}})
	require.NoError(t, err)
	_, err = svc.Services.Create(ctx, domain.Service{Name: "Konversi Motor Bensin ke Listrik", SubCategory: "Konversi Motor", Price: 15000000, Description: "Konversi penuh", IsAvailable: false})
	require.NoError(t, err)
	return svc
}

func TestBuildProductsUsesFilteredView(t *testing.T) {
	svc := newService(t)
	table, err := Build(svc, DomainProducts, core.ProductQuery{Search: "accu"})
	require.NoError(t, err)
	assert.Equal(t, []string{"No", "Nama Produk", "Kategori", "Jenis Produk", "Harga", "Stok", "Tanggal"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"1", "GS Astra Premium N50", "Accu", "Suku Cadang", "770000", "15", "2025-10-01"}, table.Rows[0])
}

func TestBuildProductsRendersOrphans(t *testing.T) {
	svc := newService(t)
	require.NoError(t, svc.DeleteCategory(context.Background(), 2))
	table, err := Build(svc, DomainProducts, core.ProductQuery{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, UnknownCategory, table.Rows[1][2])
	assert.Equal(t, "", table.Rows[1][3])
}

func TestBuildOtherDomains(t *testing.T) {
	svc := newService(t)
	table, err := Build(svc, DomainServices, core.ProductQuery{Search: "konversi"})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, Unavailable, table.Rows[0][5])

	for _, d := range []string{DomainTrainings, DomainNews, DomainReservations} {
		table, err := Build(svc, d, core.ProductQuery{})
		require.NoError(t, err, d)
		assert.Empty(t, table.Rows, d)
		assert.Equal(t, "No", table.Headers[0])
	}
	_, err = Build(svc, "gudang", core.ProductQuery{})
	assert.Error(t, err)
}

func TestTableBytesAndWriteTo(t *testing.T) {
	table := Reservations([]domain.Reservation{{FullName: "Andi Prasetyo", Phone: "081234567890", Email: "andi@example.com", ServiceType: "Service Baterai", Date: "2025-10-05", Time: "09:00", Notes: "cek, ganti"}})
	data, err := table.Bytes()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `1,Andi Prasetyo,081234567890,andi@example.com,Service Baterai,2025-10-05,09:00,"cek, ganti"`, lines[1])

	n, err := table.WriteTo(io.Discard)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
}

func TestArchiverStoresUnderExports(t *testing.T) {
	store := blob.NewMemory()
	a := NewArchiver(store)
	a.newID = func() string { return "fixed" }
	info, err := a.Archive(context.Background(), "data-berita-2025-09-24.csv", []byte("No\n"))
	require.NoError(t, err)
	assert.Equal(t, "exports/fixed/data-berita-2025-09-24.csv", info.Key)
	assert.Equal(t, ContentType, info.ContentType)

	_, err = a.Archive(context.Background(), "data-berita-2025-09-24.csv", []byte("No\n"))
	assert.ErrorIs(t, err, blob.ErrExists)
}
