// Package export renders collection views as CSV downloads and optionally
// archives every export to blob storage.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"motoriz/internal/blob"
	"motoriz/internal/core"
	"motoriz/pkg/domain"
)

// Export domains. They appear in the download filename.
const (
	DomainProducts     = "produk"
	DomainServices     = "layanan"
	DomainTrainings    = "pelatihan"
	DomainNews         = "berita"
	DomainReservations = "reservasi"
)

// ContentType is the media type of the rendered file.
const ContentType = "text/csv; charset=utf-8"

// Table is a ready to write export.
type Table struct {
	Domain  string
	Headers []string
	Rows    [][]string
}

// Export emits headers followed by rows. Fields containing commas, quotes or
// newlines are quoted and embedded quotes doubled.
func Export(w io.Writer, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTo writes t.
func (t Table) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := Export(cw, t.Headers, t.Rows)
	return cw.n, err
}

// Bytes renders t in memory.
func (t Table) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := t.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename returns data-<domain>-<YYYY-MM-DD>.csv using the UTC date of now.
func Filename(domainName string, now time.Time) string {
	return fmt.Sprintf("data-%s-%s.csv", domainName, now.UTC().Format("2006-01-02"))
}

// Availability labels.
const (
	Available   = "Tersedia"
	Unavailable = "Tidak Tersedia"
)

func availability(ok bool) string {
	if ok {
		return Available
	}
	return Unavailable
}

func num(n int64) string { return strconv.FormatInt(n, 10) }

// CatalogNames resolves the display names a product row needs.
type CatalogNames interface {
	CategoryName(id domain.ID) string
	ProductTypeName(p domain.Product) string
}

// UnknownCategory is rendered for products whose category was deleted.
const UnknownCategory = "(kategori tidak ditemukan)"

// Products builds the product table.
func Products(items []domain.Product, names CatalogNames) Table {
	t := Table{Domain: DomainProducts, Headers: []string{"No", "Nama Produk", "Kategori", "Jenis Produk", "Harga", "Stok", "Tanggal"}}
	for i, p := range items {
		category := names.CategoryName(p.CategoryID)
		if category == "" {
			category = UnknownCategory
		}
		created := ""
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.UTC().Format("2006-01-02")
		}
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), p.Name, category, names.ProductTypeName(p), num(p.Price), num(p.Stock), created})
	}
	return t
}

// Services builds the workshop service table.
func Services(items []domain.Service) Table {
	t := Table{Domain: DomainServices, Headers: []string{"No", "Nama Layanan", "Sub Kategori", "Harga", "Deskripsi", "Ketersediaan"}}
	for i, s := range items {
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), s.Name, s.SubCategory, num(s.Price), s.Description, availability(s.IsAvailable)})
	}
	return t
}

// Trainings builds the training table.
func Trainings(items []domain.Training) Table {
	t := Table{Domain: DomainTrainings, Headers: []string{"No", "Nama Pelatihan", "Harga", "Deskripsi", "Ketersediaan"}}
	for i, tr := range items {
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), tr.Name, num(tr.Price), tr.Description, availability(tr.IsAvailable)})
	}
	return t
}

// News builds the article table.
func News(items []domain.NewsArticle) Table {
	t := Table{Domain: DomainNews, Headers: []string{"No", "Tanggal", "Judul", "Kategori"}}
	for i, n := range items {
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), n.Date, n.Title, n.Category})
	}
	return t
}

// Reservations builds the booking table.
func Reservations(items []domain.Reservation) Table {
	t := Table{Domain: DomainReservations, Headers: []string{"No", "Nama Lengkap", "Telepon", "Email", "Jenis Layanan", "Tanggal", "Waktu", "Catatan"}}
	for i, r := range items {
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), r.FullName, r.Phone, r.Email, r.ServiceType, r.Date, r.Time, r.Notes})
	}
	return t
}

// Build renders the filtered view of domainName from svc. Products use the
// category and product type narrowing in q; other domains use q.Search only.
func Build(svc *core.Service, domainName string, q core.ProductQuery) (Table, error) {
	switch domainName {
	case DomainProducts:
		return Products(svc.QueryProducts(q), svc), nil
	case DomainServices:
		return Services(core.Filter(svc.Services.List(), q.Search, core.ServiceFields)), nil
	case DomainTrainings:
		return Trainings(core.Filter(svc.Trainings.List(), q.Search, core.TrainingFields)), nil
	case DomainNews:
		return News(core.Filter(svc.News.List(), q.Search, core.NewsFields)), nil
	case DomainReservations:
		return Reservations(core.Filter(svc.Reservations.List(), q.Search, core.ReservationFields)), nil
	default:
		return Table{}, fmt.Errorf("unknown export domain %q", domainName)
	}
}

// Archiver stores a copy of every export under exports/<uuid>/<filename>.
type Archiver struct {
	store blob.Store
	newID func() string
}

// NewArchiver returns an archiver writing to store.
func NewArchiver(store blob.Store) *Archiver {
	return &Archiver{store: store, newID: func() string { return uuid.NewString() }}
}

// Archive writes data and returns the stored object.
func (a *Archiver) Archive(ctx context.Context, filename string, data []byte) (blob.Info, error) {
	key := fmt.Sprintf("exports/%s/%s", a.newID(), filename)
	info, err := a.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: ContentType,
		Metadata:    map[string]string{"filename": filename},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive %s: %w", filename, err)
	}
	return info, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
