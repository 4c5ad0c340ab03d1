package form

import (
	"fmt"
	"net/mail"
	"time"

	"motoriz/pkg/domain"
)

// NewsDateLayout is the day/month/year layout of article dates. Day and month
// are written without padding.
const NewsDateLayout = "2/1/2006"

// Layouts used by reservation slots.
const (
	ReservationDateLayout = "2006-01-02"
	ReservationTimeLayout = "15:04"
)

// News is the article form. Now supplies the default date of a new article.
type News struct {
	Now func() time.Time
}

func (News) Entity() domain.EntityType { return domain.EntityNews }

func (News) Fields() []Field {
	return []Field{
		{Name: "date", Label: "Tanggal", Required: true},
		{Name: "title", Label: "Judul", Required: true},
		{Name: "category", Label: "Kategori", Required: true},
		{Name: "image", Label: "Gambar"},
		{Name: "content", Label: "Konten"},
	}
}

// FormatNewsDate renders t in the article date layout.
func FormatNewsDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}

func (a News) ToDraft(rec *domain.NewsArticle) Draft {
	if rec == nil {
		now := time.Now
		if a.Now != nil {
			now = a.Now
		}
		return Draft{"date": FormatNewsDate(now()), "title": "", "category": "", "image": "", "content": ""}
	}
	return Draft{
		"date":     rec.Date,
		"title":    rec.Title,
		"category": rec.Category,
		"image":    rec.Image,
		"content":  rec.Content,
	}
}

func (a News) FromDraft(d Draft) (domain.NewsArticle, error) {
	rec := domain.NewsArticle{
		Date:     d.Get("date"),
		Title:    d.Get("title"),
		Category: d.Get("category"),
		Image:    d.Get("image"),
		Content:  d.Get("content"),
	}
	if err := a.Validate(rec); err != nil {
		return domain.NewsArticle{}, err
	}
	return rec, nil
}

func (News) Validate(rec domain.NewsArticle) error {
	var p problems
	if rec.Date == "" {
		p.add("date", "is required")
	} else if _, err := time.Parse(NewsDateLayout, rec.Date); err != nil {
		p.add("date", "must look like 24/9/2025")
	}
	p.required("title", rec.Title)
	p.required("category", rec.Category)
	return p.err()
}

// Reservations is the booking form.
type Reservations struct{}

func (Reservations) Entity() domain.EntityType { return domain.EntityReservation }

func (Reservations) Fields() []Field {
	return []Field{
		{Name: "fullName", Label: "Nama Lengkap", Required: true},
		{Name: "phone", Label: "Telepon", Required: true},
		{Name: "email", Label: "Email"},
		{Name: "serviceType", Label: "Jenis Layanan", Required: true},
		{Name: "date", Label: "Tanggal", Required: true},
		{Name: "time", Label: "Waktu", Required: true},
		{Name: "notes", Label: "Catatan"},
	}
}

func (Reservations) ToDraft(rec *domain.Reservation) Draft {
	if rec == nil {
		return Draft{"fullName": "", "phone": "", "email": "", "serviceType": "", "date": "", "time": "", "notes": ""}
	}
	return Draft{
		"fullName":    rec.FullName,
		"phone":       rec.Phone,
		"email":       rec.Email,
		"serviceType": rec.ServiceType,
		"date":        rec.Date,
		"time":        rec.Time,
		"notes":       rec.Notes,
	}
}

func (a Reservations) FromDraft(d Draft) (domain.Reservation, error) {
	rec := domain.Reservation{
		FullName:    d.Get("fullName"),
		Phone:       d.Get("phone"),
		Email:       d.Get("email"),
		ServiceType: d.Get("serviceType"),
		Date:        d.Get("date"),
		Time:        d.Get("time"),
		Notes:       d.Get("notes"),
	}
	if err := a.Validate(rec); err != nil {
		return domain.Reservation{}, err
	}
	return rec, nil
}

func (Reservations) Validate(rec domain.Reservation) error {
	var p problems
	p.required("fullName", rec.FullName)
	p.required("phone", rec.Phone)
	if rec.Email != "" {
		if addr, err := mail.ParseAddress(rec.Email); err != nil || addr.Address != rec.Email {
			p.add("email", "must be a valid email address")
		}
	}
	p.required("serviceType", rec.ServiceType)
	checkLayout(&p, "date", rec.Date, ReservationDateLayout, "must look like 2025-10-05")
	checkLayout(&p, "time", rec.Time, ReservationTimeLayout, "must look like 09:00")
	return p.err()
}

func checkLayout(p *problems, field, value, layout, msg string) {
	if value == "" {
		p.add(field, "is required")
		return
	}
	if _, err := time.Parse(layout, value); err != nil {
		p.add(field, msg)
	}
}
