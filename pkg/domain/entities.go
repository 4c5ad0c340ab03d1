// Package domain defines the records managed by the motoriz back office, the
// error taxonomy shared by every layer, and the contract persistence backends
// implement.
package domain

import (
	"strconv"
	"time"
)

// ID identifies a record inside one collection. IDs are assigned at creation,
// never change, and are never handed out twice by the same store.
type ID int64

// String renders the identifier in base 10.
func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseID parses a base 10 identifier. Zero and negative values are rejected.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return ID(n), nil
}

// EntityType names a collection. It is used in change events, persistence
// rows and error messages.
type EntityType string

// Supported collections.
const (
	EntityProduct     EntityType = "product"
	EntityCategory    EntityType = "category"
	EntityProductType EntityType = "product_type"
	EntityService     EntityType = "service"
	EntityTraining    EntityType = "training"
	EntityNews        EntityType = "news"
	EntityReservation EntityType = "reservation"
)

// Record is implemented by every collection element. WithID returns a copy
// carrying the supplied identifier so stores can assign ids without knowing
// the concrete type.
type Record[T any] interface {
	RecordID() ID
	WithID(ID) T
}

// Category groups products and belongs to a product type.
type Category struct {
	ID            ID        `json:"id"`
	Name          string    `json:"name"`
	ProductTypeID ID        `json:"productTypeId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (c Category) RecordID() ID { return c.ID }
func (c Category) WithID(id ID) Category { c.ID = id; return c }

// Created returns the creation timestamp.
func (c Category) Created() time.Time { return c.CreatedAt }

// WithCreated returns a copy stamped with t.
func (c Category) WithCreated(t time.Time) Category { c.CreatedAt = t; return c }

// ProductType is the top level product grouping (Motor Listrik, Suku Cadang, ...).
type ProductType struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (p ProductType) RecordID() ID { return p.ID }
func (p ProductType) WithID(id ID) ProductType { p.ID = id; return p }

// Product is a sellable item. CategoryID references a Category; deleting the
// category leaves the reference in place.
type Product struct {
	ID            ID        `json:"id"`
	CategoryID    ID        `json:"categoryId"`
	ProductTypeID ID        `json:"productTypeId,omitempty"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand,omitempty"`
	Description   string    `json:"description,omitempty"`
	Price         int64     `json:"price"`
	Stock         int64     `json:"stock"`
	Images        []string  `json:"images"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (p Product) RecordID() ID { return p.ID }

func (p Product) WithID(id ID) Product {
	p.ID = id
	p.Images = append([]string(nil), p.Images...)
	return p
}

// Created returns the creation timestamp.
func (p Product) Created() time.Time { return p.CreatedAt }

// WithCreated returns a copy stamped with t.
func (p Product) WithCreated(t time.Time) Product {
	p = p.WithID(p.ID)
	p.CreatedAt = t
	return p
}

// Service is a workshop service package.
type Service struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	SubCategory string `json:"subCategory"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	IsAvailable bool   `json:"isAvailable"`
}

func (s Service) RecordID() ID { return s.ID }
func (s Service) WithID(id ID) Service { s.ID = id; return s }

// Training is a paid course offered by the dealership.
type Training struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	IsAvailable bool   `json:"isAvailable"`
}

func (t Training) RecordID() ID { return t.ID }
func (t Training) WithID(id ID) Training { t.ID = id; return t }

// NewsArticle is a published article. Date keeps the DD/MM/YYYY form shown in
// the article list.
type NewsArticle struct {
	ID       ID     `json:"id"`
	Date     string `json:"date"`
	Image    string `json:"image"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

func (n NewsArticle) RecordID() ID { return n.ID }
func (n NewsArticle) WithID(id ID) NewsArticle { n.ID = id; return n }

// Reservation is a customer booking for a workshop slot.
type Reservation struct {
	ID          ID     `json:"id"`
	FullName    string `json:"fullName"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	ServiceType string `json:"serviceType"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Notes       string `json:"notes,omitempty"`
}

func (r Reservation) RecordID() ID { return r.ID }
func (r Reservation) WithID(id ID) Reservation { r.ID = id; return r }

// Profile is the single administrator profile edited on the settings page.
type Profile struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Position string `json:"position,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}
