package form

import (
	"strings"

	"motoriz/pkg/domain"
)

// CategorySource is the category view a product form needs.
type CategorySource interface {
	Get(id domain.ID) (domain.Category, bool)
	List() []domain.Category
}

// ProductTypeSource resolves product types.
type ProductTypeSource interface {
	Get(id domain.ID) (domain.ProductType, bool)
}

// Products is the product form.
type Products struct {
	Categories CategorySource
}

func (Products) Entity() domain.EntityType { return domain.EntityProduct }

func (Products) Fields() []Field {
	return []Field{
		{Name: "name", Label: "Nama Produk", Required: true},
		{Name: "categoryId", Label: "Kategori", Required: true},
		{Name: "productTypeId", Label: "Jenis Produk"},
		{Name: "brand", Label: "Merek"},
		{Name: "description", Label: "Deskripsi"},
		{Name: "price", Label: "Harga", Required: true},
		{Name: "stock", Label: "Stok", Required: true},
		{Name: "images", Label: "Gambar", Required: true},
	}
}

// ToDraft defaults a new product to the first available category.
func (a Products) ToDraft(rec *domain.Product) Draft {
	if rec == nil {
		d := Draft{"name": "", "categoryId": "", "productTypeId": "", "brand": "", "description": "", "price": "0", "stock": "0", "images": ""}
		if a.Categories != nil {
			if list := a.Categories.List(); len(list) > 0 {
				d["categoryId"] = list[0].ID.String()
			}
		}
		return d
	}
	return Draft{
		"name":          rec.Name,
		"categoryId":    idText(rec.CategoryID),
		"productTypeId": idText(rec.ProductTypeID),
		"brand":         rec.Brand,
		"description":   rec.Description,
		"price":         amountText(rec.Price),
		"stock":         amountText(rec.Stock),
		"images":        joinList(rec.Images),
	}
}

func (a Products) FromDraft(d Draft) (domain.Product, error) {
	var p problems
	rec := domain.Product{
		Name:          d.Get("name"),
		Brand:         d.Get("brand"),
		Description:   d.Get("description"),
		CategoryID:    p.id(d, "categoryId"),
		ProductTypeID: p.id(d, "productTypeId"),
		Price:         p.amount(d, "price", false),
		Stock:         p.amount(d, "stock", false),
		Images:        splitList(d["images"]),
	}
	if err := p.merge(a.check(rec)).err(); err != nil {
		return domain.Product{}, err
	}
	return rec, nil
}

func (a Products) Validate(rec domain.Product) error {
	return a.check(rec).err()
}

func (a Products) check(rec domain.Product) problems {
	var p problems
	p.required("name", rec.Name)
	if rec.CategoryID == 0 {
		p.add("categoryId", "missing category")
	} else if a.Categories != nil {
		if _, ok := a.Categories.Get(rec.CategoryID); !ok {
			p.add("categoryId", "missing category")
		}
	}
	p.nonNegative("price", rec.Price)
	p.nonNegative("stock", rec.Stock)
	if len(rec.Images) == 0 {
		p.add("images", "at least one image is required")
	}
	return p
}

// Categories is the category form.
type Categories struct {
	ProductTypes ProductTypeSource
}

func (Categories) Entity() domain.EntityType { return domain.EntityCategory }

func (Categories) Fields() []Field {
	return []Field{
		{Name: "name", Label: "Nama Kategori", Required: true},
		{Name: "productTypeId", Label: "Jenis Produk"},
	}
}

func (Categories) ToDraft(rec *domain.Category) Draft {
	if rec == nil {
		return Draft{"name": "", "productTypeId": ""}
	}
	return Draft{"name": rec.Name, "productTypeId": idText(rec.ProductTypeID)}
}

func (a Categories) FromDraft(d Draft) (domain.Category, error) {
	var p problems
	rec := domain.Category{Name: d.Get("name"), ProductTypeID: p.id(d, "productTypeId")}
	if len(p) > 0 {
		return domain.Category{}, p.err()
	}
	if err := a.Validate(rec); err != nil {
		return domain.Category{}, err
	}
	return rec, nil
}

func (a Categories) Validate(rec domain.Category) error {
	var p problems
	p.required("name", strings.TrimSpace(rec.Name))
	if rec.ProductTypeID != 0 && a.ProductTypes != nil {
		if _, ok := a.ProductTypes.Get(rec.ProductTypeID); !ok {
			p.add("productTypeId", "missing product type")
		}
	}
	return p.err()
}

// ProductTypes is the product type form.
type ProductTypes struct{}

func (ProductTypes) Entity() domain.EntityType { return domain.EntityProductType }

func (ProductTypes) Fields() []Field {
	return []Field{
		{Name: "name", Label: "Nama Jenis", Required: true},
		{Name: "description", Label: "Deskripsi"},
	}
}

func (ProductTypes) ToDraft(rec *domain.ProductType) Draft {
	if rec == nil {
		return Draft{"name": "", "description": ""}
	}
	return Draft{"name": rec.Name, "description": rec.Description}
}

func (a ProductTypes) FromDraft(d Draft) (domain.ProductType, error) {
	rec := domain.ProductType{Name: d.Get("name"), Description: d.Get("description")}
	if err := a.Validate(rec); err != nil {
		return domain.ProductType{}, err
	}
	return rec, nil
}

func (ProductTypes) Validate(rec domain.ProductType) error {
	var p problems
	p.required("name", rec.Name)
	return p.err()
}
