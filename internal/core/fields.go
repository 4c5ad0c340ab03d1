package core

import "motoriz/pkg/domain"

// CategoryLookup resolves a category by id.
type CategoryLookup interface {
	Get(id domain.ID) (domain.Category, bool)
}

// ProductFields searches name, brand and the resolved category name.
func ProductFields(categories CategoryLookup) FieldsFunc[domain.Product] {
	return func(p domain.Product) []string {
		fields := []string{p.Name, p.Brand}
		if categories != nil {
			if c, ok := categories.Get(p.CategoryID); ok {
				fields = append(fields, c.Name)
			}
		}
		return fields
	}
}

// CategoryFields searches the category name.
func CategoryFields(c domain.Category) []string { return []string{c.Name} }

// ProductTypeFields searches name and description.
func ProductTypeFields(p domain.ProductType) []string { return []string{p.Name, p.Description} }

// ServiceFields searches name and sub category.
func ServiceFields(s domain.Service) []string { return []string{s.Name, s.SubCategory} }

// TrainingFields searches name and description.
func TrainingFields(t domain.Training) []string { return []string{t.Name, t.Description} }

// NewsFields searches title and category.
func NewsFields(n domain.NewsArticle) []string { return []string{n.Title, n.Category} }

// ReservationFields searches customer name, phone and email.
func ReservationFields(r domain.Reservation) []string { return []string{r.FullName, r.Phone, r.Email} }

// ProductQuery narrows the product list the way the product listing endpoint does.
type ProductQuery struct {
	Search        string
	CategoryID    domain.ID
	ProductTypeID domain.ID
}

// FilterProducts applies q to products. Product type matching falls back to
// the category's product type when the product has none of its own.
func FilterProducts(products []domain.Product, q ProductQuery, categories CategoryLookup) []domain.Product {
	out := Filter(products, q.Search, ProductFields(categories))
	if q.CategoryID != 0 {
		out = Where(out, func(p domain.Product) bool { return p.CategoryID == q.CategoryID })
	}
	if q.ProductTypeID != 0 {
		out = Where(out, func(p domain.Product) bool {
			return ProductTypeOf(p, categories) == q.ProductTypeID
		})
	}
	return out
}

// ProductTypeOf returns the effective product type of p.
func ProductTypeOf(p domain.Product, categories CategoryLookup) domain.ID {
	if p.ProductTypeID != 0 || categories == nil {
		return p.ProductTypeID
	}
	if c, ok := categories.Get(p.CategoryID); ok {
		return c.ProductTypeID
	}
	return 0
}
