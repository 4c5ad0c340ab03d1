package form

import (
	"strconv"

	"motoriz/pkg/domain"
)

// Service sub categories offered by the workshop.
const (
	SubCategoryElectric   = "Service Motor Listrik"
	SubCategoryGasoline   = "Service Motor Bensin"
	SubCategoryConversion = "Konversi Motor"
)

// SubCategories lists the selectable service sub categories.
var SubCategories = []string{SubCategoryElectric, SubCategoryGasoline, SubCategoryConversion}

// Services is the workshop service form.
type Services struct{}

func (Services) Entity() domain.EntityType { return domain.EntityService }

func (Services) Fields() []Field {
	return []Field{
		{Name: "name", Label: "Nama Layanan", Required: true},
		{Name: "subCategory", Label: "Sub Kategori", Required: true},
		{Name: "price", Label: "Harga", Required: true},
		{Name: "description", Label: "Deskripsi", Required: true},
		{Name: "isAvailable", Label: "Ketersediaan"},
	}
}

func (Services) ToDraft(rec *domain.Service) Draft {
	if rec == nil {
		return Draft{"name": "", "subCategory": SubCategoryElectric, "price": "0", "description": "", "isAvailable": "true"}
	}
	return Draft{
		"name":        rec.Name,
		"subCategory": rec.SubCategory,
		"price":       amountText(rec.Price),
		"description": rec.Description,
		"isAvailable": strconv.FormatBool(rec.IsAvailable),
	}
}

func (a Services) FromDraft(d Draft) (domain.Service, error) {
	var p problems
	rec := domain.Service{
		Name:        d.Get("name"),
		SubCategory: d.Get("subCategory"),
		Price:       p.amount(d, "price", false),
		Description: d.Get("description"),
		IsAvailable: p.boolean(d, "isAvailable", true),
	}
	if err := p.merge(serviceProblems(rec)).err(); err != nil {
		return domain.Service{}, err
	}
	return rec, nil
}

func (Services) Validate(rec domain.Service) error { return serviceProblems(rec).err() }

func serviceProblems(rec domain.Service) problems {
	var p problems
	p.required("name", rec.Name)
	p.required("subCategory", rec.SubCategory)
	p.nonNegative("price", rec.Price)
	p.required("description", rec.Description)
	return p
}

// Trainings is the training course form.
type Trainings struct{}

func (Trainings) Entity() domain.EntityType { return domain.EntityTraining }

func (Trainings) Fields() []Field {
	return []Field{
		{Name: "name", Label: "Nama Pelatihan", Required: true},
		{Name: "price", Label: "Harga", Required: true},
		{Name: "description", Label: "Deskripsi", Required: true},
		{Name: "isAvailable", Label: "Ketersediaan"},
	}
}

func (Trainings) ToDraft(rec *domain.Training) Draft {
	if rec == nil {
		return Draft{"name": "", "price": "0", "description": "", "isAvailable": "true"}
	}
	return Draft{
		"name":        rec.Name,
		"price":       amountText(rec.Price),
		"description": rec.Description,
		"isAvailable": strconv.FormatBool(rec.IsAvailable),
	}
}

func (Trainings) FromDraft(d Draft) (domain.Training, error) {
	var p problems
	rec := domain.Training{
		Name:        d.Get("name"),
		Price:       p.amount(d, "price", false),
		Description: d.Get("description"),
		IsAvailable: p.boolean(d, "isAvailable", true),
	}
	if err := p.merge(trainingProblems(rec)).err(); err != nil {
		return domain.Training{}, err
	}
	return rec, nil
}

func (Trainings) Validate(rec domain.Training) error { return trainingProblems(rec).err() }

func trainingProblems(rec domain.Training) problems {
	var p problems
	p.required("name", rec.Name)
	p.nonNegative("price", rec.Price)
	p.required("description", rec.Description)
	return p
}
