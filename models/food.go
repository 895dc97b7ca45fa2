package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const MaxNameLength = 255

// Nutrition is stored in the same row as its Food (nutrition_* columns).
type Nutrition struct {
	Calories     float64     `json:"calories"`
	Carbohydrate float64     `json:"carbohydrate"`
	Fat          float64     `json:"fat"`
	Protein      float64     `json:"protein"`
	ServingSize  ServingSize `json:"servingSize" gorm:"size:16;not null"`
}

// Food is a named item with exactly one Nutrition value.
type Food struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"size:255;not null;index"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	Nutrition   Nutrition `json:"nutrition" gorm:"embedded;embeddedPrefix:nutrition_"`
	ImageURL    string    `json:"imageUrl,omitempty" gorm:"size:1024"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Food) TableName() string { return "foods" }

func (n Nutrition) Validate() error {
	var errs []error
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"calories", n.Calories},
		{"carbohydrate", n.Carbohydrate},
		{"fat", n.Fat},
		{"protein", n.Protein},
	} {
		if f.value < 0 {
			errs = append(errs, fmt.Errorf("nutrition.%s must not be negative", f.name))
		}
	}
	if !n.ServingSize.Valid() {
		errs = append(errs, fmt.Errorf("nutrition.servingSize %q is not a known unit", n.ServingSize))
	}
	return errors.Join(errs...)
}

// Validate reports every violated field at once.
func (f *Food) Validate() error {
	var errs []error
	name := strings.TrimSpace(f.Name)
	switch {
	case name == "":
		errs = append(errs, errors.New("name is required"))
	case len(name) > MaxNameLength:
		errs = append(errs, fmt.Errorf("name must be at most %d characters", MaxNameLength))
	}
	if err := f.Nutrition.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StringPtr is a helper for the optional description.
func StringPtr(s string) *string { return &s }
