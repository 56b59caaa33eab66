package medication

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinica/clinic/internal/platform/validation"
)

// LowStockThreshold is the stock level under which the pharmacy is warned.
const LowStockThreshold = 10

// Medication is one inventory line of the clinic pharmacy.
type Medication struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Stock        int       `db:"stock" json:"stock"`
	Content      *string   `db:"content" json:"content,omitempty"`
	PharmacyName *string   `db:"pharmacy_name" json:"pharmacy_name,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (m *Medication) Validate() validation.Errors {
	errs := validation.Errors{}
	if strings.TrimSpace(m.Name) == "" {
		errs.Add("name", "El nombre del medicamento es obligatorio")
	}
	if m.Stock < 0 {
		errs.Add("stock", "El stock no puede ser negativo")
	}
	return errs
}

// OutOfStock reports a depleted line.
func (m *Medication) OutOfStock() bool { return m.Stock == 0 }

// LowStock reports a line that is running out but not yet depleted.
func (m *Medication) LowStock() bool { return m.Stock > 0 && m.Stock < LowStockThreshold }

// StockAdjustment adds (or with a negative Delta removes) units.
type StockAdjustment struct {
	Delta int `json:"delta"`
}
