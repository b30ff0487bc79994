package salary

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalaryStructure is the single active compensation definition of an
// employee. Earnings are full-month amounts; deductions are fixed per month.
type SalaryStructure struct {
	ID         string
	CompanyID  string
	EmployeeID string

	// Earnings
	BasicSalary      decimal.Decimal
	HousingAllowance decimal.Decimal
	SpecialAllowance decimal.Decimal
	Bonus            decimal.Decimal
	OtherAllowance   decimal.Decimal

	// Deductions
	ProvidentFund  decimal.Decimal
	TaxDeduction   decimal.Decimal
	OtherDeduction decimal.Decimal

	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalEarnings is the full-month gross before proration.
func (s SalaryStructure) TotalEarnings() decimal.Decimal {
	return s.BasicSalary.Add(s.HousingAllowance).Add(s.SpecialAllowance).Add(s.Bonus).Add(s.OtherAllowance)
}

// TotalDeductions sums the fixed deductions.
func (s SalaryStructure) TotalDeductions() decimal.Decimal {
	return s.ProvidentFund.Add(s.TaxDeduction).Add(s.OtherDeduction)
}

// Snapshot renders the compensation fields as strings for history and audit diffs.
func (s SalaryStructure) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"basic_salary":      s.BasicSalary.StringFixed(2),
		"housing_allowance": s.HousingAllowance.StringFixed(2),
		"special_allowance": s.SpecialAllowance.StringFixed(2),
		"bonus":             s.Bonus.StringFixed(2),
		"other_allowance":   s.OtherAllowance.StringFixed(2),
		"provident_fund":    s.ProvidentFund.StringFixed(2),
		"tax_deduction":     s.TaxDeduction.StringFixed(2),
		"other_deduction":   s.OtherDeduction.StringFixed(2),
	}
}

// StructureHistory is appended on every structure mutation.
type StructureHistory struct {
	ID          string
	CompanyID   string
	EmployeeID  string
	StructureID string
	Before      map[string]interface{}
	After       map[string]interface{}
	Changes     []map[string]interface{}
	ChangedBy   string
	ChangedAt   time.Time
}
