package salary

import (
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type StructureInput struct {
	EmployeeID       string          `json:"employee_id" validate:"required,uuid"`
	BasicSalary      decimal.Decimal `json:"basic_salary" validate:"gte=0"`
	HousingAllowance decimal.Decimal `json:"housing_allowance" validate:"gte=0"`
	SpecialAllowance decimal.Decimal `json:"special_allowance" validate:"gte=0"`
	Bonus            decimal.Decimal `json:"bonus" validate:"gte=0"`
	OtherAllowance   decimal.Decimal `json:"other_allowance" validate:"gte=0"`
	ProvidentFund    decimal.Decimal `json:"provident_fund" validate:"gte=0"`
	TaxDeduction     decimal.Decimal `json:"tax_deduction" validate:"gte=0"`
	OtherDeduction   decimal.Decimal `json:"other_deduction" validate:"gte=0"`
}

// Apply copies the input amounts onto a structure, rounded to 2 dp.
func (in StructureInput) Apply(s SalaryStructure) SalaryStructure {
	s.EmployeeID = in.EmployeeID
	s.BasicSalary = in.BasicSalary.Round(2)
	s.HousingAllowance = in.HousingAllowance.Round(2)
	s.SpecialAllowance = in.SpecialAllowance.Round(2)
	s.Bonus = in.Bonus.Round(2)
	s.OtherAllowance = in.OtherAllowance.Round(2)
	s.ProvidentFund = in.ProvidentFund.Round(2)
	s.TaxDeduction = in.TaxDeduction.Round(2)
	s.OtherDeduction = in.OtherDeduction.Round(2)
	return s
}

type BulkUpsertStructureRequest struct {
	Items []StructureInput `json:"items" validate:"required,min=1,max=500,dive"`
}

func (r *BulkUpsertStructureRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}

	var errs validator.ValidationErrors
	seen := make(map[string]int, len(r.Items))
	for i, item := range r.Items {
		if first, ok := seen[item.EmployeeID]; ok {
			errs = append(errs, validator.ValidationError{
				Field:   fmt.Sprintf("items[%d].employee_id", i),
				Message: fmt.Sprintf("duplicates items[%d]", first),
			})
			continue
		}
		seen[item.EmployeeID] = i
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SalaryStructureResponse struct {
	ID               string          `json:"id"`
	EmployeeID       string          `json:"employee_id"`
	BasicSalary      decimal.Decimal `json:"basic_salary"`
	HousingAllowance decimal.Decimal `json:"housing_allowance"`
	SpecialAllowance decimal.Decimal `json:"special_allowance"`
	Bonus            decimal.Decimal `json:"bonus"`
	OtherAllowance   decimal.Decimal `json:"other_allowance"`
	ProvidentFund    decimal.Decimal `json:"provident_fund"`
	TaxDeduction     decimal.Decimal `json:"tax_deduction"`
	OtherDeduction   decimal.Decimal `json:"other_deduction"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	TotalDeductions  decimal.Decimal `json:"total_deductions"`
	UpdatedBy        string          `json:"updated_by"`
	UpdatedAt        string          `json:"updated_at"`
}

type StructureHistoryResponse struct {
	ID         string                   `json:"id"`
	EmployeeID string                   `json:"employee_id"`
	Before     map[string]interface{}   `json:"before,omitempty"`
	After      map[string]interface{}   `json:"after"`
	Changes    []map[string]interface{} `json:"changes"`
	ChangedBy  string                   `json:"changed_by"`
	ChangedAt  string                   `json:"changed_at"`
}

type BulkItemError struct {
	Index      int    `json:"index"`
	EmployeeID string `json:"employee_id"`
	Error      string `json:"error"`
}

type BulkUpsertResult struct {
	Total     int             `json:"total"`
	Created   int             `json:"created"`
	Updated   int             `json:"updated"`
	Unchanged int             `json:"unchanged"`
	Failed    int             `json:"failed"`
	Errors    []BulkItemError `json:"errors,omitempty"`
}
