package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/holiday"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/salary"
	"github.com/shopspring/decimal"
)

var (
	halfDay = decimal.NewFromFloat(0.5)
	fullDay = decimal.NewFromInt(1)
)

// ProrationInput is everything a proration run depends on. Prorate reads no
// clock and no store, so equal inputs always give equal results.
type ProrationInput struct {
	EmployeeID      string
	PeriodMonth     time.Time
	Holidays        holiday.DateSet
	Attendance      []attendance.Attendance
	UnpaidLeaves    []leave.LeaveRequest
	Structure       salary.SalaryStructure
	PayableOverride *decimal.Decimal
}

// Prorate computes working, LOP and payable days for the month and scales
// each earnings component by payable/working days. Deductions are fixed.
func Prorate(in ProrationInput) (payroll.CalculationResult, error) {
	monthStart := payroll.MonthStart(in.PeriodMonth)
	monthEnd := payroll.MonthEnd(monthStart)
	holidays := in.Holidays
	if holidays == nil {
		holidays = holiday.NewDateSet()
	}

	daysInMonth := monthEnd.Day()
	holidayCount := holidays.CountBetween(monthStart, monthEnd)
	workingDays := decimal.NewFromInt(int64(daysInMonth - holidayCount))

	attendanceLOP := attendanceLOPDays(in.Attendance, holidays, monthStart, monthEnd)
	unpaidLeaveLOP := unpaidLeaveDays(in.UnpaidLeaves, holidays, monthStart, monthEnd)

	lopDays := decimal.Min(workingDays, attendanceLOP.Add(unpaidLeaveLOP)).Round(2)
	payableDays := decimal.Max(decimal.Zero, workingDays.Sub(lopDays))

	overridden := false
	if in.PayableOverride != nil {
		override := *in.PayableOverride
		if override.IsNegative() || override.GreaterThan(workingDays) {
			return payroll.CalculationResult{}, fmt.Errorf("%w: %s not in [0, %s]", payroll.ErrPayableDaysOutOfRange, override.String(), workingDays.String())
		}
		payableDays = override.Round(2)
		lopDays = workingDays.Sub(payableDays)
		overridden = true
	}

	ratio := decimal.Zero
	if workingDays.IsPositive() {
		ratio = payableDays.Div(workingDays)
	}

	prorate := func(amount decimal.Decimal) decimal.Decimal {
		if !workingDays.IsPositive() {
			return decimal.Zero
		}
		return amount.Mul(payableDays).Div(workingDays).Round(2)
	}

	s := in.Structure
	earnings := payroll.Earnings{
		BasicSalary:      prorate(s.BasicSalary),
		HousingAllowance: prorate(s.HousingAllowance),
		SpecialAllowance: prorate(s.SpecialAllowance),
		Bonus:            prorate(s.Bonus),
		OtherAllowance:   prorate(s.OtherAllowance),
	}
	deductions := payroll.Deductions{
		ProvidentFund:  s.ProvidentFund.Round(2),
		TaxDeduction:   s.TaxDeduction.Round(2),
		OtherDeduction: s.OtherDeduction.Round(2),
	}

	gross := earnings.Total()
	totalDeductions := deductions.Total()
	net := decimal.Max(decimal.Zero, gross.Sub(totalDeductions))

	return payroll.CalculationResult{
		EmployeeID:        in.EmployeeID,
		PeriodMonth:       monthStart,
		DaysInMonth:       daysInMonth,
		HolidayCount:      holidayCount,
		WorkingDays:       workingDays,
		AttendanceLOPDays: attendanceLOP,
		UnpaidLeaveDays:   unpaidLeaveLOP,
		LOPDays:           lopDays,
		PayableDays:       payableDays,
		PayableOverridden: overridden,
		Ratio:             ratio.Round(6),
		Earnings:          earnings,
		GrossSalary:       gross,
		Deductions:        deductions,
		TotalDeductions:   totalDeductions,
		NetSalary:         net,
	}, nil
}

// attendanceLOPDays counts absent days as 1 and half days as 0.5. Holidays
// and rows outside the month never count.
func attendanceLOPDays(rows []attendance.Attendance, holidays holiday.DateSet, start, end time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		day := dateOnly(row.Date)
		if day.Before(start) || day.After(end) || holidays.Contains(day) {
			continue
		}
		switch row.Status {
		case attendance.StatusAbsent:
			total = total.Add(fullDay)
		case attendance.StatusHalfDay:
			total = total.Add(halfDay)
		}
	}
	return total
}

// unpaidLeaveDays clips each leave to the month and skips holidays inside
// the overlap. A half-day request covers its start date only.
func unpaidLeaveDays(requests []leave.LeaveRequest, holidays holiday.DateSet, start, end time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, req := range requests {
		from := dateOnly(req.StartDate)
		to := dateOnly(req.EndDate)

		if req.DurationType.IsHalfDay() {
			if from.Before(start) || from.After(end) || holidays.Contains(from) {
				continue
			}
			total = total.Add(halfDay)
			continue
		}

		if from.Before(start) {
			from = start
		}
		if to.After(end) {
			to = end
		}
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if !holidays.Contains(d) {
				total = total.Add(fullDay)
			}
		}
	}
	return total
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Calculator gathers proration inputs from the readers and runs Prorate.
type Calculator struct {
	holidays   holiday.Resolver
	attendance attendance.Reader
	leaves     leave.Reader
}

func NewCalculator(holidays holiday.Resolver, attendanceReader attendance.Reader, leaveReader leave.Reader) *Calculator {
	return &Calculator{
		holidays:   holidays,
		attendance: attendanceReader,
		leaves:     leaveReader,
	}
}

// Calculate returns ErrMissingSalaryStructure for a nil structure. Holidays
// are resolved for the employee's branch.
func (c *Calculator) Calculate(ctx context.Context, emp employee.Employee, monthStart time.Time, structure *salary.SalaryStructure, override *decimal.Decimal) (payroll.CalculationResult, error) {
	if structure == nil {
		return payroll.CalculationResult{}, fmt.Errorf("%w for employee %s", payroll.ErrMissingSalaryStructure, emp.ID)
	}

	start := payroll.MonthStart(monthStart)
	end := payroll.MonthEnd(start)

	holidays, err := c.holidays.DateMap(ctx, emp.CompanyID, start, end, emp.BranchID)
	if err != nil {
		return payroll.CalculationResult{}, fmt.Errorf("failed to resolve holidays: %w", err)
	}

	rows, err := c.attendance.ListByEmployeePeriod(ctx, emp.CompanyID, emp.ID, start, end)
	if err != nil {
		return payroll.CalculationResult{}, fmt.Errorf("failed to load attendance: %w", err)
	}

	leaves, err := c.leaves.ListApprovedUnpaid(ctx, emp.CompanyID, emp.ID, start, end)
	if err != nil {
		return payroll.CalculationResult{}, fmt.Errorf("failed to load unpaid leave: %w", err)
	}

	return Prorate(ProrationInput{
		EmployeeID:      emp.ID,
		PeriodMonth:     start,
		Holidays:        holidays,
		Attendance:      rows,
		UnpaidLeaves:    leaves,
		Structure:       *structure,
		PayableOverride: override,
	})
}
