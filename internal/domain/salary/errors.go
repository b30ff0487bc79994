package salary

import "errors"

var (
	ErrSalaryStructureNotFound = errors.New("salary structure not found")
	ErrNegativeAmount          = errors.New("salary amounts must be non-negative")
	ErrDuplicateEmployee       = errors.New("employee appears more than once in the request")
)
