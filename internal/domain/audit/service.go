package audit

import (
	"context"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
)

type Service interface {
	List(ctx context.Context, viewer user.Viewer, req ListRequest) (ListResponse, error)
}
