package audit

import (
	"context"
	"errors"
)

var ErrInvalidEntityType = errors.New("invalid audit entity type")

type Filter struct {
	EntityType *string
	EntityID   *string
	Action     *string
	ActorID    *string
	Page       int
	Limit      int
}

type Repository interface {
	Create(ctx context.Context, entry Entry) error
	List(ctx context.Context, companyID string, filter Filter) ([]Entry, int64, error)
}
