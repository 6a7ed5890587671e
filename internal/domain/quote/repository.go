package quote

import (
	"context"

	"crm-billing/go_backend/internal/domain/identity"
)

// Repository persists quotes. Create and Update write the header and the
// full item set in one unit; Update replaces the items rather than diffing
// them. A duplicate quote number is reported as ErrNumberConflict.
type Repository interface {
	Create(ctx context.Context, owner identity.Identity, q *Quote) error
	Update(ctx context.Context, owner identity.Identity, q *Quote) error
	Get(ctx context.Context, owner identity.Identity, id string) (*Quote, error)
	List(ctx context.Context, owner identity.Identity, f ListFilter) ([]Quote, error)
}
