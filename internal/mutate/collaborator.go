package mutate

import (
	"context"

	"talentcore/internal/cache"
	"talentcore/pkg/domain"
)

// Collaborator is the external HTTP client contract for one resource type.
// Implementations return the server-confirmed record on success and reject
// with *domain.APIError on transport or server failures.
type Collaborator[R domain.Record[R]] interface {
	Create(ctx context.Context, record R) (R, error)
	Update(ctx context.Context, id string, patch domain.Patch) (R, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[R], error)
}

// Sink receives the settled outcome of every mutation cycle, for audit
// journaling. Implementations must not block the mutation path.
type Sink interface {
	Record(ctx context.Context, scopeID string, change domain.Change, outcome domain.Outcome, errMessage string)
}
