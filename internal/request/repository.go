package request

import (
	"context"
	"fmt"

	"github.com/frahmantamala/expense-approval/internal"
)

// Repository persists request snapshots keyed by id.
//
// Get returns (nil, nil) when the id is unknown. Save stores next only if the
// stored snapshot is next.Version-1, or if nothing is stored and next.Version
// is 1; otherwise it returns internal.ErrVersionConflict. Remove reports
// whether a snapshot was deleted.
type Repository interface {
	Get(ctx context.Context, id string) (*ApprovalRequest, error)
	List(ctx context.Context) ([]ApprovalRequest, error)
	Save(ctx context.Context, req ApprovalRequest) error
	Remove(ctx context.Context, id string) (bool, error)
}

// CheckVersion applies the optimistic concurrency rule used by Save.
func CheckVersion(stored *ApprovalRequest, next ApprovalRequest) error {
	if stored == nil {
		if next.Version != 1 {
			return internal.ErrVersionConflict.WithDetails(map[string]interface{}{
				"request_id": next.ID,
				"expected":   next.Version - 1,
				"actual":     0,
			})
		}
		return nil
	}
	if stored.Version != next.Version-1 {
		return internal.ErrVersionConflict.WithDetails(map[string]interface{}{
			"request_id": next.ID,
			"expected":   next.Version - 1,
			"actual":     stored.Version,
		})
	}
	return nil
}

// CheckStored validates a snapshot read back from storage. A snapshot that
// breaks the entity invariants is reported as ErrCorruptRequest.
func CheckStored(req ApprovalRequest) error {
	if err := req.Validate(); err != nil {
		return internal.ErrCorruptRequest.
			WithCause(err).
			WithDetails(map[string]string{"request_id": req.ID})
	}
	return nil
}

// ErrNotFound builds the not found error for an id.
func ErrNotFound(id string) error {
	return internal.ErrRequestNotFound.WithDetails(map[string]string{"request_id": id})
}

func wrapRepoErr(op string, err error) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
