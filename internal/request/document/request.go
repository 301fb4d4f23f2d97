// Package document stores requests as a single JSON array in a kvstore key,
// the layout used by the original browser storage.
package document

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/frahmantamala/expense-approval/internal/core/kvstore"
	"github.com/frahmantamala/expense-approval/internal/request"
)

const DefaultKey = "expense_requests"

type RequestRepository struct {
	store *kvstore.Store
	key   string
	mu    sync.RWMutex
}

func NewRequestRepository(store *kvstore.Store, key string) *RequestRepository {
	if key == "" {
		key = DefaultKey
	}
	return &RequestRepository{store: store, key: key}
}

func (r *RequestRepository) load(ctx context.Context) ([]record, error) {
	var records []record
	if _, err := r.store.Get(ctx, r.key, &records); err != nil {
		return nil, fmt.Errorf("load %s: %w", r.key, err)
	}
	return records, nil
}

func (r *RequestRepository) Get(ctx context.Context, id string) (*request.ApprovalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID == id {
			req := rec.toRequest()
			if err := request.CheckStored(req); err != nil {
				return nil, err
			}
			return &req, nil
		}
	}
	return nil, nil
}

func (r *RequestRepository) List(ctx context.Context) ([]request.ApprovalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]request.ApprovalRequest, 0, len(records))
	for _, rec := range records {
		req := rec.toRequest()
		if err := request.CheckStored(req); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Save rewrites the whole array with req inserted or replaced.
func (r *RequestRepository) Save(ctx context.Context, req request.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return err
	}

	idx := -1
	var current *request.ApprovalRequest
	for i, rec := range records {
		if rec.ID == req.ID {
			stored := rec.toRequest()
			current = &stored
			idx = i
			break
		}
	}
	if err := request.CheckVersion(current, req); err != nil {
		return err
	}

	if idx >= 0 {
		records[idx] = toRecord(req)
	} else {
		records = append(records, toRecord(req))
	}
	if err := r.store.Put(ctx, r.key, records); err != nil {
		return fmt.Errorf("save %s: %w", r.key, err)
	}
	return nil
}

func (r *RequestRepository) Remove(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return false, err
	}
	kept := records[:0]
	removed := false
	for _, rec := range records {
		if rec.ID == id {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	if !removed {
		return false, nil
	}
	if err := r.store.Put(ctx, r.key, kept); err != nil {
		return false, fmt.Errorf("save %s: %w", r.key, err)
	}
	return true, nil
}
