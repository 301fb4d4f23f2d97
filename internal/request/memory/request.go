package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/frahmantamala/expense-approval/internal/request"
)

// RequestRepository is a map backed repository for tests and single process runs.
type RequestRepository struct {
	mu       sync.RWMutex
	requests map[string]request.ApprovalRequest
}

func NewRequestRepository() *RequestRepository {
	return &RequestRepository{requests: make(map[string]request.ApprovalRequest)}
}

func (r *RequestRepository) Get(_ context.Context, id string) (*request.ApprovalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	c := stored.Clone()
	return &c, nil
}

func (r *RequestRepository) List(_ context.Context) ([]request.ApprovalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]request.ApprovalRequest, 0, len(r.requests))
	for _, stored := range r.requests {
		out = append(out, stored.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RequestRepository) Save(_ context.Context, req request.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current *request.ApprovalRequest
	if stored, ok := r.requests[req.ID]; ok {
		current = &stored
	}
	if err := request.CheckVersion(current, req); err != nil {
		return err
	}
	r.requests[req.ID] = req.Clone()
	return nil
}

func (r *RequestRepository) Remove(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[id]; !ok {
		return false, nil
	}
	delete(r.requests, id)
	return true, nil
}
