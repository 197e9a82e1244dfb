package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/dartgest/internal/doctree"
)

// maxSuffix bounds collision probing for a single identifier.
const maxSuffix = 10000

// ErrNoIdentifier is returned when a record without a documentId is routed.
var ErrNoIdentifier = errors.New("record has no documentId")

// Prober reports whether an identifier already exists in an index.
type Prober interface {
	Exists(ctx context.Context, index, id string) (bool, error)
}

// Admin creates indices.
type Admin interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, body map[string]any) error
}

// BulkAction is a routed record ready for bulk submission.
type BulkAction struct {
	TargetIndex string
	ResolvedID  string
	Document    *doctree.Record
}

// Router chooses the target index for a record and resolves a collision-free
// identifier within it.
//
// Identifiers handed out by a Router stay reserved until Release, so two
// routings in the same process never receive the same identifier even when
// neither has been written yet. Writers in other processes are not
// coordinated; the index remains last-writer-wins across processes.
type Router struct {
	registry Registry
	prober   Prober
	log      *slog.Logger

	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewRouter creates a Router.
func NewRouter(reg Registry, prober Prober, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		registry: reg,
		prober:   prober,
		log:      log,
		reserved: make(map[string]struct{}),
	}
}

// Registry returns the router's registry.
func (r *Router) Registry() Registry {
	return r.registry
}

// Route picks the index for rec and resolves its identifier: the documentId
// itself if free, otherwise the first free of documentId_1, documentId_2, ...
func (r *Router) Route(ctx context.Context, rec *doctree.Record) (BulkAction, error) {
	if rec == nil || rec.DocumentID == "" {
		return BulkAction{}, ErrNoIdentifier
	}
	target := r.registry.IndexFor(rec.DocumentTypeCode)

	id, err := r.resolve(ctx, target, rec.DocumentID)
	if err != nil {
		return BulkAction{}, err
	}
	return BulkAction{TargetIndex: target, ResolvedID: id, Document: rec}, nil
}

func (r *Router) resolve(ctx context.Context, index, base string) (string, error) {
	for n := 0; n <= maxSuffix; n++ {
		candidate := base
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d", base, n)
		}
		if r.isReserved(index, candidate) {
			continue
		}

		exists, err := r.prober.Exists(ctx, index, candidate)
		if err != nil {
			return "", fmt.Errorf("probe %s/%s: %w", index, candidate, err)
		}
		if exists || !r.reserve(index, candidate) {
			continue
		}

		if n > 0 {
			r.log.Info("identifier collision resolved",
				"index", index, "document_id", base, "resolved_id", candidate)
		}
		return candidate, nil
	}
	return "", fmt.Errorf("resolve %s/%s: no free identifier after %d suffixes", index, base, maxSuffix)
}

func key(index, id string) string {
	return index + "\x00" + id
}

func (r *Router) isReserved(index, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.reserved[key(index, id)]
	return ok
}

// reserve claims id and reports whether this call claimed it.
func (r *Router) reserve(index, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(index, id)
	if _, ok := r.reserved[k]; ok {
		return false
	}
	r.reserved[k] = struct{}{}
	return true
}

// Release drops the reservations held by actions once they are submitted.
func (r *Router) Release(actions ...BulkAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range actions {
		delete(r.reserved, key(a.TargetIndex, a.ResolvedID))
	}
}

// EnsureIndices creates every index the registry routes to that does not
// already exist.
func EnsureIndices(ctx context.Context, admin Admin, reg Registry, log *slog.Logger) error {
	for _, name := range reg.Indices() {
		if err := EnsureIndex(ctx, admin, name, reg.Body(name), log); err != nil {
			return err
		}
	}
	return nil
}

// EnsureIndex creates one index with body unless it already exists.
func EnsureIndex(ctx context.Context, admin Admin, name string, body map[string]any, log *slog.Logger) error {
	exists, err := admin.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}
	if err := admin.CreateIndex(ctx, name, body); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	if log != nil {
		log.Info("index created", "index", name)
	}
	return nil
}
