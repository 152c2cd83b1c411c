package metadata

import (
	"context"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// maxSuggestionDistance is the largest edit distance for which an unknown name gets a
// "did you mean" hint.
const maxSuggestionDistance = 3

// Constructor builds a ready backend from the configuration.
type Constructor func(ctx context.Context, cfg *config.Config) (Service, error)

// Registry maps backend names to their constructors.
type Registry struct {
	constructors map[types.BackendName]Constructor
}

// NewRegistry returns a registry holding every built-in backend.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[types.BackendName]Constructor)}

	r.Register(types.BackendExifTool, func(_ context.Context, cfg *config.Config) (Service, error) {
		return NewExifTool(cfg)
	})
	r.Register(types.BackendPdfinfo, func(_ context.Context, cfg *config.Config) (Service, error) {
		return NewPdfinfo(cfg)
	})
	r.Register(types.BackendPHP, func(_ context.Context, cfg *config.Config) (Service, error) {
		return NewNative(cfg)
	})
	r.Register(types.BackendTika, NewTika)
	r.Register(types.BackendDocconv, func(_ context.Context, cfg *config.Config) (Service, error) {
		return NewDocconv(cfg)
	})

	return r
}

// Register adds or replaces the constructor for name.
func (r *Registry) Register(name types.BackendName, c Constructor) {
	r.constructors[normalizeName(string(name))] = c
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []types.BackendName {
	names := make([]types.BackendName, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Select constructs the backend registered under name. An unknown name is an
// *UnsupportedBackendError; construction errors are returned unchanged.
func (r *Registry) Select(ctx context.Context, name string, cfg *config.Config) (Service, error) {
	c, ok := r.constructors[normalizeName(name)]
	if !ok {
		return nil, &UnsupportedBackendError{Name: name, Suggestion: r.suggest(name)}
	}
	return c(ctx, cfg)
}

// Selection is the outcome of Build: either a ready backend or a displayable message.
type Selection struct {
	Service Service
	Message string
	Err     error
}

// Build is Select without an error return. The failure, if any, is carried in the
// Selection as a message.
func (r *Registry) Build(ctx context.Context, name string, cfg *config.Config) Selection {
	s, err := r.Select(ctx, name, cfg)
	if err != nil {
		return Selection{Message: err.Error(), Err: err}
	}
	return Selection{Service: s}
}

// Availability constructs every backend and reports which ones are usable.
func (r *Registry) Availability(ctx context.Context, cfg *config.Config) []types.ServiceStatus {
	names := r.Names()
	statuses := make([]types.ServiceStatus, 0, len(names))

	for _, name := range names {
		status := types.ServiceStatus{Name: name}
		sel := r.Build(ctx, string(name), cfg)
		if sel.Service != nil {
			status.Available = true
			status.SupportedTypes = sel.Service.SupportedFileTypes()
		} else {
			status.Message = sel.Message
		}
		statuses = append(statuses, status)
	}

	return statuses
}

func (r *Registry) suggest(name string) types.BackendName {
	key := normalizeName(name)
	if key == "" {
		return ""
	}

	best := types.BackendName("")
	bestDist := maxSuggestionDistance + 1
	for _, candidate := range r.Names() {
		d := levenshtein.Distance(string(key), string(candidate), nil)
		if d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

func normalizeName(name string) types.BackendName {
	return types.BackendName(strings.ToLower(strings.TrimSpace(name)))
}
