// Package pipeline runs extraction requests end to end: authorization, file resolution,
// backend selection, extraction and rendering. Every request yields a result; no error
// or panic from a resolver or backend leaves Extract.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/internal/log"
	"github.com/On-Jun9/MetaProbe/internal/metadata"
	"github.com/On-Jun9/MetaProbe/internal/postproc"
	"github.com/On-Jun9/MetaProbe/internal/render"
	"github.com/On-Jun9/MetaProbe/pkg/types"
)

var previewExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true}

// Resolver turns a file reference into a readable local file.
type Resolver interface {
	Resolve(ctx context.Context, reference string) (types.FileHandle, error)
}

// Request is one extraction call.
type Request struct {
	Reference  string `json:"file"`
	Service    string `json:"service"`
	Authorized bool   `json:"-"`
}

// BatchSummary counts the outcome of ExtractBatch.
type BatchSummary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

type Pipeline struct {
	cfg              *config.Config
	registry         *metadata.Registry
	resolver         Resolver
	logger           *log.Logger
	progressMu       sync.Mutex
	progressCallback ProgressCallback
}

func New(cfg *config.Config, registry *metadata.Registry, resolver Resolver, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Discard()
	}
	return &Pipeline{
		cfg:      cfg,
		registry: registry,
		resolver: resolver,
		logger:   logger,
	}
}

func (p *Pipeline) SetProgressCallback(cb ProgressCallback) {
	p.progressMu.Lock()
	defer p.progressMu.Unlock()
	p.progressCallback = cb
}

func (p *Pipeline) notify(update ProgressUpdate) {
	p.progressMu.Lock()
	defer p.progressMu.Unlock()
	if p.progressCallback != nil {
		p.progressCallback(update)
	}
}

// Services reports which backends can be constructed with the current configuration.
func (p *Pipeline) Services(ctx context.Context) []types.ServiceStatus {
	return p.registry.Availability(ctx, p.cfg)
}

// Decode applies a post-processor to a single value.
func (p *Pipeline) Decode(processor, value string) (string, error) {
	return postproc.Apply(processor, value)
}

// Extract runs one request. The result always comes back; Success reports the outcome and
// Message carries the reason of a failure.
func (p *Pipeline) Extract(ctx context.Context, req Request) (result types.ExtractionResult) {
	start := time.Now()
	result = types.ExtractionResult{
		RequestID: uuid.NewString(),
		Reference: req.Reference,
		Service:   types.BackendName(strings.ToLower(strings.TrimSpace(req.Service))),
	}

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Preview = ""
			result.Message = fmt.Sprintf("internal error: %v", r)
			result.HTML = result.Message
		}
		result.Duration = time.Since(start)
		p.logger.LogExtraction(result)

		logged := result
		p.notify(ProgressUpdate{
			Type:     UpdateExtraction,
			Filename: req.Reference,
			Result:   &logged,
			Error:    failureMessage(result),
		})
	}()

	if !req.Authorized {
		result.Message = (&metadata.UnauthorizedError{}).Error()
		return result
	}

	handle, err := p.resolver.Resolve(ctx, req.Reference)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	defer func() {
		if err := handle.Release(); err != nil {
			p.logger.Error("Failed to release "+handle.Reference, err)
		}
	}()

	sel := p.registry.Build(ctx, req.Service, p.cfg)
	if sel.Service == nil {
		result.Message = sel.Message
		var unsupported *metadata.UnsupportedBackendError
		if !errors.As(sel.Err, &unsupported) {
			result.HTML = sel.Message
		}
		return result
	}
	result.Service = sel.Service.Name()

	tree, err := sel.Service.ExtractMetadata(ctx, handle)
	if tree == nil {
		tree = types.NewTree()
	}
	result.Metadata = tree

	if err != nil {
		result.Message = err.Error()
		if tree.Len() > 0 {
			result.HTML = render.HTML(tree)
		} else {
			result.HTML = result.Message
		}
		return result
	}

	result.Success = true
	result.HTML = render.HTML(tree)
	if previewExtensions[handle.Extension] {
		result.Preview = `<img src="` + render.Escape(handle.PublicURL) + `" alt="" width="300" />`
	}

	return result
}

// ExtractBatch runs independent requests on up to jobs workers. Results are returned in
// request order.
func (p *Pipeline) ExtractBatch(ctx context.Context, reqs []Request, jobs int) ([]types.ExtractionResult, BatchSummary) {
	start := time.Now()
	if jobs < 1 {
		jobs = 1
	}

	results := make([]types.ExtractionResult, len(reqs))
	var (
		mu        sync.Mutex
		processed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, req := range reqs {
		g.Go(func() error {
			results[i] = p.Extract(gctx, req)

			mu.Lock()
			processed++
			current := processed
			p.logger.Progress(current, len(reqs), req.Reference)
			mu.Unlock()

			p.notify(ProgressUpdate{
				Type:     UpdateProgress,
				Current:  current,
				Total:    len(reqs),
				Filename: req.Reference,
			})
			return nil
		})
	}
	_ = g.Wait()

	summary := BatchSummary{Total: len(reqs), Duration: time.Since(start)}
	for _, r := range results {
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	if len(reqs) > 0 {
		p.logger.Summary(summary.Total, summary.Succeeded, summary.Duration)
	}
	p.notify(ProgressUpdate{Type: UpdateComplete, Total: summary.Total, Summary: &summary})

	return results, summary
}

func failureMessage(result types.ExtractionResult) string {
	if result.Success {
		return ""
	}
	return result.Message
}
