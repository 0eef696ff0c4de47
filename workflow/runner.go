package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel SupplyData calls when none is set.
const DefaultConcurrency = 4

// Runner supplies data for the items of a node, in parallel.
type Runner struct {
	registry    *Registry
	concurrency int
	opts        []ExecutionOption
}

// NewRunner creates a runner; opts apply to every ExecutionContext it builds.
func NewRunner(registry *Registry, concurrency int, opts ...ExecutionOption) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Runner{registry: registry, concurrency: concurrency, opts: opts}
}

// SupplyResult holds the supplied data per item index.
type SupplyResult struct {
	Context *ExecutionContext
	Items   []*SupplyData
}

// Close closes every supplied item.
func (r *SupplyResult) Close() error {
	var errs []error
	for _, sd := range r.Items {
		if err := sd.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Supply calls SupplyData for items 0..items-1. The first failure cancels
// the remaining calls and closes what was already supplied.
func (r *Runner) Supply(ctx context.Context, node *Node, items int) (*SupplyResult, error) {
	if node == nil {
		return nil, errors.New("supply: nil node")
	}
	if items <= 0 {
		return nil, fmt.Errorf("supply: item count must be positive, got %d", items)
	}
	impl, err := r.registry.Get(node.Type)
	if err != nil {
		return nil, err
	}

	ec := NewExecutionContext(impl.Description(), node, r.opts...)
	ctx, span := ec.Tracer().Start(ctx, "workflow.supply",
		trace.WithAttributes(
			attribute.String("node.name", node.Name),
			attribute.String("node.type", node.Type),
			attribute.String("execution.id", ec.ExecutionID()),
			attribute.Int("items", items),
		))
	defer span.End()

	result := &SupplyResult{Context: ec, Items: make([]*SupplyData, items)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := 0; i < items; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sd, err := impl.SupplyData(gctx, SupplyInput{Functions: ec, ItemIndex: i})
			if err != nil {
				return fmt.Errorf("supply item %d: %w", i, err)
			}
			result.Items[i] = sd
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if cerr := result.Close(); cerr != nil {
			ec.Logger().Warn("close supplied data", zap.Error(cerr))
		}
		return nil, err
	}

	ec.Logger().Debug("supplied data", zap.Int("items", items))
	return result, nil
}
