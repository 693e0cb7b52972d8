package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/repo"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/jobqueue"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/venue"
)

// StatusPublisher pushes progress events to whatever sink is bound to the
// order. Delivery is best-effort and must never block the pipeline.
type StatusPublisher interface {
	Publish(orderID string, event *model.StatusEvent)
}

type Config struct {
	QuoteTimeout   time.Duration
	ExecuteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		QuoteTimeout:   5 * time.Second,
		ExecuteTimeout: 30 * time.Second,
	}
}

// Pipeline runs one order through the execution state machine:
// routing -> building -> submitted -> confirmed, or failed from any step.
// It is the queue's job handler and is safe for concurrent use.
type Pipeline struct {
	registry *venue.Registry
	status   StatusPublisher
	records  repo.IOrderRecord
	cfg      Config
}

func NewPipeline(registry *venue.Registry, status StatusPublisher, records repo.IOrderRecord, cfg Config) *Pipeline {
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = DefaultConfig().QuoteTimeout
	}
	if cfg.ExecuteTimeout <= 0 {
		cfg.ExecuteTimeout = DefaultConfig().ExecuteTimeout
	}
	return &Pipeline{
		registry: registry,
		status:   status,
		records:  records,
		cfg:      cfg,
	}
}

// Handle processes one delivered job. Business errors (venue failures,
// timeouts) publish a failed event, persist a failure record on the final
// attempt, and propagate so the queue's retry policy applies. A
// persistence error on the success path propagates without a failed event:
// that is an infrastructure problem the retry absorbs, not an execution
// outcome.
func (p *Pipeline) Handle(ctx context.Context, job *jobqueue.Job) error {
	order := job.Order
	log := zap.S().With("order_id", order.OrderID, "attempt", job.Attempt)
	log.Infof("processing order %s -> %s amount %s", order.AssetIn, order.AssetOut, order.AmountIn)

	p.status.Publish(order.OrderID, model.NewEventRouting(order.OrderID))

	best, err := p.route(ctx, order)
	if err != nil {
		return p.fail(ctx, job, err)
	}
	log.Infof("routing decision: chose %s with expected out %s", best.Venue, best.ExpectedOut)

	p.status.Publish(order.OrderID, model.NewEventBuilding(order.OrderID, best.Venue))

	result, err := p.execute(ctx, order, best)
	if err != nil {
		return p.fail(ctx, job, fmt.Errorf("execute on %s: %w", best.Venue, err))
	}

	p.status.Publish(order.OrderID, model.NewEventSubmitted(order.OrderID, best.Venue, result.TxHash))
	p.status.Publish(order.OrderID, model.NewEventConfirmed(order.OrderID, result))

	if err := p.records.CreateConfirmed(ctx, order, result); err != nil {
		return fmt.Errorf("persist confirmed order %s: %w", order.OrderID, err)
	}
	log.Infof("order confirmed on %s, tx %s", result.Venue, result.TxHash)
	return nil
}

// route fans quote requests out to every provider concurrently and joins
// on all of them: the selection needs every answer, not the first one.
func (p *Pipeline) route(ctx context.Context, order *model.Order) (*model.Quote, error) {
	providers := p.registry.Providers()
	if len(providers) == 0 {
		return nil, errNoProviders
	}

	quotes := make([]*model.Quote, len(providers))
	quoteErrs := make([]error, len(providers))

	var wg sync.WaitGroup
	for i, provider := range providers {
		wg.Add(1)
		go func(i int, provider venue.Provider) {
			defer wg.Done()
			quoteCtx, cancel := context.WithTimeout(ctx, p.cfg.QuoteTimeout)
			defer cancel()

			quote, err := provider.Quote(quoteCtx, order.AssetIn, order.AssetOut, order.AmountIn)
			if err != nil {
				quoteErrs[i] = fmt.Errorf("%s: %w", provider.Name(), err)
				return
			}
			quotes[i] = quote
		}(i, provider)
	}
	wg.Wait()

	best := selectBest(quotes)
	if best == nil {
		return nil, fmt.Errorf("%w: %w", errAllQuotesFailed, errors.Join(quoteErrs...))
	}
	return best, nil
}

func (p *Pipeline) execute(ctx context.Context, order *model.Order, quote *model.Quote) (*model.ExecutionResult, error) {
	provider, err := p.registry.Provider(quote.Venue)
	if err != nil {
		return nil, err
	}
	execCtx, cancel := context.WithTimeout(ctx, p.cfg.ExecuteTimeout)
	defer cancel()
	return provider.Execute(execCtx, order, quote.Price)
}

// selectBest picks the strictly greatest expected out. Quotes arrive in
// provider priority order, so keeping the first of equals makes ties
// deterministic.
func selectBest(quotes []*model.Quote) *model.Quote {
	var best *model.Quote
	for _, quote := range quotes {
		if quote == nil {
			continue
		}
		if best == nil || quote.ExpectedOut.GreaterThan(best.ExpectedOut) {
			best = quote
		}
	}
	return best
}

// fail publishes the failed event, persists the failure only when no
// retry remains, and re-raises the error so the queue applies its backoff
// policy. Persisting earlier would let a first-attempt failure shadow a
// later successful retry under the store's first-write-wins rule.
func (p *Pipeline) fail(ctx context.Context, job *jobqueue.Job, execErr error) error {
	order := job.Order
	zap.S().Errorf("order %s attempt %d/%d failed: %v", order.OrderID, job.Attempt, job.MaxAttempts, execErr)

	p.status.Publish(order.OrderID, model.NewEventFailed(order.OrderID, execErr))

	if job.FinalAttempt() {
		if err := p.records.CreateFailed(ctx, order, execErr); err != nil {
			zap.S().Errorf("persist failed order %s: %v", order.OrderID, err)
		}
	}
	return execErr
}
