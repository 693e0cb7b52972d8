package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/jobqueue"
	"github.com/utkarsh205-ui/order-execution-engine/pkg/venue"
)

type fakeProvider struct {
	name     string
	quote    *model.Quote
	quoteErr error
	result   *model.ExecutionResult
	execErr  error

	mu            sync.Mutex
	lastRefPrice  decimal.Decimal
	executeCalled int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Quote(ctx context.Context, assetIn, assetOut string, amountIn decimal.Decimal) (*model.Quote, error) {
	if p.quoteErr != nil {
		return nil, p.quoteErr
	}
	return p.quote, nil
}

func (p *fakeProvider) Execute(ctx context.Context, order *model.Order, referencePrice decimal.Decimal) (*model.ExecutionResult, error) {
	p.mu.Lock()
	p.lastRefPrice = referencePrice
	p.executeCalled++
	p.mu.Unlock()
	if p.execErr != nil {
		return nil, p.execErr
	}
	return p.result, nil
}

// fakeRecordStore mirrors the store's write-once contract: the first
// terminal record per order id wins, later writes are no-ops.
type fakeRecordStore struct {
	mu      sync.Mutex
	records map[string]*model.OrderRecord
	writes  int
	err     error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]*model.OrderRecord)}
}

func (s *fakeRecordStore) CreateConfirmed(ctx context.Context, order *model.Order, result *model.ExecutionResult) error {
	return s.insert(model.NewConfirmedRecord(order, result))
}

func (s *fakeRecordStore) CreateFailed(ctx context.Context, order *model.Order, execErr error) error {
	return s.insert(model.NewFailedRecord(order, execErr))
}

func (s *fakeRecordStore) GetByOrderID(ctx context.Context, orderID string) (*model.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[orderID]; ok {
		return rec, nil
	}
	return nil, errors.New("record not found")
}

func (s *fakeRecordStore) insert(record *model.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes++
	if _, ok := s.records[record.OrderID]; ok {
		return nil
	}
	s.records[record.OrderID] = record
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []*model.StatusEvent
}

func (r *eventRecorder) Publish(orderID string, event *model.StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) statuses() []model.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.OrderStatus, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Status
	}
	return out
}

func dec(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func quoteFor(venueName string, price, expectedOut string) *model.Quote {
	return &model.Quote{
		Venue:       venueName,
		Price:       dec(price),
		Fee:         dec("0.003"),
		ExpectedOut: dec(expectedOut),
	}
}

func testJob(attempt, maxAttempts int) *jobqueue.Job {
	return &jobqueue.Job{
		ID: "o1",
		Order: &model.Order{
			OrderID:  "o1",
			AssetIn:  "SOL",
			AssetOut: "USDC",
			AmountIn: dec("10"),
		},
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
		EnqueuedAt:  time.Now(),
	}
}

func newTestPipeline(store *fakeRecordStore, recorder *eventRecorder, providers ...venue.Provider) *Pipeline {
	registry := venue.NewRegistry()
	for _, p := range providers {
		registry.Register(p)
	}
	return NewPipeline(registry, recorder, store, DefaultConfig())
}

func statusesEqual(got []model.OrderStatus, want ...model.OrderStatus) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestPipelineSuccessSequence(t *testing.T) {
	venueA := &fakeProvider{
		name:  "A",
		quote: quoteFor("A", "150", "1500"),
		result: &model.ExecutionResult{
			Venue:         "A",
			TxHash:        "Txabc",
			ExecutedPrice: dec("149.8"),
			AmountOut:     dec("1498"),
		},
	}
	venueB := &fakeProvider{name: "B", quote: quoteFor("B", "149.8", "1498")}

	store := newFakeRecordStore()
	recorder := &eventRecorder{}
	p := newTestPipeline(store, recorder, venueA, venueB)

	if err := p.Handle(context.Background(), testJob(1, 3)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	got := recorder.statuses()
	if !statusesEqual(got,
		model.OrderStatusRouting,
		model.OrderStatusBuilding,
		model.OrderStatusSubmitted,
		model.OrderStatusConfirmed,
	) {
		t.Errorf("unexpected event sequence: %v", got)
	}

	rec, err := store.GetByOrderID(context.Background(), "o1")
	if err != nil {
		t.Fatalf("no record persisted: %v", err)
	}
	if rec.Status != model.OrderStatusConfirmed || rec.Venue != "A" {
		t.Errorf("persisted record = %+v", rec)
	}
	if !rec.ExecutedPrice.Equal(dec("149.8")) || !rec.AmountOut.Equal(dec("1498")) {
		t.Errorf("persisted price/amount mismatch: %+v", rec)
	}
	if venueB.executeCalled != 0 {
		t.Error("losing venue was asked to execute")
	}
}

func TestPipelineSelectsGreatestExpectedOut(t *testing.T) {
	// 100.5 beats 100.0 regardless of priority order
	venueA := &fakeProvider{name: "A", quote: quoteFor("A", "10", "100.0")}
	venueB := &fakeProvider{
		name:  "B",
		quote: quoteFor("B", "10.05", "100.5"),
		result: &model.ExecutionResult{
			Venue: "B", TxHash: "Tx1", ExecutedPrice: dec("10.05"), AmountOut: dec("100.5"),
		},
	}

	store := newFakeRecordStore()
	p := newTestPipeline(store, &eventRecorder{}, venueA, venueB)

	if err := p.Handle(context.Background(), testJob(1, 3)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	rec, _ := store.GetByOrderID(context.Background(), "o1")
	if rec.Venue != "B" {
		t.Errorf("chose venue %s, want B", rec.Venue)
	}
	if !venueB.lastRefPrice.Equal(dec("10.05")) {
		t.Errorf("execute reference price = %s, want the chosen quote's price", venueB.lastRefPrice)
	}
}

func TestPipelineTieBreaksByPriority(t *testing.T) {
	result := &model.ExecutionResult{
		Venue: "A", TxHash: "Tx1", ExecutedPrice: dec("10"), AmountOut: dec("100"),
	}
	for i := 0; i < 5; i++ {
		venueA := &fakeProvider{name: "A", quote: quoteFor("A", "10", "100"), result: result}
		venueB := &fakeProvider{name: "B", quote: quoteFor("B", "10", "100")}

		store := newFakeRecordStore()
		p := newTestPipeline(store, &eventRecorder{}, venueA, venueB)

		if err := p.Handle(context.Background(), testJob(1, 3)); err != nil {
			t.Fatalf("handle failed: %v", err)
		}
		rec, _ := store.GetByOrderID(context.Background(), "o1")
		if rec.Venue != "A" {
			t.Fatalf("run %d: tie broken to %s, want first-priority A", i, rec.Venue)
		}
	}
}

func TestPipelineAllQuotesFail(t *testing.T) {
	venueA := &fakeProvider{name: "A", quoteErr: errors.New("A down")}
	venueB := &fakeProvider{name: "B", quoteErr: errors.New("B down")}

	store := newFakeRecordStore()
	recorder := &eventRecorder{}
	p := newTestPipeline(store, recorder, venueA, venueB)

	err := p.Handle(context.Background(), testJob(3, 3))
	if err == nil {
		t.Fatal("expected an error when every venue fails to quote")
	}
	if !errors.Is(err, errAllQuotesFailed) {
		t.Errorf("error = %v, want aggregated quote failure", err)
	}
	if !strings.Contains(err.Error(), "A down") || !strings.Contains(err.Error(), "B down") {
		t.Errorf("aggregated error is missing venue causes: %v", err)
	}

	got := recorder.statuses()
	if !statusesEqual(got, model.OrderStatusRouting, model.OrderStatusFailed) {
		t.Errorf("unexpected event sequence: %v", got)
	}
	rec, getErr := store.GetByOrderID(context.Background(), "o1")
	if getErr != nil {
		t.Fatal("final attempt failure was not persisted")
	}
	if rec.Status != model.OrderStatusFailed {
		t.Errorf("persisted status = %s, want failed", rec.Status)
	}
}

func TestPipelineExecuteFailure(t *testing.T) {
	venueA := &fakeProvider{
		name:    "A",
		quote:   quoteFor("A", "150", "1500"),
		execErr: errors.New("swap reverted"),
	}

	store := newFakeRecordStore()
	recorder := &eventRecorder{}
	p := newTestPipeline(store, recorder, venueA)

	if err := p.Handle(context.Background(), testJob(3, 3)); err == nil {
		t.Fatal("expected execute failure to propagate")
	}

	got := recorder.statuses()
	if !statusesEqual(got, model.OrderStatusRouting, model.OrderStatusBuilding, model.OrderStatusFailed) {
		t.Errorf("unexpected event sequence: %v", got)
	}
	rec, err := store.GetByOrderID(context.Background(), "o1")
	if err != nil {
		t.Fatal("failure record missing")
	}
	if rec.ErrorMessage == "" {
		t.Error("failure record has no error message")
	}
}

func TestPipelineDefersFailureRecordUntilFinalAttempt(t *testing.T) {
	venueA := &fakeProvider{name: "A", quoteErr: errors.New("A down")}

	store := newFakeRecordStore()
	p := newTestPipeline(store, &eventRecorder{}, venueA)

	// attempts 1 and 2 fail but must not persist anything
	for attempt := 1; attempt <= 2; attempt++ {
		if err := p.Handle(context.Background(), testJob(attempt, 3)); err == nil {
			t.Fatalf("attempt %d: expected error", attempt)
		}
		if _, err := store.GetByOrderID(context.Background(), "o1"); err == nil {
			t.Fatalf("attempt %d persisted a record before the final attempt", attempt)
		}
	}

	// a successful final retry leaves a confirmed record, not a failed one
	venueA.quoteErr = nil
	venueA.quote = quoteFor("A", "150", "1500")
	venueA.result = &model.ExecutionResult{
		Venue: "A", TxHash: "Tx1", ExecutedPrice: dec("150"), AmountOut: dec("1500"),
	}
	if err := p.Handle(context.Background(), testJob(3, 3)); err != nil {
		t.Fatalf("final attempt failed: %v", err)
	}
	rec, err := store.GetByOrderID(context.Background(), "o1")
	if err != nil {
		t.Fatal("confirmed record missing")
	}
	if rec.Status != model.OrderStatusConfirmed {
		t.Errorf("final record status = %s, want confirmed", rec.Status)
	}
}

func TestPipelinePersistenceIsIdempotent(t *testing.T) {
	venueA := &fakeProvider{
		name:  "A",
		quote: quoteFor("A", "150", "1500"),
		result: &model.ExecutionResult{
			Venue: "A", TxHash: "Tx1", ExecutedPrice: dec("150"), AmountOut: dec("1500"),
		},
	}

	store := newFakeRecordStore()
	p := newTestPipeline(store, &eventRecorder{}, venueA)

	// duplicate delivery of the same job, as after a crash between
	// execution and ack
	if err := p.Handle(context.Background(), testJob(1, 3)); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := p.Handle(context.Background(), testJob(1, 3)); err != nil {
		t.Fatalf("duplicate delivery failed: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.records) != 1 {
		t.Errorf("stored %d records for one order, want 1", len(store.records))
	}
}

func TestPipelinePersistenceErrorPropagatesWithoutFailedEvent(t *testing.T) {
	venueA := &fakeProvider{
		name:  "A",
		quote: quoteFor("A", "150", "1500"),
		result: &model.ExecutionResult{
			Venue: "A", TxHash: "Tx1", ExecutedPrice: dec("150"), AmountOut: dec("1500"),
		},
	}

	store := newFakeRecordStore()
	store.err = errors.New("db unreachable")
	recorder := &eventRecorder{}
	p := newTestPipeline(store, recorder, venueA)

	if err := p.Handle(context.Background(), testJob(1, 3)); err == nil {
		t.Fatal("expected persistence error to surface for retry")
	}

	// the stream saw a confirmed execution; the failed event is reserved
	// for execution outcomes
	got := recorder.statuses()
	if got[len(got)-1] != model.OrderStatusConfirmed {
		t.Errorf("last event = %s, want confirmed", got[len(got)-1])
	}
}

func TestPipelineScenarioSolUsdc(t *testing.T) {
	venueA := &fakeProvider{
		name:  "A",
		quote: quoteFor("A", "150.2", "1500"),
		result: &model.ExecutionResult{
			Venue:         "A",
			TxHash:        "Tx2",
			ExecutedPrice: dec("149.8"),
			AmountOut:     dec("1498"),
		},
	}
	venueB := &fakeProvider{name: "B", quote: quoteFor("B", "150", "1498")}

	store := newFakeRecordStore()
	p := newTestPipeline(store, &eventRecorder{}, venueA, venueB)

	if err := p.Handle(context.Background(), testJob(1, 3)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	rec, _ := store.GetByOrderID(context.Background(), "o1")
	if rec.Status != model.OrderStatusConfirmed || rec.Venue != "A" {
		t.Errorf("record = %+v, want confirmed on A", rec)
	}
	if !rec.ExecutedPrice.Equal(dec("149.8")) || !rec.AmountOut.Equal(dec("1498")) {
		t.Errorf("record amounts = price %s out %s", rec.ExecutedPrice, rec.AmountOut)
	}
}

func TestPipelineNoProviders(t *testing.T) {
	store := newFakeRecordStore()
	p := newTestPipeline(store, &eventRecorder{})

	err := p.Handle(context.Background(), testJob(1, 3))
	if !errors.Is(err, errNoProviders) {
		t.Errorf("error = %v, want no providers", err)
	}
}
