package mock

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
)

var errVenueUnavailable = errors.New("venue unavailable")

// Config shapes a simulated venue. Prices move around a shared reference
// price of 150 with a per-venue jitter band, so competing venues return
// quotes close enough that routing decisions stay interesting.
type Config struct {
	Name string

	// Fee fraction applied to the expected output, e.g. 0.003.
	Fee float64

	// Quote price multiplier band relative to the reference price.
	JitterLow  float64
	JitterHigh float64

	QuoteLatency   time.Duration
	ExecuteLatency time.Duration

	// FailureRate in [0,1] makes quote/execute calls fail randomly.
	FailureRate float64

	// Seed pins the random source for deterministic tests. Zero seeds
	// from the clock.
	Seed int64
}

// Provider simulates a venue: latent quote and execute calls with price
// jitter, fees, and bounded slippage on execution.
type Provider struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

func New(cfg Config) *Provider {
	if cfg.QuoteLatency == 0 {
		cfg.QuoteLatency = 200 * time.Millisecond
	}
	if cfg.ExecuteLatency == 0 {
		cfg.ExecuteLatency = 2 * time.Second
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Provider{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewRaydium mirrors the tighter-spread, higher-fee venue profile.
func NewRaydium() *Provider {
	return New(Config{
		Name:       "Raydium",
		Fee:        0.003,
		JitterLow:  0.98,
		JitterHigh: 1.02,
	})
}

// NewMeteora mirrors the wider-spread, lower-fee venue profile.
func NewMeteora() *Provider {
	return New(Config{
		Name:       "Meteora",
		Fee:        0.002,
		JitterLow:  0.97,
		JitterHigh: 1.02,
	})
}

func (p *Provider) Name() string {
	return p.cfg.Name
}

func (p *Provider) Quote(ctx context.Context, assetIn, assetOut string, amountIn decimal.Decimal) (*model.Quote, error) {
	// latency jitter up to 1.5x the base, 200-500ms at the default
	latency := p.cfg.QuoteLatency + time.Duration(p.float64()*1.5*float64(p.cfg.QuoteLatency))
	if err := sleep(ctx, latency); err != nil {
		return nil, err
	}
	if p.shouldFail() {
		return nil, errVenueUnavailable
	}

	price := p.basePrice() * p.between(p.cfg.JitterLow, p.cfg.JitterHigh)
	priceDec := decimal.NewFromFloat(price)
	fee := decimal.NewFromFloat(p.cfg.Fee)
	expectedOut := amountIn.Mul(priceDec).Mul(decimal.NewFromInt(1).Sub(fee))

	return &model.Quote{
		Venue:       p.cfg.Name,
		Price:       priceDec,
		Fee:         fee,
		ExpectedOut: expectedOut,
	}, nil
}

func (p *Provider) Execute(ctx context.Context, order *model.Order, referencePrice decimal.Decimal) (*model.ExecutionResult, error) {
	// 2-3s at the default base
	latency := p.cfg.ExecuteLatency + time.Duration(p.float64()*0.5*float64(p.cfg.ExecuteLatency))
	if err := sleep(ctx, latency); err != nil {
		return nil, err
	}
	if p.shouldFail() {
		return nil, errVenueUnavailable
	}

	// Up to 0.5% slippage against the quoted price.
	slippage := decimal.NewFromFloat(1 - p.float64()*0.005)
	executedPrice := referencePrice.Mul(slippage)

	return &model.ExecutionResult{
		Venue:         p.cfg.Name,
		TxHash:        p.txHash(),
		ExecutedPrice: executedPrice,
		AmountOut:     order.AmountIn.Mul(executedPrice),
	}, nil
}

// basePrice is the shared reference price both venues quote around.
func (p *Provider) basePrice() float64 {
	return 150 + (p.float64()-0.5)*10
}

func (p *Provider) shouldFail() bool {
	return p.cfg.FailureRate > 0 && p.float64() < p.cfg.FailureRate
}

func (p *Provider) between(low, high float64) float64 {
	return low + p.float64()*(high-low)
}

func (p *Provider) float64() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

const txHashChars = "0123456789abcdef"

func (p *Provider) txHash() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf := make([]byte, 64)
	buf[0], buf[1] = 'T', 'x'
	for i := 2; i < len(buf); i++ {
		buf[i] = txHashChars[p.rng.Intn(len(txHashChars))]
	}
	return string(buf)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
