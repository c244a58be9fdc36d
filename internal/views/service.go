// Package views computes the seven per-symbol analyses (long, swing, short,
// micro, volume/pivot, slope/momentum, order book) and renders each one to
// markdown. Every analysis and every report is memoized per symbol through
// internal/cache with the view's own TTL.
package views

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trading-analyticsv1/internal/cache"
	"trading-analyticsv1/internal/model"
)

// ErrUnknownView is returned for a view name that is not registered.
var ErrUnknownView = errors.New("views: unknown view")

// View names, used as cache names, metric labels and URL segments.
const (
	LongTerm  = "long_term"
	SwingTerm = "swing_term"
	ShortTerm = "short_term"
	MicroTerm = "micro_term"
	Volume    = "volume_pivot"
	Slope     = "slope_momentum"
	Book      = "order_book"
)

// viewConfig is the fixed shape of one view.
type viewConfig struct {
	Name     string
	Title    string
	Interval string
	Minutes  float64 // interval length in minutes
	Candles  int     // window fetched from the provider (book depth for Book)
	TTL      time.Duration
}

var (
	longCfg   = viewConfig{Name: LongTerm, Title: "Long-Term Analysis", Interval: "1h", Minutes: 60, Candles: 48, TTL: 30 * time.Minute}
	swingCfg  = viewConfig{Name: SwingTerm, Title: "Swing-Term Analysis", Interval: "30m", Minutes: 30, Candles: 96, TTL: 15 * time.Minute}
	shortCfg  = viewConfig{Name: ShortTerm, Title: "Short-Term Analysis", Interval: "15m", Minutes: 15, Candles: 144, TTL: 5 * time.Minute}
	microCfg  = viewConfig{Name: MicroTerm, Title: "Micro-Term Analysis", Interval: "1m", Minutes: 1, Candles: 60, TTL: time.Minute}
	volumeCfg = viewConfig{Name: Volume, Title: "Volume & Pivot Analysis", Interval: "1h", Minutes: 60, Candles: 96, TTL: 30 * time.Minute}
	slopeCfg  = viewConfig{Name: Slope, Title: "Slope & Momentum Analysis", Interval: "1m", Minutes: 1, Candles: 120, TTL: time.Minute}
	bookCfg   = viewConfig{Name: Book, Title: "Book Data", Candles: 20, TTL: 30 * time.Second}
)

// Options configures a Service.
type Options struct {
	Size      int              // per-cache key bound; see cache.Options
	Now       func() time.Time // clock for TTLs and timestamps
	Observer  cache.Observer
	BookDepth int // levels per side; default 20
}

// handle is the type-erased surface the aggregator and gateway use.
type handle interface {
	config() viewConfig
	analysis(ctx context.Context, symbol string) (any, error)
	report(ctx context.Context, symbol string) (string, error)
	degraded(ctx context.Context, symbol string, cause error) string
}

// Service owns one analysis cache and one report cache per view.
type Service struct {
	md  model.MarketData
	now func() time.Time

	long   *memoView[LongTermAnalysis]
	swing  *memoView[SwingTermAnalysis]
	short  *memoView[ShortTermAnalysis]
	micro  *memoView[MicroTermAnalysis]
	volume *memoView[VolumeAnalysis]
	slope  *memoView[SlopeAnalysis]
	book   *memoView[OrderBookAnalysis]

	byName map[string]handle
}

// order is the fixed section order of the composite report.
var order = []string{LongTerm, SwingTerm, ShortTerm, MicroTerm, Volume, Slope, Book}

// NewService wires every view to md.
func NewService(md model.MarketData, opts Options) *Service {
	s := &Service{md: md, now: opts.Now}
	if s.now == nil {
		s.now = time.Now
	}
	bc := bookCfg
	if opts.BookDepth > 0 {
		bc.Candles = opts.BookDepth
	}

	s.long = newMemoView(longCfg, md, opts, s.analyzeLong, renderLong)
	s.swing = newMemoView(swingCfg, md, opts, s.analyzeSwing, renderSwing)
	s.short = newMemoView(shortCfg, md, opts, s.analyzeShort, renderShort)
	s.micro = newMemoView(microCfg, md, opts, s.analyzeMicro, renderMicro)
	s.volume = newMemoView(volumeCfg, md, opts, s.analyzeVolume, renderVolume)
	s.slope = newMemoView(slopeCfg, md, opts, s.analyzeSlope, renderSlope)
	s.book = newMemoView(bc, md, opts, s.analyzeBook, renderBook)

	s.byName = map[string]handle{
		LongTerm:  s.long,
		SwingTerm: s.swing,
		ShortTerm: s.short,
		MicroTerm: s.micro,
		Volume:    s.volume,
		Slope:     s.slope,
		Book:      s.book,
	}
	return s
}

// Names returns the view names in report order.
func Names() []string { return append([]string(nil), order...) }

// Windows returns the largest candle window each interval needs, the
// Volume view's side channel included.
func Windows() map[string]int {
	out := map[string]int{volumeCfg.Interval: longMACandles}
	for _, cfg := range []viewConfig{longCfg, swingCfg, shortCfg, microCfg, volumeCfg, slopeCfg} {
		out[cfg.Interval] = max(out[cfg.Interval], cfg.Candles)
	}
	return out
}

// Title returns the section heading for view.
func (s *Service) Title(view string) (string, error) {
	h, err := s.lookup(view)
	if err != nil {
		return "", err
	}
	return h.config().Title, nil
}

// Analysis returns the cached analysis for view as its concrete pointer type.
func (s *Service) Analysis(ctx context.Context, view, symbol string) (any, error) {
	h, err := s.lookup(view)
	if err != nil {
		return nil, err
	}
	return h.analysis(ctx, symbol)
}

// Report returns the cached markdown section for view.
func (s *Service) Report(ctx context.Context, view, symbol string) (string, error) {
	h, err := s.lookup(view)
	if err != nil {
		return "", err
	}
	return h.report(ctx, symbol)
}

// Degraded renders view's section with every field N/A and cause noted.
func (s *Service) Degraded(ctx context.Context, view, symbol string, cause error) string {
	h, err := s.lookup(view)
	if err != nil {
		return fmt.Sprintf("## %s\n\n_%v_\n", view, err)
	}
	return h.degraded(ctx, symbol, cause)
}

func (s *Service) lookup(view string) (handle, error) {
	h, ok := s.byName[view]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
	return h, nil
}

// fetch loads the view's candle window.
func (s *Service) fetch(ctx context.Context, cfg viewConfig, symbol string, limit int) ([]model.Candle, error) {
	candles, err := s.md.GetCandles(ctx, symbol, cfg.Interval, limit)
	if err != nil {
		return nil, fmt.Errorf("%s candles %s %s: %w", cfg.Name, symbol, cfg.Interval, err)
	}
	return candles, nil
}

// memoView pairs a view's analysis cache with its report cache.
type memoView[A any] struct {
	cfg      viewConfig
	md       model.MarketData
	analyses *cache.Memo[*A]
	reports  *cache.Memo[string]
	render   func(r *renderer, a *A)
}

func newMemoView[A any](cfg viewConfig, md model.MarketData, opts Options,
	analyze func(ctx context.Context, symbol string) (*A, error),
	render func(r *renderer, a *A),
) *memoView[A] {
	v := &memoView[A]{cfg: cfg, md: md, render: render}
	copts := cache.Options{TTL: cfg.TTL, Size: opts.Size, Now: opts.Now, Observer: opts.Observer}
	v.analyses = cache.New(cfg.Name, func(ctx context.Context, symbol string) (*A, error) {
		return analyze(ctx, symbol)
	}, copts)
	v.reports = cache.New(cfg.Name+"_report", func(ctx context.Context, symbol string) (string, error) {
		a, err := v.analyses.Get(ctx, symbol)
		if err != nil {
			return "", err
		}
		return v.section(ctx, symbol, a, nil), nil
	}, copts)
	return v
}

func (v *memoView[A]) config() viewConfig { return v.cfg }

func (v *memoView[A]) get(ctx context.Context, symbol string) (*A, error) {
	return v.analyses.Get(ctx, symbol)
}

func (v *memoView[A]) generate(ctx context.Context, symbol string) (string, error) {
	return v.reports.Get(ctx, symbol)
}

func (v *memoView[A]) analysis(ctx context.Context, symbol string) (any, error) {
	a, err := v.get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (v *memoView[A]) report(ctx context.Context, symbol string) (string, error) {
	return v.generate(ctx, symbol)
}

func (v *memoView[A]) degraded(ctx context.Context, symbol string, cause error) string {
	return v.section(ctx, symbol, nil, cause)
}

// section renders a; a nil analysis renders every field as N/A.
func (v *memoView[A]) section(ctx context.Context, symbol string, a *A, cause error) string {
	r := newRenderer(ctx, v.md, symbol)
	r.heading(v.cfg)
	if cause != nil {
		r.notef("Data unavailable: %v", cause)
	}
	if a == nil {
		a = new(A)
	}
	v.render(r, a)
	return r.String()
}

// GetLongTermAnalysis returns the cached 1h x 48 analysis.
func (s *Service) GetLongTermAnalysis(ctx context.Context, symbol string) (*LongTermAnalysis, error) {
	return s.long.get(ctx, symbol)
}

// GenerateLongTermReport returns the cached Long-Term markdown section.
func (s *Service) GenerateLongTermReport(ctx context.Context, symbol string) (string, error) {
	return s.long.generate(ctx, symbol)
}

func (s *Service) GetSwingTermAnalysis(ctx context.Context, symbol string) (*SwingTermAnalysis, error) {
	return s.swing.get(ctx, symbol)
}

func (s *Service) GenerateSwingTermReport(ctx context.Context, symbol string) (string, error) {
	return s.swing.generate(ctx, symbol)
}

func (s *Service) GetShortTermAnalysis(ctx context.Context, symbol string) (*ShortTermAnalysis, error) {
	return s.short.get(ctx, symbol)
}

func (s *Service) GenerateShortTermReport(ctx context.Context, symbol string) (string, error) {
	return s.short.generate(ctx, symbol)
}

func (s *Service) GetMicroTermAnalysis(ctx context.Context, symbol string) (*MicroTermAnalysis, error) {
	return s.micro.get(ctx, symbol)
}

func (s *Service) GenerateMicroTermReport(ctx context.Context, symbol string) (string, error) {
	return s.micro.generate(ctx, symbol)
}

func (s *Service) GetVolumeAnalysis(ctx context.Context, symbol string) (*VolumeAnalysis, error) {
	return s.volume.get(ctx, symbol)
}

func (s *Service) GenerateVolumeReport(ctx context.Context, symbol string) (string, error) {
	return s.volume.generate(ctx, symbol)
}

func (s *Service) GetSlopeAnalysis(ctx context.Context, symbol string) (*SlopeAnalysis, error) {
	return s.slope.get(ctx, symbol)
}

func (s *Service) GenerateSlopeReport(ctx context.Context, symbol string) (string, error) {
	return s.slope.generate(ctx, symbol)
}

// GetOrderBookAnalysis returns the cached depth snapshot analysis.
func (s *Service) GetOrderBookAnalysis(ctx context.Context, symbol string) (*OrderBookAnalysis, error) {
	return s.book.get(ctx, symbol)
}

// GenerateOrderBookReport returns the cached Book Data section.
func (s *Service) GenerateOrderBookReport(ctx context.Context, symbol string) (string, error) {
	return s.book.generate(ctx, symbol)
}
