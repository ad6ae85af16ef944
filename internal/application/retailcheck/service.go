package retailcheck

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dealerdesk/backend/internal/domain/market"
	"github.com/dealerdesk/backend/internal/domain/pricing"
)

// defaultMarginPercent is the house margin applied when a request does not
// carry one
var defaultMarginPercent = decimal.NewFromInt(20)

// Service runs a full retail check: resolve the vehicle, fan out the
// market data fetches, then compute the analytics block.
type Service struct {
	resolver     *Resolver
	optimized    market.Gateway
	direct       market.Gateway
	advertiserID string
	logger       *zap.Logger
	clock        func() time.Time
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithServiceClock overrides the time source, used in tests
func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService creates the orchestrator. optimized routes upstream reads
// through the resilience layer; direct calls the provider client without
// caching. Both produce identical business results.
func NewService(resolver *Resolver, optimized, direct market.Gateway, advertiserID string, opts ...ServiceOption) *Service {
	s := &Service{
		resolver:     resolver,
		optimized:    optimized,
		direct:       direct,
		advertiserID: advertiserID,
		logger:       zap.NewNop(),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one retail check
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	gw := s.direct
	if req.Optimized {
		gw = s.optimized
	}

	desc, err := s.resolver.Resolve(ctx, req, gw, s.advertiserID)
	if err != nil {
		return nil, err
	}

	key, err := desc.ValuationKey()
	if err != nil {
		return nil, err
	}
	valReq := market.ValuationRequest{
		DerivativeID:      key.DerivativeID,
		FirstRegistration: key.FirstRegistration,
		Mileage:           key.Mileage,
		AdvertiserID:      s.advertiserID,
	}

	var (
		valuations *market.Valuations
		metrics    *market.Metrics
		check      *market.CheckReport
		trended    []market.TrendedValuation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		valuations, err = gw.Valuation(gctx, valReq)
		return err
	})
	g.Go(func() error {
		var err error
		metrics, err = gw.VehicleMetrics(gctx, valReq)
		return err
	})
	if req.IncludeCheck && desc.Registration != "" {
		g.Go(func() error {
			report, err := gw.VehicleCheck(gctx, desc.Registration, s.advertiserID)
			if err != nil {
				// history data is an enrichment; its absence degrades the
				// result rather than failing the check
				s.logger.Warn("vehicle check unavailable",
					zap.String("registration", desc.Registration),
					zap.Error(err),
				)
				return nil
			}
			check = report
			return nil
		})
	}
	if req.IncludeTrended {
		g.Go(func() error {
			points, err := gw.TrendedValuations(gctx, valReq)
			if err != nil {
				s.logger.Warn("trended valuations unavailable",
					zap.String("derivative_id", key.DerivativeID),
					zap.Error(err),
				)
				return nil
			}
			trended = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var competitors []market.Listing
	if metrics.ListingsURL != "" {
		competitors, err = gw.Competitors(ctx, metrics.ListingsURL)
		if err != nil {
			s.logger.Warn("competitor listings unavailable",
				zap.String("url", metrics.ListingsURL),
				zap.Error(err),
			)
			competitors = nil
		}
	}

	analytics, err := s.computeAnalytics(req, desc.Age(s.clock()), desc.Mileage, valuations, metrics, competitors)
	if err != nil {
		return nil, err
	}

	return &Result{
		Vehicle:     desc,
		Valuations:  *valuations,
		Check:       check,
		Competitors: competitors,
		Trended:     trended,
		Analytics:   analytics,
		GeneratedAt: s.clock().UTC(),
		Optimized:   req.Optimized,
	}, nil
}

func (s *Service) computeAnalytics(req Request, age, mileage int, valuations *market.Valuations, metrics *market.Metrics, competitors []market.Listing) (Analytics, error) {
	margin := req.MarginPercent
	if margin.IsZero() {
		margin = defaultMarginPercent
	}

	breakdown, err := pricing.ComputeBreakdown(valuations.Retail, margin, req.AdditionalCosts)
	if err != nil {
		return Analytics{}, err
	}

	prices := make([]decimal.Decimal, 0, len(competitors))
	sum := decimal.Zero
	for _, listing := range competitors {
		prices = append(prices, listing.Price)
		sum = sum.Add(listing.Price)
	}
	var avgCompetitorPrice *decimal.Decimal
	if len(prices) > 0 {
		avg := sum.Div(decimal.NewFromInt(int64(len(prices))))
		avgCompetitorPrice = &avg
	}

	position := pricing.ComputeMarketPosition(valuations.Retail, prices, metrics.PricePosition, age)
	recommendation := pricing.Recommend(valuations.Retail, breakdown.CostPrice, position.Rating, position.Percentile, avgCompetitorPrice)
	financials := pricing.ComputeFinancialMetrics(breakdown.SellingPrice, breakdown.CostPrice, breakdown.ProfitMargin, mileage)

	return Analytics{
		Breakdown:      breakdown,
		Position:       position,
		Recommendation: recommendation,
		Financials:     financials,
	}, nil
}
