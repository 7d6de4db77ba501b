package conversion

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"retirecast/internal/core"
	"retirecast/internal/engine"
	"retirecast/internal/log"
)

// amountGridSteps divides the eligible balance into the candidate
// annual-amount grid.
const amountGridSteps = 20

// maxDurationYears bounds the schedule durations the search considers.
const maxDurationYears = 10

// startYearSlack extends the candidate start window past retirement.
const startYearSlack = 5

// Weights blend the score terms. Tax and Medicare are costs (their
// weights apply to the negated totals); Roth balance, net income, and
// stability are benefits.
type Weights struct {
	Tax          float64 `json:"tax"`
	Medicare     float64 `json:"medicare"`
	TerminalRoth float64 `json:"terminal_roth"`
	NetIncome    float64 `json:"net_income"`
	Stability    float64 `json:"stability"`
}

// DefaultWeights are the standard scoring blend.
func DefaultWeights() Weights {
	return Weights{Tax: 0.25, Medicare: 0.15, TerminalRoth: 0.20, NetIncome: 0.30, Stability: 0.10}
}

// ScoreBreakdown exposes each weighted term of a candidate's score.
type ScoreBreakdown struct {
	Tax          float64 `json:"tax"`
	Medicare     float64 `json:"medicare"`
	TerminalRoth float64 `json:"terminal_roth"`
	NetIncome    float64 `json:"net_income"`
	Stability    float64 `json:"stability"`
}

// Candidate is one evaluated schedule.
type Candidate struct {
	Schedule  core.Schedule  `json:"schedule"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// Best is the optimizer's answer: the winning candidate with its full
// overlay result and the scores of everything evaluated.
type Best struct {
	Candidate Candidate   `json:"candidate"`
	Result    *Result     `json:"result"`
	Evaluated []Candidate `json:"evaluated"`
}

// Optimizer grid-searches conversion schedules. Candidate evaluations
// are independent and run on a bounded worker pool; cancellation is
// honoured between candidates.
type Optimizer struct {
	engine      *engine.Engine
	weights     Weights
	parallelism int
	logger      *log.Logger
}

func NewOptimizer(e *engine.Engine, weights Weights, parallelism int, logger *log.Logger) *Optimizer {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Optimizer{
		engine:      e,
		weights:     weights,
		parallelism: parallelism,
		logger:      logger.WithComponent(log.ComponentOptimizer),
	}
}

// Optimize evaluates the candidate grid and returns the best-scoring
// schedule. Ties resolve to the earliest candidate in grid order so the
// answer is deterministic regardless of parallelism.
func (o *Optimizer) Optimize(ctx context.Context, in engine.Inputs) (*Best, error) {
	if err := engine.Validate(in); err != nil {
		return nil, err
	}

	candidates := o.buildGrid(in)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no convertible tax-deferred balance", core.ErrValidation)
	}
	o.logger.Info("starting schedule search",
		log.FieldCandidates, len(candidates),
		log.FieldStartYear, in.Scenario.StartYear)

	evaluated := make([]Candidate, len(candidates))
	results := make([]*Result, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i, schedule := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Run(o.engine, in, schedule)
			if err != nil {
				return fmt.Errorf("candidate %d: %w", i, err)
			}
			evaluated[i] = Candidate{
				Schedule:  schedule,
				Breakdown: o.breakdown(res),
			}
			evaluated[i].Score = total(evaluated[i].Breakdown)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bestIdx := 0
	for i := 1; i < len(evaluated); i++ {
		if evaluated[i].Score > evaluated[bestIdx].Score {
			bestIdx = i
		}
	}

	o.logger.Info("schedule search complete",
		log.FieldScore, evaluated[bestIdx].Score,
		log.FieldStartYear, evaluated[bestIdx].Schedule.StartYear)
	return &Best{
		Candidate: evaluated[bestIdx],
		Result:    results[bestIdx],
		Evaluated: evaluated,
	}, nil
}

// buildGrid enumerates start years from the projection start through
// five years past retirement, durations up to ten years, and annual
// amounts over a twenty-step grid of the eligible balance.
func (o *Optimizer) buildGrid(in engine.Inputs) []core.Schedule {
	eligible := TotalEligible(in.Assets)
	if !eligible.IsPositive() {
		return nil
	}

	retirementYear := in.Scenario.RetirementYear
	if retirementYear == 0 && in.Scenario.RetirementAge > 0 {
		retirementYear = in.Client.Birthdate.Year() + in.Scenario.RetirementAge
	}
	lastStart := retirementYear + startYearSlack
	if lastStart < in.Scenario.StartYear {
		lastStart = in.Scenario.StartYear
	}

	step := eligible.Div(decimal.NewFromInt(amountGridSteps))
	var grid []core.Schedule
	for start := in.Scenario.StartYear; start <= lastStart; start++ {
		for duration := 1; duration <= maxDurationYears; duration++ {
			for i := 1; i <= amountGridSteps; i++ {
				grid = append(grid, core.Schedule{
					StartYear:    start,
					Duration:     duration,
					AnnualAmount: step.Mul(decimal.NewFromInt(int64(i))),
				})
			}
		}
	}
	return grid
}

func (o *Optimizer) breakdown(res *Result) ScoreBreakdown {
	m := res.Comparison.Conversion
	return ScoreBreakdown{
		Tax:          o.weights.Tax * -m.LifetimeFederalTax.InexactFloat64(),
		Medicare:     o.weights.Medicare * -m.LifetimeMedicare.InexactFloat64(),
		TerminalRoth: o.weights.TerminalRoth * m.TerminalRothBalance.InexactFloat64(),
		NetIncome:    o.weights.NetIncome * m.CumulativeNetIncome.InexactFloat64(),
		Stability:    o.weights.Stability * -netIncomeStdDev(res.Conversion),
	}
}

func total(b ScoreBreakdown) float64 {
	return b.Tax + b.Medicare + b.TerminalRoth + b.NetIncome + b.Stability
}

// netIncomeStdDev measures income stability as the population standard
// deviation of annual net income.
func netIncomeStdDev(records []core.YearRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	mean := 0.0
	for _, rec := range records {
		mean += rec.RemainingIncome.InexactFloat64()
	}
	mean /= float64(len(records))

	variance := 0.0
	for _, rec := range records {
		d := rec.RemainingIncome.InexactFloat64() - mean
		variance += d * d
	}
	variance /= float64(len(records))
	return math.Sqrt(variance)
}
