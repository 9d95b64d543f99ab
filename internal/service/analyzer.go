package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/roadside-assist-api/internal/models"
)

// AnalyzerModelVersion is stamped on results produced by SimulatedAnalyzer.
const AnalyzerModelVersion = "v1.0.0"

// ErrAnalysisFailed is returned by SimulatedAnalyzer when a simulated failure is drawn.
var ErrAnalysisFailed = errors.New("simulated analysis failure")

// Analyzer turns a submitted recording into a diagnosis result.
type Analyzer interface {
	Analyze(ctx context.Context, d *models.Diagnosis) (models.DiagnosisResult, error)
}

var simulatedResults = []models.DiagnosisResult{
	{
		Confidence:      87,
		Issue:           "Engine Belt Issues",
		Severity:        models.SeverityMedium,
		Description:     "Worn or loose serpentine belt.",
		Recommendations: []string{"Inspect belt", "Replace if needed"},
		EstimatedCost:   models.CostRange{Min: decimal.NewFromInt(3500), Max: decimal.NewFromInt(8500), Currency: "LKR"},
		Urgency:         models.UrgencyWithinWeek,
	},
	{
		Confidence:      92,
		Issue:           "Brake Pad Wear",
		Severity:        models.SeverityHigh,
		Description:     "Brake pads are worn out.",
		Recommendations: []string{"Replace pads", "Check discs"},
		EstimatedCost:   models.CostRange{Min: decimal.NewFromInt(8000), Max: decimal.NewFromInt(15000), Currency: "LKR"},
		Urgency:         models.UrgencyImmediate,
	},
}

// SimulatedAnalyzer waits a bounded delay and picks one of a fixed set of results. It fails with
// the configured probability.
type SimulatedAnalyzer struct {
	delay       time.Duration
	failureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedAnalyzer builds a SimulatedAnalyzer. A nil rng seeds one from the clock.
func NewSimulatedAnalyzer(delay time.Duration, failureRate float64, rng *rand.Rand) *SimulatedAnalyzer {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 1 {
		failureRate = 1
	}
	return &SimulatedAnalyzer{delay: delay, failureRate: failureRate, rng: rng}
}

// Analyze implements Analyzer.
func (a *SimulatedAnalyzer) Analyze(ctx context.Context, _ *models.Diagnosis) (models.DiagnosisResult, error) {
	if a.delay > 0 {
		timer := time.NewTimer(a.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return models.DiagnosisResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	a.mu.Lock()
	failed := a.rng.Float64() < a.failureRate
	pick := a.rng.IntN(len(simulatedResults))
	a.mu.Unlock()
	if failed {
		return models.DiagnosisResult{}, ErrAnalysisFailed
	}

	result := simulatedResults[pick]
	result.Recommendations = append([]string(nil), result.Recommendations...)
	result.ModelVersion = AnalyzerModelVersion
	return result, nil
}
