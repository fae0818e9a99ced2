// Package scanner ranks instruments by signal quality. It fans the signal
// generator out over a worker pool and keeps the best few results.
package scanner

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"okx-market-monitor/internal/strategy"
)

// SignalSource evaluates the entry rule for one instrument.
type SignalSource interface {
	Generate(instID string) (*strategy.Signal, error)
}

// rankedSignal pairs a signal with its scan position so ties in confidence
// keep the original scan order.
type rankedSignal struct {
	signal    *strategy.Signal
	scanIndex int
}

// ScanResult is one completed ranking pass.
type ScanResult struct {
	StartTime      time.Time          `json:"start_time"`
	Duration       time.Duration      `json:"duration"`
	SymbolsScanned int                `json:"symbols_scanned"`
	Opportunities  []*strategy.Signal `json:"opportunities"`
}

// Scanner runs the signal generator across a symbol universe and ranks the
// results.
type Scanner struct {
	generator     SignalSource
	symbols       []string
	workerCount   int
	minConfidence int
	topN          int
	logger        zerolog.Logger

	mu         sync.RWMutex
	lastResult *ScanResult
}

func NewScanner(generator SignalSource, symbols []string, workerCount, minConfidence, topN int, logger zerolog.Logger) *Scanner {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Scanner{
		generator:     generator,
		symbols:       symbols,
		workerCount:   workerCount,
		minConfidence: minConfidence,
		topN:          topN,
		logger:        logger.With().Str("component", "Scanner").Logger(),
	}
}

// Scan evaluates every symbol in the universe and returns the top
// opportunities: confidence at or above the floor, sorted descending, at
// most topN. A failing symbol is skipped, never fatal.
func (sc *Scanner) Scan() []*strategy.Signal {
	startTime := time.Now()

	results := make([]rankedSignal, len(sc.symbols))

	symbolChan := make(chan int, len(sc.symbols))
	var wg sync.WaitGroup

	for w := 0; w < sc.workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range symbolChan {
				symbol := sc.symbols[idx]
				signal, err := sc.generator.Generate(symbol)
				if err != nil {
					sc.logger.Warn().Err(err).Str("symbol", symbol).Msg("Scan failed for symbol, skipping")
					continue
				}
				results[idx] = rankedSignal{signal: signal, scanIndex: idx}
			}
		}()
	}

	for idx := range sc.symbols {
		symbolChan <- idx
	}
	close(symbolChan)
	wg.Wait()

	ranked := make([]rankedSignal, 0, len(sc.symbols))
	for _, r := range results {
		if r.signal == nil || r.signal.Confidence < sc.minConfidence {
			continue
		}
		ranked = append(ranked, r)
	}

	// Descending by confidence, scan order breaks ties
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].signal.Confidence != ranked[j].signal.Confidence {
			return ranked[i].signal.Confidence > ranked[j].signal.Confidence
		}
		return ranked[i].scanIndex < ranked[j].scanIndex
	})

	if len(ranked) > sc.topN {
		ranked = ranked[:sc.topN]
	}

	opportunities := make([]*strategy.Signal, len(ranked))
	for i, r := range ranked {
		opportunities[i] = r.signal
	}

	sc.mu.Lock()
	sc.lastResult = &ScanResult{
		StartTime:      startTime,
		Duration:       time.Since(startTime),
		SymbolsScanned: len(sc.symbols),
		Opportunities:  opportunities,
	}
	sc.mu.Unlock()

	sc.logger.Info().
		Int("symbols_scanned", len(sc.symbols)).
		Int("opportunities", len(opportunities)).
		Dur("duration", time.Since(startTime)).
		Msg("Scan completed")

	return opportunities
}

// LastResult returns the most recent completed scan, or nil before the first
// scan finishes.
func (sc *Scanner) LastResult() *ScanResult {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.lastResult
}
