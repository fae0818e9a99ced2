package analysis

import (
	"testing"

	"okx-market-monitor/internal/okx"
)

// makeCandles builds a candle series from closes: each candle opens at the
// previous close, with a 0.5 wick on both sides.
func makeCandles(closes []float64) []okx.Candle {
	candles := make([]okx.Candle, len(closes))
	for i, close := range closes {
		open := close
		if i > 0 {
			open = closes[i-1]
		}
		high := close
		if open > high {
			high = open
		}
		low := close
		if open < low {
			low = open
		}
		candles[i] = okx.Candle{
			Timestamp: int64(i) * 3600_000,
			Open:      open,
			High:      high + 0.5,
			Low:       low - 0.5,
			Close:     close,
			Volume:    1000,
		}
	}
	return candles
}

// zigzag alternates between lo and hi, starting at lo.
func zigzag(n int, lo, hi float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = lo
		} else {
			closes[i] = hi
		}
	}
	return closes
}

func TestExtractStructureTooShort(t *testing.T) {
	candles := makeCandles(zigzag(6, 100, 103))
	points := extractStructure(candles, 3, 1)
	if points != nil {
		t.Errorf("Expected nil for window shorter than 2*swing+1, got %d points", len(points))
	}
}

func TestExtractStructureRetainedRange(t *testing.T) {
	candles := makeCandles(zigzag(20, 100, 103))
	points := extractStructure(candles, 3, 1)

	if len(points) != 14 {
		t.Fatalf("Expected 14 retained points, got %d", len(points))
	}
	if points[0].Index != 3 {
		t.Errorf("Expected first retained index 3, got %d", points[0].Index)
	}
	if points[len(points)-1].Index != 16 {
		t.Errorf("Expected last retained index 16, got %d", points[len(points)-1].Index)
	}
}

func TestExtractStructureFillsWithoutGaps(t *testing.T) {
	candles := makeCandles(zigzag(30, 100, 103))
	points := extractStructure(candles, 3, 1)

	for _, p := range points {
		if !p.HasLevels {
			t.Fatalf("Point at index %d has no levels", p.Index)
		}
		if p.Support <= 0 || p.Resistance <= 0 {
			t.Errorf("Point at index %d has empty level: support=%v resistance=%v", p.Index, p.Support, p.Resistance)
		}
	}
}

func TestExtractStructureLevels(t *testing.T) {
	// Zigzag between 100 and 103: every trough low is 99.5, every peak high
	// is 103.5, and both are confirmed pivots.
	candles := makeCandles(zigzag(30, 100, 103))
	points := extractStructure(candles, 3, 1)

	for _, p := range points {
		if p.Support != 99.5 {
			t.Errorf("Index %d: expected support 99.5, got %v", p.Index, p.Support)
		}
		if p.Resistance != 103.5 {
			t.Errorf("Index %d: expected resistance 103.5, got %v", p.Index, p.Resistance)
		}
	}
}

func TestExtractStructureSwingExtrema(t *testing.T) {
	closes := zigzag(30, 100, 103)
	closes[10] = 110 // prominent peak
	candles := makeCandles(closes)
	points := extractStructure(candles, 3, 1)

	// The swing high around index 10 must pick up the peak.
	for _, p := range points {
		if p.Index >= 7 && p.Index <= 13 && p.SwingHigh != 110.5 {
			t.Errorf("Index %d: expected swing high 110.5, got %v", p.Index, p.SwingHigh)
		}
	}
}

func TestExtractStructureSupportTracksLatestPivot(t *testing.T) {
	// A flat tail after an early zigzag confirms new, higher pivot lows, so
	// support moves up from the old trough to the flat region's low.
	closes := zigzag(10, 100, 103)
	for i := 10; i < 30; i++ {
		closes = append(closes, 103)
	}
	candles := makeCandles(closes)
	points := extractStructure(candles, 3, 2)

	first := points[0]
	if first.Support != 99.5 {
		t.Errorf("Expected early support 99.5, got %v", first.Support)
	}
	last := points[len(points)-1]
	if last.Support != 102.5 {
		t.Errorf("Expected support to move up to 102.5, got %v", last.Support)
	}
}

func TestAnalyzeDropsNothingWhenLevelsExist(t *testing.T) {
	candles := makeCandles(zigzag(40, 100, 103))
	a := NewAnalyzer(3, 1, 5)
	frame := a.Analyze(candles)

	if frame.Len() != 34 {
		t.Errorf("Expected 34 rows, got %d", frame.Len())
	}
}

func TestFrameLatestPrev(t *testing.T) {
	candles := makeCandles(zigzag(40, 100, 103))
	a := NewAnalyzer(3, 1, 5)
	frame := a.Analyze(candles)

	latest, ok := frame.Latest()
	if !ok {
		t.Fatal("Expected a latest row")
	}
	prev, ok := frame.Prev()
	if !ok {
		t.Fatal("Expected a prev row")
	}
	if prev.Structure.Index != latest.Structure.Index-1 {
		t.Errorf("Expected prev index %d, got %d", latest.Structure.Index-1, prev.Structure.Index)
	}

	empty := &Frame{}
	if _, ok := empty.Latest(); ok {
		t.Error("Expected no latest row on empty frame")
	}
	if _, ok := empty.Prev(); ok {
		t.Error("Expected no prev row on empty frame")
	}
}

func TestReturnStdDevPct(t *testing.T) {
	candles := makeCandles(zigzag(40, 100, 103))
	a := NewAnalyzer(3, 1, 5)
	frame := a.Analyze(candles)

	// Alternating +3% / -2.9% returns give a stddev close to 3%.
	got := frame.ReturnStdDevPct()
	if got < 2 || got > 4 {
		t.Errorf("Expected stddev near 3%%, got %v", got)
	}

	if (&Frame{}).ReturnStdDevPct() != 0 {
		t.Error("Expected 0 stddev for empty frame")
	}
}
