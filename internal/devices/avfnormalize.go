package devices

import "math"

// CommonFrameRates are the rates reported from an AVFoundation frame-rate
// range.
var CommonFrameRates = []float64{15, 24, 30, 60}

// NormalizeUnit maps a 0.0-1.0 float control onto 0-100.
func NormalizeUnit(f float64) int {
	return clampPercent(int(math.Round(f * 100)))
}

// DenormalizeUnit maps 0-100 back onto 0.0-1.0.
func DenormalizeUnit(v int) float64 {
	return float64(clampPercent(v)) / 100
}

// ZoomFactor maps 0-100 onto [1, maxZoom].
func ZoomFactor(v int, maxZoom float64) float64 {
	if maxZoom < 1 {
		maxZoom = 1
	}
	return 1 + DenormalizeUnit(v)*(maxZoom-1)
}

// ZoomPercent is the inverse of ZoomFactor.
func ZoomPercent(factor, maxZoom float64) int {
	if maxZoom <= 1 {
		return 0
	}
	return NormalizeUnit((factor - 1) / (maxZoom - 1))
}

// FrameRatesInRange returns the CommonFrameRates within [lo, hi].
func FrameRatesInRange(lo, hi float64) []float64 {
	var rates []float64
	for _, fps := range CommonFrameRates {
		if fps >= lo && fps <= hi {
			rates = append(rates, fps)
		}
	}
	return rates
}

func clampPercent(v int) int {
	return min(max(v, 0), 100)
}
