// Package structure detects swing points, clusters them into scored
// support/resistance zones, and classifies the prevailing regime.
package structure

import "github.com/songzhiyuan98/klinelens-go/pkg/types"

// FindSwingPoints finds fractal swing points: bar i is a swing high iff
// h_i = max(h_{i-n..i+n}) (ties resolve to "is a swing"); symmetric for
// lows. Bars in [0,n) and [N-n,N) are never swings. Returns two
// time-ordered lists.
func FindSwingPoints(bars []types.Bar, n int) (highs, lows []types.SwingPoint) {
	N := len(bars)
	if n < 1 || N < 2*n+1 {
		return nil, nil
	}
	for i := n; i < N-n; i++ {
		if isSwingHigh(bars, i, n) {
			highs = append(highs, types.SwingPoint{
				Index: i, Price: bars[i].High, BarTime: bars[i].Time, IsHigh: true,
			})
		}
		if isSwingLow(bars, i, n) {
			lows = append(lows, types.SwingPoint{
				Index: i, Price: bars[i].Low, BarTime: bars[i].Time, IsHigh: false,
			})
		}
	}
	return highs, lows
}

func isSwingHigh(bars []types.Bar, i, n int) bool {
	center := bars[i].High
	for j := i - n; j <= i+n; j++ {
		if bars[j].High > center {
			return false
		}
	}
	return true
}

func isSwingLow(bars []types.Bar, i, n int) bool {
	center := bars[i].Low
	for j := i - n; j <= i+n; j++ {
		if bars[j].Low < center {
			return false
		}
	}
	return true
}
