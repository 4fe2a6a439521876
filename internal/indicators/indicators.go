// Package indicators implements deterministic technical indicator
// transforms over daily bar series. Every function returns one output
// per input bar, aligned by index; NaN marks warmup positions where the
// indicator is not yet defined.
package indicators

import (
	"math"

	"github.com/vvnuui/cerisier/internal/contracts"
)

// Valid reports whether an indicator value is defined at this index.
func Valid(v float64) bool {
	return !math.IsNaN(v)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA computes the trailing n-bar simple moving average.
// Defined from index n-1.
func SMA(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values) < n {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA computes the exponential moving average with k = 2/(n+1),
// seeded with the first value. Defined from index 0.
func EMA(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values) == 0 {
		return out
	}

	k := 2.0 / float64(n+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1]*(1-k) + values[i]*k
	}
	return out
}

// StdDev computes the population standard deviation of a window.
func StdDev(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}

	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(len(window))

	var sq float64
	for _, v := range window {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(window)))
}

// BOLLResult holds the three Bollinger bands.
type BOLLResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// BOLL computes Bollinger bands: middle = SMA(n), upper/lower =
// middle +/- mult x population stddev of the trailing window.
// Defined from index n-1.
func BOLL(closes []float64, n int, mult float64) BOLLResult {
	res := BOLLResult{
		Upper:  nanSlice(len(closes)),
		Middle: SMA(closes, n),
		Lower:  nanSlice(len(closes)),
	}

	for i := n - 1; i < len(closes); i++ {
		sd := StdDev(closes[i-n+1 : i+1])
		res.Upper[i] = res.Middle[i] + mult*sd
		res.Lower[i] = res.Middle[i] - mult*sd
	}
	return res
}

// MACD warmup: the 12/26/9 chain is treated as fully populated only
// from index 25 onward.
const macdWarmup = 25

// MACDResult holds the MACD component series.
type MACDResult struct {
	DIF       []float64
	DEA       []float64
	Histogram []float64
}

// MACD computes DIF = EMA(12) - EMA(26), DEA = EMA(9) of DIF, and
// histogram = (DIF - DEA) x 2. All NaN until index 25.
func MACD(closes []float64) MACDResult {
	res := MACDResult{
		DIF:       nanSlice(len(closes)),
		DEA:       nanSlice(len(closes)),
		Histogram: nanSlice(len(closes)),
	}
	if len(closes) == 0 {
		return res
	}

	fast := EMA(closes, 12)
	slow := EMA(closes, 26)

	dif := make([]float64, len(closes))
	for i := range closes {
		dif[i] = fast[i] - slow[i]
	}
	dea := EMA(dif, 9)

	for i := macdWarmup; i < len(closes); i++ {
		res.DIF[i] = dif[i]
		res.DEA[i] = dea[i]
		res.Histogram[i] = (dif[i] - dea[i]) * 2
	}
	return res
}

// KDJResult holds the stochastic oscillator series.
type KDJResult struct {
	K []float64
	D []float64
	J []float64
}

// KDJ computes the KDJ oscillator over n-bar windows:
// RSV = (close - lowestLow) / (highestHigh - lowestLow) x 100,
// 50 when the range is zero; K = 2/3 prevK + 1/3 RSV,
// D = 2/3 prevD + 1/3 K, J = 3K - 2D, seeded with prevK = prevD = 50.
// NaN for the first n-1 bars.
func KDJ(bars []contracts.Kline, n int) KDJResult {
	res := KDJResult{
		K: nanSlice(len(bars)),
		D: nanSlice(len(bars)),
		J: nanSlice(len(bars)),
	}
	if n <= 0 || len(bars) < n {
		return res
	}

	prevK, prevD := 50.0, 50.0
	for i := n - 1; i < len(bars); i++ {
		low := bars[i-n+1].Low
		high := bars[i-n+1].High
		for _, b := range bars[i-n+2 : i+1] {
			if b.Low < low {
				low = b.Low
			}
			if b.High > high {
				high = b.High
			}
		}

		rsv := 50.0
		if high > low {
			rsv = (bars[i].Close - low) / (high - low) * 100
		}

		k := prevK*2/3 + rsv/3
		d := prevD*2/3 + k/3

		res.K[i] = k
		res.D[i] = d
		res.J[i] = 3*k - 2*d

		prevK, prevD = k, d
	}
	return res
}

// RSI computes the Wilder-smoothed relative strength index.
// First defined at index n; 100 when the average loss is zero.
func RSI(closes []float64, n int) []float64 {
	out := nanSlice(len(closes))
	if n <= 0 || len(closes) <= n {
		return out
	}

	var gainSum, lossSum float64
	for i := 1; i <= n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}

	avgGain := gainSum / float64(n)
	avgLoss := lossSum / float64(n)
	out[n] = rsiValue(avgGain, avgLoss)

	for i := n + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(n-1) + gain) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + loss) / float64(n)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// Closes extracts the close series from bars.
func Closes(bars []contracts.Kline) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume series from bars.
func Volumes(bars []contracts.Kline) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = float64(b.Volume)
	}
	return out
}
