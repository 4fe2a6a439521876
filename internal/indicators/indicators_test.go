package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvnuui/cerisier/internal/contracts"
)

// fixtureCloses is a fixed 35-bar close series used by the golden tests.
var fixtureCloses = []float64{
	10.00, 10.20, 10.10, 10.40, 10.30, 10.60, 10.50, 10.80, 10.70, 11.00,
	10.90, 11.20, 11.10, 11.40, 11.30, 11.60, 11.50, 11.80, 11.70, 12.00,
	11.90, 12.20, 12.10, 12.40, 12.30, 12.60, 12.50, 12.80, 12.70, 13.00,
	12.90, 13.20, 13.10, 13.40, 13.30,
}

func fixtureBars() []contracts.Kline {
	bars := make([]contracts.Kline, len(fixtureCloses))
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range fixtureCloses {
		bars[i] = contracts.Kline{
			Date:   base.AddDate(0, 0, i),
			Open:   c - 0.05,
			High:   c + 0.20,
			Low:    c - 0.20,
			Close:  c,
			Volume: int64(100000 + 1000*i),
			Amount: c * float64(100000+1000*i),
		}
	}
	return bars
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func TestSMA(t *testing.T) {
	sma := SMA(fixtureCloses, 5)
	require.Len(t, sma, len(fixtureCloses))

	// Undefined during warmup
	for i := 0; i < 4; i++ {
		assert.False(t, Valid(sma[i]), "index %d should be NaN", i)
	}

	// First defined value is the mean of the first 5 closes
	assert.InDelta(t, mean(fixtureCloses[0:5]), sma[4], 1e-9)

	// MA5 at bar index 5 equals the mean of bars 1-5
	assert.InDelta(t, mean(fixtureCloses[1:6]), sma[5], 1e-9)

	// Every defined value is a trailing window mean
	for i := 4; i < len(fixtureCloses); i++ {
		assert.InDelta(t, mean(fixtureCloses[i-4:i+1]), sma[i], 1e-9)
	}
}

func TestSMATooShort(t *testing.T) {
	sma := SMA([]float64{1, 2, 3}, 5)
	for _, v := range sma {
		assert.False(t, Valid(v))
	}
}

func TestEMASeededWithFirstValue(t *testing.T) {
	ema := EMA(fixtureCloses, 12)
	require.Len(t, ema, len(fixtureCloses))

	assert.Equal(t, fixtureCloses[0], ema[0])

	// Recurrence check at index 1
	k := 2.0 / 13.0
	want := fixtureCloses[0]*(1-k) + fixtureCloses[1]*k
	assert.InDelta(t, want, ema[1], 1e-9)

	// Full recurrence replay
	prev := fixtureCloses[0]
	for i := 1; i < len(fixtureCloses); i++ {
		prev = prev*(1-k) + fixtureCloses[i]*k
		assert.InDelta(t, prev, ema[i], 1e-9, "index %d", i)
	}
}

func TestMACDWarmupBoundary(t *testing.T) {
	res := MACD(fixtureCloses)

	for i := 0; i < 25; i++ {
		assert.False(t, Valid(res.DIF[i]), "DIF[%d] should be NaN", i)
		assert.False(t, Valid(res.DEA[i]), "DEA[%d] should be NaN", i)
		assert.False(t, Valid(res.Histogram[i]), "Histogram[%d] should be NaN", i)
	}
	for i := 25; i < len(fixtureCloses); i++ {
		assert.True(t, Valid(res.DIF[i]), "DIF[%d] should be defined", i)
	}
}

func TestMACDGoldenValues(t *testing.T) {
	res := MACD(fixtureCloses)

	// Independent replay of the 12/26/9 chain
	k12 := 2.0 / 13.0
	k26 := 2.0 / 27.0
	k9 := 2.0 / 10.0

	fast := fixtureCloses[0]
	slow := fixtureCloses[0]
	dea := 0.0 // DIF at index 0 is zero since both EMAs share the seed
	for i := 1; i < len(fixtureCloses); i++ {
		fast = fast*(1-k12) + fixtureCloses[i]*k12
		slow = slow*(1-k26) + fixtureCloses[i]*k26
		dif := fast - slow
		dea = dea*(1-k9) + dif*k9

		if i >= 25 {
			assert.InDelta(t, dif, res.DIF[i], 1e-9, "DIF[%d]", i)
			assert.InDelta(t, dea, res.DEA[i], 1e-9, "DEA[%d]", i)
			assert.InDelta(t, (dif-dea)*2, res.Histogram[i], 1e-9, "Histogram[%d]", i)
		}
	}
}

func TestKDJWarmupAndSeed(t *testing.T) {
	bars := fixtureBars()
	res := KDJ(bars, 9)

	for i := 0; i < 8; i++ {
		assert.False(t, Valid(res.K[i]), "K[%d] should be NaN", i)
	}

	// First defined bar uses the 50/50 seed
	low, high := bars[0].Low, bars[0].High
	for _, b := range bars[1:9] {
		low = math.Min(low, b.Low)
		high = math.Max(high, b.High)
	}
	rsv := (bars[8].Close - low) / (high - low) * 100
	wantK := 50.0*2/3 + rsv/3
	wantD := 50.0*2/3 + wantK/3

	assert.InDelta(t, wantK, res.K[8], 1e-9)
	assert.InDelta(t, wantD, res.D[8], 1e-9)
	assert.InDelta(t, 3*wantK-2*wantD, res.J[8], 1e-9)
}

func TestKDJGoldenValues(t *testing.T) {
	bars := fixtureBars()
	res := KDJ(bars, 9)

	// Independent replay over the whole series
	prevK, prevD := 50.0, 50.0
	for i := 8; i < len(bars); i++ {
		low, high := bars[i-8].Low, bars[i-8].High
		for _, b := range bars[i-7 : i+1] {
			low = math.Min(low, b.Low)
			high = math.Max(high, b.High)
		}
		rsv := (bars[i].Close - low) / (high - low) * 100
		k := prevK*2/3 + rsv/3
		d := prevD*2/3 + k/3

		assert.InDelta(t, k, res.K[i], 1e-9, "K[%d]", i)
		assert.InDelta(t, d, res.D[i], 1e-9, "D[%d]", i)
		assert.InDelta(t, 3*k-2*d, res.J[i], 1e-9, "J[%d]", i)

		prevK, prevD = k, d
	}
}

func TestKDJZeroRange(t *testing.T) {
	// Flat bars: RSV falls back to 50, K and D stay at the seed
	bars := make([]contracts.Kline, 12)
	for i := range bars {
		bars[i] = contracts.Kline{High: 10, Low: 10, Close: 10}
	}

	res := KDJ(bars, 9)
	for i := 8; i < len(bars); i++ {
		assert.InDelta(t, 50.0, res.K[i], 1e-9)
		assert.InDelta(t, 50.0, res.D[i], 1e-9)
		assert.InDelta(t, 50.0, res.J[i], 1e-9)
	}
}

func TestBOLLGoldenValues(t *testing.T) {
	res := BOLL(fixtureCloses, 20, 2)

	for i := 0; i < 19; i++ {
		assert.False(t, Valid(res.Upper[i]), "Upper[%d] should be NaN", i)
	}

	for i := 19; i < len(fixtureCloses); i++ {
		window := fixtureCloses[i-19 : i+1]
		mid := mean(window)
		sd := StdDev(window)

		assert.InDelta(t, mid, res.Middle[i], 1e-9, "Middle[%d]", i)
		assert.InDelta(t, mid+2*sd, res.Upper[i], 1e-9, "Upper[%d]", i)
		assert.InDelta(t, mid-2*sd, res.Lower[i], 1e-9, "Lower[%d]", i)
		assert.GreaterOrEqual(t, res.Upper[i], res.Lower[i])
	}
}

func TestBOLLConstantSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 42
	}

	res := BOLL(closes, 20, 2)
	for i := 19; i < len(closes); i++ {
		assert.InDelta(t, 42.0, res.Upper[i], 1e-9)
		assert.InDelta(t, 42.0, res.Middle[i], 1e-9)
		assert.InDelta(t, 42.0, res.Lower[i], 1e-9)
	}
}

func TestRSIWarmupBoundary(t *testing.T) {
	rsi := RSI(fixtureCloses, 14)

	for i := 0; i < 14; i++ {
		assert.False(t, Valid(rsi[i]), "RSI[%d] should be NaN", i)
	}
	for i := 14; i < len(fixtureCloses); i++ {
		assert.True(t, Valid(rsi[i]), "RSI[%d] should be defined", i)
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 10 + float64(i)
	}

	rsi := RSI(closes, 14)
	for i := 14; i < len(closes); i++ {
		assert.Equal(t, 100.0, rsi[i], "RSI[%d]", i)
	}
}

func TestRSIBounded(t *testing.T) {
	rsi := RSI(fixtureCloses, 14)
	for i := 14; i < len(fixtureCloses); i++ {
		assert.GreaterOrEqual(t, rsi[i], 0.0)
		assert.LessOrEqual(t, rsi[i], 100.0)
	}
}

func TestRSIWilderSmoothing(t *testing.T) {
	rsi := RSI(fixtureCloses, 14)

	// Independent replay of Wilder smoothing
	var gainSum, lossSum float64
	for i := 1; i <= 14; i++ {
		change := fixtureCloses[i] - fixtureCloses[i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}
	avgGain := gainSum / 14
	avgLoss := lossSum / 14
	assert.InDelta(t, 100-100/(1+avgGain/avgLoss), rsi[14], 1e-9)

	for i := 15; i < len(fixtureCloses); i++ {
		change := fixtureCloses[i] - fixtureCloses[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*13 + gain) / 14
		avgLoss = (avgLoss*13 + loss) / 14
		assert.InDelta(t, 100-100/(1+avgGain/avgLoss), rsi[i], 1e-9, "RSI[%d]", i)
	}
}

func TestClosesAndVolumes(t *testing.T) {
	bars := fixtureBars()

	closes := Closes(bars)
	require.Len(t, closes, len(bars))
	assert.Equal(t, fixtureCloses, closes)

	volumes := Volumes(bars)
	assert.Equal(t, 100000.0, volumes[0])
	assert.Equal(t, 101000.0, volumes[1])
}
