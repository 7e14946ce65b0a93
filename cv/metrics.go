package cv

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/autoforecast/experiment"
)

// Score computes every metric for one held-out block. train is the fold's
// training prefix, used to scale MASE and RMSSE by the in-sample error of
// the seasonal naive forecast with period sp (lag 1 when train is shorter
// than sp+1).
func Score(actual, predicted, train []float64, sp int) map[string]float64 {
	n := len(actual)
	var absSum, sqSum, pctSum, symSum float64
	for i := range actual {
		e := actual[i] - predicted[i]
		absSum += math.Abs(e)
		sqSum += e * e
		pctSum += math.Abs(e) / math.Max(math.Abs(actual[i]), epsilon)
		symSum += 2 * math.Abs(e) / math.Max(math.Abs(actual[i])+math.Abs(predicted[i]), epsilon)
	}
	mae := absSum / float64(n)
	mse := sqSum / float64(n)

	scaleAbs, scaleSq := naiveScale(train, sp)

	r2 := math.NaN()
	if n > 1 {
		if v := stat.Variance(actual, nil) * float64(n-1); v > 0 {
			r2 = 1 - sqSum/v
		}
	}

	return map[string]float64{
		experiment.MetricMAE:   mae,
		experiment.MetricRMSE:  math.Sqrt(mse),
		experiment.MetricMAPE:  pctSum / float64(n),
		experiment.MetricSMAPE: symSum / float64(n),
		experiment.MetricMASE:  ratio(mae, scaleAbs),
		experiment.MetricRMSSE: math.Sqrt(ratio(mse, scaleSq)),
		experiment.MetricR2:    r2,
	}
}

// epsilon guards percentage denominators against zero actuals.
const epsilon = 2.220446049250313e-16

// naiveScale returns the mean absolute and mean squared in-sample errors of
// the seasonal naive forecast on train.
func naiveScale(train []float64, sp int) (meanAbs, meanSq float64) {
	lag := sp
	if lag < 1 || len(train) < lag+1 {
		lag = 1
	}
	if len(train) < lag+1 {
		return math.NaN(), math.NaN()
	}
	for i := lag; i < len(train); i++ {
		d := train[i] - train[i-lag]
		meanAbs += math.Abs(d)
		meanSq += d * d
	}
	k := float64(len(train) - lag)
	return meanAbs / k, meanSq / k
}

func ratio(num, den float64) float64 {
	if den == 0 {
		if num == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return num / den
}

// nanMetrics is the metric set of a failed candidate.
func nanMetrics() map[string]float64 {
	out := make(map[string]float64, len(experiment.Metrics))
	for _, m := range experiment.Metrics {
		out[m] = math.NaN()
	}
	return out
}
