// Package forecast refits the selected candidate on the full series and
// produces the final horizon forecast.
package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sartorproj/autoforecast/arima"
	"github.com/sartorproj/autoforecast/catalog"
	"github.com/sartorproj/autoforecast/errs"
	"github.com/sartorproj/autoforecast/timeseries"
)

const (
	stageFinalize = "finalize"
	stageForecast = "forecast"
)

// FinalizedModel is a candidate fitted on every observation.
type FinalizedModel struct {
	CandidateID string
	Name        string
	Params      map[string]any
	TrainedOn   int       // number of observations used in the final fit
	LastTime    time.Time // timestamp of the last training observation
	Freq        timeseries.Frequency
	FitSeconds  float64
	// Summary holds coefficients, information criteria and the Ljung-Box
	// residual check of ARIMA candidates; nil for every other model.
	Summary *arima.Summary

	fitted catalog.Fitted
	tail   *timeseries.Series // last observation, origin of forecast timestamps
}

// Point is one forecast step. Lower and Upper are NaN when the model
// produces no intervals.
type Point struct {
	Time  time.Time
	Value float64
	Lower float64
	Upper float64
}

// Result is a finished forecast.
type Result struct {
	CandidateID string
	Coverage    float64
	Points      []Point
}

// Values returns the point forecasts in order.
func (r *Result) Values() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Value
	}
	return out
}

// Finalize fits a fresh instance of candidate bestID on the whole series.
// Fold fits are never reused. Failures are PredictionErrors.
func Finalize(ctx context.Context, cat *catalog.Catalog, bestID string, series *timeseries.Series) (*FinalizedModel, error) {
	if cat == nil {
		return nil, errs.Errorf(errs.KindPrediction, stageFinalize, "no catalog")
	}
	adapter, ok := cat.Get(bestID)
	if !ok {
		return nil, errs.Errorf(errs.KindPrediction, stageFinalize, "unknown candidate %q", bestID)
	}
	if series == nil || series.Len() == 0 {
		return nil, errs.Errorf(errs.KindPrediction, stageFinalize, "series is empty")
	}

	start := time.Now()
	fitted, err := adapter.Fit(ctx, series.Copy())
	if err != nil {
		return nil, errs.New(errs.KindPrediction, stageFinalize, fmt.Errorf("refit %s: %w", bestID, err))
	}

	return &FinalizedModel{
		CandidateID: bestID,
		Name:        adapter.Name(),
		Params:      adapter.Params(),
		TrainedOn:   series.Len(),
		LastTime:    series.Last(),
		Freq:        series.Freq,
		FitSeconds:  time.Since(start).Seconds(),
		Summary:     catalog.Summarize(fitted),
		fitted:      fitted,
		tail:        series.Slice(series.Len()-1, series.Len()),
	}, nil
}

// Predict forecasts horizon steps past the end of the training series with
// prediction intervals at the given coverage.
func Predict(model *FinalizedModel, horizon int, coverage float64) (*Result, error) {
	if horizon <= 0 {
		return nil, errs.Errorf(errs.KindPrediction, stageForecast, "horizon must be positive, got %d", horizon)
	}
	if model == nil || model.fitted == nil || model.tail == nil {
		return nil, errs.Errorf(errs.KindPrediction, stageForecast, "model is not finalized")
	}

	values, lower, upper, err := catalog.PredictWithInterval(model.fitted, horizon, coverage)
	if err != nil {
		return nil, errs.New(errs.KindPrediction, stageForecast, fmt.Errorf("%s: %w", model.CandidateID, err))
	}
	if len(values) != horizon || len(lower) != horizon || len(upper) != horizon {
		return nil, errs.Errorf(errs.KindPrediction, stageForecast,
			"%s returned %d values for a horizon of %d", model.CandidateID, len(values), horizon)
	}

	times := model.tail.Future(horizon)
	if len(times) != horizon {
		return nil, errs.Errorf(errs.KindPrediction, stageForecast, "%s: training series has no timestamps", model.CandidateID)
	}
	points := make([]Point, horizon)
	for i := range points {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return nil, errs.Errorf(errs.KindPrediction, stageForecast,
				"%s: non-finite forecast at step %d", model.CandidateID, i+1)
		}
		points[i] = Point{
			Time:  times[i],
			Value: values[i],
			Lower: lower[i],
			Upper: upper[i],
		}
	}
	return &Result{CandidateID: model.CandidateID, Coverage: coverage, Points: points}, nil
}
