// Package timeseries provides core time series data structures and operations.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Series represents a regularly spaced time series with timestamps and values.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
	Freq       Frequency
}

// epoch anchors series built from bare values.
var epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// New creates a monthly series from values, starting January 2000.
func New(values []float64) *Series {
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = Monthly.Add(epoch, i)
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Freq:       Monthly,
	}
}

// NewWithTimestamps creates a named series with explicit timestamps.
// Timestamps must be strictly increasing; the frequency is inferred from them.
func NewWithTimestamps(name string, timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	for i := 1; i < len(timestamps); i++ {
		if !timestamps[i].After(timestamps[i-1]) {
			return nil, fmt.Errorf("timestamps must be strictly increasing at index %d", i)
		}
	}
	freq, err := InferFrequency(timestamps)
	if err != nil {
		return nil, err
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       name,
		Freq:       freq,
	}, nil
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Last returns the timestamp of the final observation.
func (s *Series) Last() time.Time {
	if len(s.Timestamps) == 0 {
		return time.Time{}
	}
	return s.Timestamps[len(s.Timestamps)-1]
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	return Mean(s.Values)
}

// Std calculates the sample standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(Variance(s.Values))
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	min := s.Values[0]
	for _, v := range s.Values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Diff calculates the first difference of the series.
func (s *Series) Diff() *Series {
	return s.lagDiff(1, "_diff")
}

func (s *Series) lagDiff(lag int, suffix string) *Series {
	if lag <= 0 || len(s.Values) <= lag {
		return &Series{Values: []float64{}, Freq: s.Freq}
	}
	out := s.Slice(lag, len(s.Values))
	for i := range out.Values {
		out.Values[i] -= s.Values[i]
	}
	out.Name = s.Name + suffix
	return out
}

// Slice returns a copy of the observations in [start, end).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}, Name: s.Name, Freq: s.Freq}
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	timestamps := make([]time.Time, len(values))
	if len(s.Timestamps) >= end {
		copy(timestamps, s.Timestamps[start:end])
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
		Freq:       s.Freq,
	}
}

// Head returns a copy of the first n observations.
func (s *Series) Head(n int) *Series {
	return s.Slice(0, n)
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	return s.Slice(0, len(s.Values))
}

// Future returns the h timestamps following the last observation.
func (s *Series) Future(h int) []time.Time {
	if h <= 0 || len(s.Timestamps) == 0 {
		return nil
	}
	last := s.Last()
	out := make([]time.Time, h)
	for i := range out {
		out[i] = s.Freq.Add(last, i+1)
	}
	return out
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the sample variance of values, or 0 with fewer than two.
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(values)-1)
}
