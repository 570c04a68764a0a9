package match

import (
	"math"

	"github.com/soundtrace/hotlist/pkg/models"
)

// Scores holds the dispersion statistics and derived confidence metrics for a
// winning bucket.
type Scores struct {
	TRefAvg                  float64 // mean reference time of winning matches, seconds
	TRefStd                  float64 // population std dev of the same, seconds
	RatioFingersReference    float64
	RatioFingersMeasurements float64
	MatchingFocus            float64
	Confidence1              float64
	Confidence2              float64
	Softmax                  [models.NumClasses]float64
}

// activation maps [0, inf) monotonically onto [0, 1): near-linear at zero,
// saturating for large x.
func activation(x float64) float64 {
	return 1.0 - math.Exp(-x)
}

func round2(x float64) float64 {
	return math.Round(x*100.0) / 100.0
}

// Score computes the confidence metrics for a winning bucket.
//
// rows is the full lookup result set the bucket indices point into, meta the
// winning track's metadata, queryCount the size of the drained query batch,
// and quantum the extractor's time quantum in seconds per time-code unit.
//
// The standard deviation is the exact two-pass population formula. A zero
// reference fingerprint count yields a zero ratio rather than a division
// fault; no NaN or infinity ever reaches the output.
func Score(winner *Bucket, rows []models.ReferenceMatch, meta models.TrackMeta, queryCount int, quantum float64) Scores {
	n := winner.Count

	// Two-pass mean and population standard deviation over the winning
	// matches' reference time codes, in quantum units.
	var sum float64
	for _, idx := range winner.Indices {
		sum += float64(rows[idx].RefTimeCode)
	}
	mean := sum / float64(n)

	var sqDev float64
	for _, idx := range winner.Indices {
		d := float64(rows[idx].RefTimeCode) - mean
		sqDev += d * d
	}
	std := math.Sqrt(sqDev / float64(n))

	// Scale to seconds. The unrounded std drives matchingFocus; the rounded
	// value is what gets emitted.
	avgSec := mean * quantum
	stdSec := std * quantum

	var ratioRef float64
	if meta.FingerprintCount > 0 {
		ratioRef = float64(n) / float64(meta.FingerprintCount)
	}

	var ratioMeas float64
	if queryCount > 0 {
		ratioMeas = float64(n) / float64(queryCount)
	}

	focus := 1.0
	if stdSec > 0 {
		focus = meta.DurationSeconds() / stdSec
	}

	c1 := activation(ratioRef * ratioMeas)
	c2 := activation(ratioRef * ratioMeas * focus)

	return Scores{
		TRefAvg:                  round2(avgSec),
		TRefStd:                  round2(stdSec),
		RatioFingersReference:    ratioRef,
		RatioFingersMeasurements: ratioMeas,
		MatchingFocus:            focus,
		Confidence1:              c1,
		Confidence2:              c2,
		Softmax:                  Softmax(winner.Class, c2),
	}
}

// Softmax builds the 4-way class distribution: the winning class gets
// 1/4 + 3/4*confidence, every other class 1/4 - 1/4*confidence. The vector
// always sums to 1 and degenerates to uniform at zero confidence.
func Softmax(winner models.ContentClass, confidence float64) [models.NumClasses]float64 {
	v := models.UniformSoftmax()
	if !winner.Valid() {
		return v
	}
	for c := range v {
		if models.ContentClass(c) == winner {
			v[c] = 0.25 + 0.75*confidence
		} else {
			v[c] = 0.25 - 0.25*confidence
		}
	}
	return v
}
