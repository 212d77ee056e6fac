// Package encoding maps categorical feature values onto stable integer
// indexes. Vocabularies are closed at training time; values never seen during
// training encode to a deterministic fallback instead of failing the request.
package encoding

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/taskmindhq/taskmind/internal/features"
	"github.com/taskmindhq/taskmind/internal/metrics"
)

// Encoder assigns each distinct training value a stable integer index in
// first-seen order.
type Encoder struct {
	classes []string
	index   map[string]int
}

// Fit builds an encoder over the given values. Index order is the order of
// first appearance, so a fixed input order yields a reproducible vocabulary.
func Fit(values []string) *Encoder {
	e := &Encoder{index: make(map[string]int)}
	for _, v := range values {
		if _, ok := e.index[v]; ok {
			continue
		}
		e.index[v] = len(e.classes)
		e.classes = append(e.classes, v)
	}
	return e
}

// Classes returns the vocabulary in index order.
func (e *Encoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// Encode returns the index of value and whether it was part of the training
// vocabulary. Unseen values map to the fallback index (the first trained
// class). Encoding never fails; an empty vocabulary is a caller bug surfaced
// as a missing-artifact condition upstream.
func (e *Encoder) Encode(value string) (int, bool) {
	if idx, ok := e.index[value]; ok {
		return idx, true
	}
	return 0, false
}

// MarshalJSON persists the vocabulary only; the reverse index is rebuilt on
// load.
func (e *Encoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.classes)
}

// UnmarshalJSON restores the vocabulary and rebuilds the reverse index.
func (e *Encoder) UnmarshalJSON(data []byte) error {
	var classes []string
	if err := json.Unmarshal(data, &classes); err != nil {
		return fmt.Errorf("decoding encoder classes: %w", err)
	}
	e.classes = classes
	e.index = make(map[string]int, len(classes))
	for i, c := range classes {
		e.index[c] = i
	}
	return nil
}

// Set holds one encoder per categorical feature column. A Set is co-versioned
// with the model it was fit alongside and is only ever replaced wholesale.
type Set map[string]*Encoder

// FitSet fits one encoder per categorical feature present in featureNames,
// drawing values from the rows in order.
func FitSet(rows []features.Row, featureNames []string) Set {
	set := make(Set)
	for _, name := range featureNames {
		if !features.IsCategorical(name) {
			continue
		}
		values := make([]string, 0, len(rows))
		for _, row := range rows {
			v, _ := row.Category(name)
			values = append(values, v)
		}
		set[name] = Fit(values)
	}
	return set
}

// Vector assembles the numeric input vector for a row in the declared
// feature order, encoding categorical columns through the set. A missing
// encoder for a required categorical feature means the artifact pair is
// incomplete; that is the one condition reported as an error.
func (s Set) Vector(row features.Row, featureNames []string, logger *slog.Logger) ([]float64, error) {
	vec := make([]float64, 0, len(featureNames))
	for _, name := range featureNames {
		if features.IsCategorical(name) {
			enc, ok := s[name]
			if !ok || len(enc.classes) == 0 {
				return nil, fmt.Errorf("no encoder fitted for feature %q", name)
			}
			value, _ := row.Category(name)
			idx, seen := enc.Encode(value)
			if !seen {
				metrics.Inc(metrics.EncoderFallbacks)
				logger.Warn("unseen category, using fallback",
					"feature", name, "value", value, "fallback", enc.classes[0])
			}
			vec = append(vec, float64(idx))
			continue
		}
		v, ok := row.Value(name)
		if !ok {
			return nil, fmt.Errorf("unknown feature %q", name)
		}
		vec = append(vec, v)
	}
	return vec, nil
}
