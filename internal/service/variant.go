// internal/service/variant.go
package service

import (
	"fmt"
	"math/rand"

	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/queue"
)

// VariantSelector makes the weighted-random A/B choice for a recipient. The
// roll function is injectable so tests can pin outcomes; the default is the
// process-wide math/rand source, which is safe for concurrent use.
type VariantSelector struct {
	roll func() float64
}

func NewVariantSelector() *VariantSelector {
	return &VariantSelector{roll: rand.Float64}
}

// NewVariantSelectorWithRoll pins the random source, forcing a deterministic
// pick.
func NewVariantSelectorWithRoll(roll func() float64) *VariantSelector {
	return &VariantSelector{roll: roll}
}

// Select draws r uniformly from [0, 100) and walks the variants in declared
// order, accumulating percentages; the first variant whose cumulative sum
// reaches r wins. If rounding leaves the sum short of 100 and no variant
// qualifies, the first variant absorbs the remainder. Returns nil when A/B
// testing is off or no variants exist.
func (s *VariantSelector) Select(ab model.ABConfig) *model.Variant {
	if !ab.Enabled || len(ab.Variants) == 0 {
		return nil
	}

	r := s.roll() * 100
	var cum float64
	for i := range ab.Variants {
		cum += ab.Variants[i].Percentage
		if cum >= r {
			return &ab.Variants[i]
		}
	}
	return &ab.Variants[0]
}

// ValidateABConfig rejects malformed A/B configurations before any recipient
// is enqueued: when enabled, every variant needs a template and a percentage
// in (0, 100], and the percentages must sum to exactly 100. The selector's
// first-variant fallback stays in place as a second line of defense.
func ValidateABConfig(ab model.ABConfig) queue.ValidationResult {
	res := queue.ValidationResult{OK: true}
	if !ab.Enabled {
		return res
	}
	if len(ab.Variants) == 0 {
		res.OK = false
		res.Problems = append(res.Problems, "ab testing enabled with no variants")
		return res
	}

	var sum float64
	for i, v := range ab.Variants {
		if v.TemplateID <= 0 {
			res.OK = false
			res.Problems = append(res.Problems, fmt.Sprintf("variant %d has no template", i))
		}
		if v.Percentage <= 0 || v.Percentage > 100 {
			res.OK = false
			res.Problems = append(res.Problems, fmt.Sprintf("variant %d percentage %v out of range", i, v.Percentage))
		}
		sum += v.Percentage
	}
	if sum != 100 {
		res.OK = false
		res.Problems = append(res.Problems, fmt.Sprintf("variant percentages sum to %v, want 100", sum))
	}
	return res
}
