package service_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/campaign-dispatch/internal/model"
	"github.com/unclebandit/campaign-dispatch/internal/service"
)

func abConfig(variants ...model.Variant) model.ABConfig {
	return model.ABConfig{Enabled: true, Variants: variants}
}

func TestVariantSelectDisabledReturnsNil(t *testing.T) {
	s := service.NewVariantSelector()
	assert.Nil(t, s.Select(model.ABConfig{Enabled: false}))
	assert.Nil(t, s.Select(model.ABConfig{Enabled: true})) // no variants
}

func TestVariantSelectPinnedRoll(t *testing.T) {
	ab := abConfig(
		model.Variant{Name: "A", TemplateID: 1, Percentage: 30},
		model.Variant{Name: "B", TemplateID: 2, Percentage: 70},
	)

	cases := []struct {
		roll float64
		want string
	}{
		{0.0, "A"},
		{0.29, "A"},
		{0.31, "B"},
		{0.99, "B"},
	}
	for _, c := range cases {
		s := service.NewVariantSelectorWithRoll(func() float64 { return c.roll })
		v := s.Select(ab)
		require.NotNil(t, v)
		assert.Equal(t, c.want, v.Name, "roll %v", c.roll)
	}
}

func TestVariantSelectFallbackWhenSumShort(t *testing.T) {
	// Percentages sum to 99.9; a roll past the sum lands on the first variant.
	ab := abConfig(
		model.Variant{Name: "A", TemplateID: 1, Percentage: 49.95},
		model.Variant{Name: "B", TemplateID: 2, Percentage: 49.95},
	)
	s := service.NewVariantSelectorWithRoll(func() float64 { return 0.9999 })
	v := s.Select(ab)
	require.NotNil(t, v)
	assert.Equal(t, "A", v.Name)
}

func TestVariantSelectDistribution(t *testing.T) {
	src := rand.New(rand.NewSource(1))
	s := service.NewVariantSelectorWithRoll(src.Float64)

	ab := abConfig(
		model.Variant{Name: "A", TemplateID: 1, Percentage: 50},
		model.Variant{Name: "B", TemplateID: 2, Percentage: 50},
	)

	const draws = 10000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		v := s.Select(ab)
		require.NotNil(t, v)
		counts[v.Name]++
	}

	// 50/50 split within 3 points either way on a seeded source.
	assert.InDelta(t, draws/2, counts["A"], draws*0.03)
	assert.InDelta(t, draws/2, counts["B"], draws*0.03)
}

func TestValidateABConfig(t *testing.T) {
	t.Run("disabled always valid", func(t *testing.T) {
		assert.True(t, service.ValidateABConfig(model.ABConfig{Enabled: false}).OK)
	})

	t.Run("valid split", func(t *testing.T) {
		res := service.ValidateABConfig(abConfig(
			model.Variant{TemplateID: 1, Percentage: 50},
			model.Variant{TemplateID: 2, Percentage: 50},
		))
		assert.True(t, res.OK)
	})

	t.Run("enabled with no variants", func(t *testing.T) {
		res := service.ValidateABConfig(model.ABConfig{Enabled: true})
		assert.False(t, res.OK)
	})

	t.Run("sum not 100", func(t *testing.T) {
		res := service.ValidateABConfig(abConfig(
			model.Variant{TemplateID: 1, Percentage: 30},
			model.Variant{TemplateID: 2, Percentage: 30},
		))
		assert.False(t, res.OK)
		assert.Contains(t, res.Error(), "sum to 60")
	})

	t.Run("zero percentage", func(t *testing.T) {
		res := service.ValidateABConfig(abConfig(
			model.Variant{TemplateID: 1, Percentage: 0},
			model.Variant{TemplateID: 2, Percentage: 100},
		))
		assert.False(t, res.OK)
	})

	t.Run("missing template", func(t *testing.T) {
		res := service.ValidateABConfig(abConfig(
			model.Variant{TemplateID: 0, Percentage: 100},
		))
		assert.False(t, res.OK)
		assert.Contains(t, res.Error(), "has no template")
	})
}
