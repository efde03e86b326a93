package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type chartRequest struct {
	Kind string `validate:"required,chart_kind"`
}

type windowRequest struct {
	Days int `validate:"required,window_days"`
}

func newValidate() *validator.Validate {
	v := validator.New()
	RegisterOn(v)
	return v
}

func TestChartKind(t *testing.T) {
	t.Parallel()

	v := newValidate()
	for _, k := range []string{"line", "area", "bar", "BAR"} {
		require.NoError(t, v.Struct(chartRequest{Kind: k}), k)
	}
	for _, k := range []string{"", "pie", "candles"} {
		require.Error(t, v.Struct(chartRequest{Kind: k}), k)
	}
}

func TestWindowDays(t *testing.T) {
	t.Parallel()

	v := newValidate()
	for _, d := range []int{7, 30, 90} {
		require.NoError(t, v.Struct(windowRequest{Days: d}))
	}
	for _, d := range []int{0, 1, 14, 365, -7} {
		require.Error(t, v.Struct(windowRequest{Days: d}), d)
	}
}
