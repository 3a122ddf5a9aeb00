package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		part, whole int64
		want        string
	}{
		{4, 10, "40.0"},
		{0, 0, "0.0"},
		{1, 3, "33.3"},
		{2, 3, "66.7"},
		{1, 8, "12.5"},
		{1, 16, "6.3"},
		{7, 7, "100.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.part, tt.whole))
	}
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 2.5, Round1(decimal.NewFromInt(5).Div(decimal.NewFromInt(2))))
	assert.Equal(t, 1.3, Round1(decimal.NewFromInt(4).Div(decimal.NewFromInt(3))))
}
