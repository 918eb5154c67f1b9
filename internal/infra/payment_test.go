package infra

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{amount: "10.00", want: 1000},
		{amount: "5", want: 500},
		{amount: "0.99", want: 99},
		{amount: "0.01", want: 1},
		{amount: "0", want: 0},
		{amount: "1234.56", want: 123456},
		{amount: "0.125", want: 13},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, MinorUnits(decimal.RequireFromString(tt.amount)))
		})
	}
}
