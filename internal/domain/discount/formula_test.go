package discount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuyNGetM_FreeUnits(t *testing.T) {
	tests := []struct {
		name string
		f    BuyNGetM
		qty  int
		want int
	}{
		// A 1+1 uses strict set semantics: a full pair is needed per free unit,
		// so three units yield exactly one free.
		{name: "1+1 with qty 1", f: BuyNGetM{Buy: 1, Get: 1}, qty: 1, want: 0},
		{name: "1+1 with qty 2", f: BuyNGetM{Buy: 1, Get: 1}, qty: 2, want: 1},
		{name: "1+1 with qty 3", f: BuyNGetM{Buy: 1, Get: 1}, qty: 3, want: 1},
		{name: "1+1 with qty 4", f: BuyNGetM{Buy: 1, Get: 1}, qty: 4, want: 2},
		{name: "2+1 with qty 3", f: BuyNGetM{Buy: 2, Get: 1}, qty: 3, want: 1},
		{name: "2+1 with qty 5", f: BuyNGetM{Buy: 2, Get: 1}, qty: 5, want: 1},
		{name: "2+1 with qty 6", f: BuyNGetM{Buy: 2, Get: 1}, qty: 6, want: 2},
		{name: "zero set size", f: BuyNGetM{}, qty: 5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.FreeUnits(tt.qty))
		})
	}
}
