package discount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflicts(t *testing.T) {
	tests := []struct {
		name string
		a    Rule
		b    Rule
		want bool
	}{
		{
			name: "same rule conflicts with itself",
			a:    Rule{ID: "r1", Category: CategoryCoupon},
			b:    Rule{ID: "r1", Category: CategoryCoupon},
			want: true,
		},
		{
			name: "unrelated rules do not conflict",
			a:    Rule{ID: "r1", Category: CategoryCoupon},
			b:    Rule{ID: "r2", Category: CategoryVoucher},
			want: false,
		},
		{
			name: "category exclusion declared on first rule",
			a:    Rule{ID: "r1", Category: CategoryVoucher, ExcludeCategories: []Category{CategoryPaymentInstant}},
			b:    Rule{ID: "r2", Category: CategoryPaymentInstant},
			want: true,
		},
		{
			name: "category exclusion declared on second rule only",
			a:    Rule{ID: "r1", Category: CategoryVoucher},
			b:    Rule{ID: "r2", Category: CategoryPaymentInstant, ExcludeCategories: []Category{CategoryVoucher}},
			want: true,
		},
		{
			name: "id exclusion declared on one side",
			a:    Rule{ID: "r1", Category: CategoryCoupon, ExcludeRuleIDs: []string{"r2"}},
			b:    Rule{ID: "r2", Category: CategoryCoupon},
			want: true,
		},
		{
			name: "exclusion naming a third rule is irrelevant",
			a:    Rule{ID: "r1", Category: CategoryCoupon, ExcludeRuleIDs: []string{"r3"}},
			b:    Rule{ID: "r2", Category: CategoryCoupon},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Conflicts(&tt.a, &tt.b))
			// The relation is symmetric regardless of which side declares it.
			assert.Equal(t, Conflicts(&tt.a, &tt.b), Conflicts(&tt.b, &tt.a))
		})
	}
}

func TestValidCombination(t *testing.T) {
	r1 := Rule{ID: "r1", Category: CategoryCoupon}
	r2 := Rule{ID: "r2", Category: CategoryVoucher}
	r3 := Rule{ID: "r3", Category: CategoryPaymentInstant, ExcludeCategories: []Category{CategoryVoucher}}

	require.True(t, ValidCombination(nil))
	require.True(t, ValidCombination([]Rule{r1}))
	require.True(t, ValidCombination([]Rule{r1, r2}))
	require.False(t, ValidCombination([]Rule{r1, r2, r3}))
	require.True(t, ValidCombination([]Rule{r1, r3}))
}
