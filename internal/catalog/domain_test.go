package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDiscount(t *testing.T) {
	p := Product{Price: 100}

	p.DiscountPercentage = 25
	p.ApplyDiscount()
	if assert.NotNil(t, p.SalePrice) {
		assert.Equal(t, 75.0, *p.SalePrice)
	}
	assert.True(t, p.IsOnSale())
	assert.Equal(t, 75.0, p.CurrentPrice())

	p.DiscountPercentage = 0
	p.ApplyDiscount()
	assert.Nil(t, p.SalePrice)
	assert.False(t, p.IsOnSale())
	assert.Equal(t, 100.0, p.CurrentPrice())
}

func TestApplyDiscountRounds(t *testing.T) {
	p := Product{Price: 99.99, DiscountPercentage: 33}
	p.ApplyDiscount()
	if assert.NotNil(t, p.SalePrice) {
		assert.Equal(t, 66.99, *p.SalePrice)
	}
}

func TestCurrentPriceNeverExceedsPrice(t *testing.T) {
	for _, discount := range []int{0, 1, 50, 99, 100} {
		p := Product{Price: 250, DiscountPercentage: discount}
		p.ApplyDiscount()
		assert.LessOrEqual(t, p.CurrentPrice(), p.Price, "discount %d", discount)
		if p.IsOnSale() {
			assert.Less(t, *p.SalePrice, p.Price, "discount %d", discount)
		}
	}
}

func TestStockStatus(t *testing.T) {
	cases := []struct {
		qty, min int
		want     StockStatus
	}{
		{0, 5, StockStatusOut},
		{1, 5, StockStatusLow},
		{5, 5, StockStatusLow},
		{6, 5, StockStatusIn},
		{100, 5, StockStatusIn},
	}
	for _, tc := range cases {
		p := Product{StockQuantity: tc.qty, MinStockLevel: tc.min}
		assert.Equal(t, tc.want, p.StockStatus(), "qty=%d min=%d", tc.qty, tc.min)
	}
}
