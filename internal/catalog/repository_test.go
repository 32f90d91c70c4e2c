package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductSortOrder(t *testing.T) {
	cases := []struct {
		sortBy, sortDir string
		want            string
	}{
		{"name", "asc", "name ASC"},
		{"name", "desc", "name DESC"},
		{"price", "asc", "COALESCE(sale_price, price) ASC"},
		{"created_at", "desc", "created_at DESC"},
		{"rating", "desc", "(SELECT pr.average_rating FROM product_ratings pr WHERE pr.product_id = products.id) DESC NULLS LAST, products.id ASC"},
		{"rating", "", "(SELECT pr.average_rating FROM product_ratings pr WHERE pr.product_id = products.id) ASC NULLS LAST, products.id ASC"},
		{"", "", "created_at DESC"},
		{"sku; DROP TABLE products", "desc", "created_at DESC"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, productSortOrder(tc.sortBy, tc.sortDir), "sort=%q dir=%q", tc.sortBy, tc.sortDir)
	}
}
