package catalog

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// skuAttempts bounds the uniqueness retry loop before falling back to a
// disambiguating suffix.
const skuAttempts = 5

const suffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// skuBase builds a candidate SKU from brand and category initials plus five
// random digits, e.g. "APEN-48213" for Apex / Engine.
func skuBase(brandName, categoryName string) string {
	return fmt.Sprintf("%s%s-%05d", initials(brandName), initials(categoryName), rand.IntN(100000))
}

// skuFallback appends a random suffix once the bounded retries are exhausted.
func skuFallback(brandName, categoryName string) string {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		b.WriteByte(suffixAlphabet[rand.IntN(len(suffixAlphabet))])
	}
	return skuBase(brandName, categoryName) + "-" + b.String()
}

func initials(name string) string {
	var out []rune
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' {
			out = append(out, r)
		}
		if len(out) == 2 {
			break
		}
	}
	for len(out) < 2 {
		out = append(out, 'X')
	}
	return string(out)
}
