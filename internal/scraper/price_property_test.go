package scraper

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: any integer peso amount rendered with dot thousands separators
// parses back to exactly the same amount, regardless of currency prefix.
func TestProperty_ParsePriceThousandsRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("dot-separated amounts round-trip", prop.ForAll(
		func(amount int, prefix string) bool {
			raw := prefix + dotThousands(amount)
			got := ParsePrice(raw)
			if got == nil {
				t.Logf("ParsePrice(%q) = nil, want %d", raw, amount)
				return false
			}
			if *got != float64(amount) {
				t.Logf("ParsePrice(%q) = %v, want %d", raw, *got, amount)
				return false
			}
			return true
		},
		gen.IntRange(1, 99999999),
		gen.OneConstOf("", "$", "$ ", "CLP "),
	))

	properties.Property("strings without digits never yield a price", prop.ForAll(
		func(raw string) bool {
			return ParsePrice(raw) == nil
		},
		gen.OneConstOf("", "Agotado", "No disponible", "$", "precio normal", "..."),
	))

	properties.TestingRun(t)
}

// dotThousands renders n with a dot every three digits, the way Chilean
// retail sites display peso amounts.
func dotThousands(n int) string {
	digits := strconv.Itoa(n)

	var out []byte
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, digits[i])
	}
	return string(out)
}
