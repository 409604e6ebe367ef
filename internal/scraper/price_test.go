package scraper

import (
	"testing"

	"price-tracker/internal/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{"thousands dot", "$1.234", models.Float(1234)},
		{"comma separated with decimals", "1,234.00", models.Float(1234)},
		{"plain digits", "129990", models.Float(129990)},
		{"currency prefix and space", "$ 129.990", models.Float(129990)},
		{"multiple thousand groups", "1.234.567", models.Float(1234567)},
		{"two decimal places kept", "12.50", models.Float(12.5)},
		{"surrounding text", "Precio: $89.990 c/u", models.Float(89990)},
		{"no digits", "Agotado", nil},
		{"empty", "", nil},
		{"zero", "$0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.raw)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("ParsePrice(%q) = %v, want nil", tt.raw, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParsePrice(%q) = nil, want %v", tt.raw, *tt.want)
			}
			if *got != *tt.want {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tt.raw, *got, *tt.want)
			}
		})
	}
}

func TestNumeric(t *testing.T) {
	if got := numeric(float64(990)); got == nil || *got != 990 {
		t.Fatalf("numeric(990) = %v, want 990", got)
	}
	if got := numeric(float64(0)); got != nil {
		t.Fatalf("numeric(0) = %v, want nil", *got)
	}
	if got := numeric("12.990"); got == nil || *got != 12990 {
		t.Fatalf("numeric(\"12.990\") = %v, want 12990", got)
	}
	if got := numeric(nil); got != nil {
		t.Fatalf("numeric(nil) = %v, want nil", *got)
	}
	if got := numeric(true); got != nil {
		t.Fatalf("numeric(true) = %v, want nil", *got)
	}
}

func TestNormalize(t *testing.T) {
	t.Run("fills default currency", func(t *testing.T) {
		obs := Normalize(models.PriceObservation{Price: models.Float(1000)})
		if obs.Currency != models.DefaultCurrency {
			t.Fatalf("Currency = %q, want %q", obs.Currency, models.DefaultCurrency)
		}
	})

	t.Run("suppresses original equal to price", func(t *testing.T) {
		obs := Normalize(models.PriceObservation{
			Price:         models.Float(9990),
			OriginalPrice: models.Float(9990),
		})
		if obs.OriginalPrice != nil {
			t.Fatalf("OriginalPrice = %v, want nil", *obs.OriginalPrice)
		}
	})

	t.Run("keeps real discount", func(t *testing.T) {
		obs := Normalize(models.PriceObservation{
			Price:         models.Float(9990),
			OriginalPrice: models.Float(12990),
		})
		if obs.OriginalPrice == nil || *obs.OriginalPrice != 12990 {
			t.Fatalf("OriginalPrice = %v, want 12990", obs.OriginalPrice)
		}
	})

	t.Run("price clears error", func(t *testing.T) {
		obs := Normalize(models.PriceObservation{
			Price: models.Float(9990),
			Error: "stale failure",
		})
		if obs.Error != "" {
			t.Fatalf("Error = %q, want empty", obs.Error)
		}
	})
}
