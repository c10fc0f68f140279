package registrar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceExtractors_Independently(t *testing.T) {
	tests := []struct {
		strategy string
		body     string
		want     float64
	}{
		{"one_year_register", `<Price Duration="1" DurationType="YEAR" Price="1.50" RegularPrice="32.98" />`, 1.50},
		{"price_element_attribute", `<Price Currency="USD" Price="3.20" />`, 3.20},
		{"price_element_text", `<Price> 4.10 </Price>`, 4.10},
		{"price_attribute", `<Product Name="shop" Price="5.75"/>`, 5.75},
	}

	byName := map[string]PriceExtractor{}
	for _, e := range DefaultPriceExtractors {
		byName[e.Name()] = e
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			e, ok := byName[tt.strategy]
			require.True(t, ok)
			got, ok := e.Extract(tt.body)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestExtractPrice_PriorityOrder(t *testing.T) {
	t.Run("one year entry wins over earlier multi-year entry", func(t *testing.T) {
		body := `<Product Name="shop">
			<Price Duration="2" DurationType="YEAR" Price="36.96" />
			<Price Duration="1" DurationType="YEAR" Price="1.50" />
		</Product>`
		m, ok := ExtractPrice(body, DefaultPriceExtractors)
		require.True(t, ok)
		assert.Equal(t, "one_year_register", m.Strategy)
		assert.InDelta(t, 1.50, m.Price, 0.0001)
	})

	t.Run("zero prices are skipped", func(t *testing.T) {
		body := `<Price Duration="1" DurationType="YEAR" Price="0.00" /><Price>2.40</Price>`
		m, ok := ExtractPrice(body, DefaultPriceExtractors)
		require.True(t, ok)
		assert.Equal(t, "price_element_text", m.Strategy)
		assert.InDelta(t, 2.40, m.Price, 0.0001)
	})

	t.Run("no positive price anywhere", func(t *testing.T) {
		_, ok := ExtractPrice(`<Price Duration="1" DurationType="YEAR" Price="0" />`, DefaultPriceExtractors)
		assert.False(t, ok)
	})

	t.Run("regular price alone is not a price attribute", func(t *testing.T) {
		_, ok := ExtractPrice(`<Product RegularPrice="9.99"/>`, DefaultPriceExtractors)
		assert.False(t, ok)
	})
}
