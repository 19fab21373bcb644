// Package testutil generates deterministic product corpora for tests and
// benchmarks.
package testutil

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
)

var (
	Brands  = []string{"Adidas", "Nike", "Puma", "Reebok", "Asics"}
	Sizes   = []string{"XS", "S", "M", "L", "XL"}
	Colors  = []string{"black", "white", "red", "blue", "green"}
	Genders = []string{"male", "female", "unisex"}
	Lorem   = strings.Fields(`lorem ipsum dolor sit amet consectetur adipiscing elit sed do
		eiusmod tempor incididunt ut labore et dolore magna aliqua enim ad minim veniam
		quis nostrud exercitation ullamco laboris nisi aliquip ex ea commodo consequat
		duis aute irure in reprehenderit voluptate velit esse cillum fugiat nulla
		pariatur excepteur sint occaecat cupidatat non proident sunt culpa qui officia`)
	Streets = []string{"main street", "harbour road", "elm lane", "station square", "mill way", "park avenue"}
)

// Products returns n products generated from seed. The same arguments always
// yield the same corpus. Some products carry duplicate SKU and price keys so
// deduplication is exercised.
func Products(n int, seed uint64) []document.Product {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	products := make([]document.Product, 0, n)
	for i := 0; i < n; i++ {
		p := document.Product{
			ID:          fmt.Sprintf("p-%04d", i),
			Name:        Sentence(rng, 2+rng.IntN(3)),
			Gender:      Genders[rng.IntN(len(Genders))],
			Brand:       Brands[rng.IntN(len(Brands))],
			Description: Sentence(rng, 8+rng.IntN(24)),
		}
		skus := rng.IntN(5)
		for j := 0; j < skus; j++ {
			sku := document.SKU{
				SKUID: fmt.Sprintf("%s-s%d", p.ID, j),
				Size:  Sizes[rng.IntN(len(Sizes))],
				Color: Colors[rng.IntN(len(Colors))],
			}
			prices := rng.IntN(4)
			for k := 0; k < prices; k++ {
				sku.Prices = append(sku.Prices, document.Price{
					Address: Streets[rng.IntN(len(Streets))],
					Price:   math.Round((50+rng.Float64()*200)*100) / 100,
				})
			}
			p.SKUs = append(p.SKUs, sku)
		}
		products = append(products, p)
	}
	return products
}

// Sentence joins n lorem words drawn from rng.
func Sentence(rng *rand.Rand, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = Lorem[rng.IntN(len(Lorem))]
	}
	return strings.Join(words, " ")
}
