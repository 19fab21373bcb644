package document

// Price is one offer for a SKU at a store address.
type Price struct {
	Address string  `json:"address"`
	Price   float64 `json:"price"`
}

// SKU is a size/color variant of a product.
type SKU struct {
	SKUID  string  `json:"skuId"`
	Size   string  `json:"size"`
	Color  string  `json:"color"`
	Prices []Price `json:"prices"`
}

// Product is the root entity of the domain.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	Brand       string `json:"brand"`
	Description string `json:"description"`
	SKUs        []SKU  `json:"sku"`
}

// Dedup returns a copy of p where SKUs are unique by (size, color) and each
// SKU's prices are unique by address. The first occurrence of a key wins.
func (p Product) Dedup() Product {
	out := p
	out.SKUs = make([]SKU, 0, len(p.SKUs))
	type skuKey struct{ size, color string }
	seen := make(map[skuKey]struct{}, len(p.SKUs))
	for _, s := range p.SKUs {
		k := skuKey{s.Size, s.Color}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out.SKUs = append(out.SKUs, s.dedup())
	}
	return out
}

func (s SKU) dedup() SKU {
	out := s
	out.Prices = make([]Price, 0, len(s.Prices))
	seen := make(map[string]struct{}, len(s.Prices))
	for _, pr := range s.Prices {
		if _, dup := seen[pr.Address]; dup {
			continue
		}
		seen[pr.Address] = struct{}{}
		out.Prices = append(out.Prices, pr)
	}
	return out
}

// Size is the number of leaf documents the deduplicated product produces:
// one root plus, per SKU, one SKU leaf and one leaf per price.
func (p Product) Size() int {
	d := p.Dedup()
	n := 1
	for _, s := range d.SKUs {
		n += 1 + len(s.Prices)
	}
	return n
}

// ToBlock flattens the deduplicated product into its block: for each SKU its
// price leaves followed by the SKU leaf, and the product leaf last.
func (p Product) ToBlock() Block {
	d := p.Dedup()
	block := make(Block, 0, d.Size())
	for _, s := range d.SKUs {
		for _, pr := range s.Prices {
			block = append(block, New(
				StringField(ScopeField, ScopePrice, false),
				TextField("address", pr.Address, false),
				NumericField("price", pr.Price, false),
			))
		}
		block = append(block, New(
			StringField(ScopeField, ScopeSKU, false),
			StringField("skuId", s.SKUID, true),
			StringField("color", s.Color, false),
			StringField("size", s.Size, false),
		))
	}
	block = append(block, New(
		StringField("id", d.ID, true),
		StringField(ScopeField, ScopeProduct, false),
		TextField("brand", d.Brand, false),
		TextField("description", d.Description, false),
		StringField("gender", d.Gender, false),
		TextField("name", d.Name, false),
	))
	return block
}
