package domain

// Product is sellable inventory. TotalStock is immutable post-seed;
// AvailableStock is the only field mutated by the hold/order flow.
type Product struct {
	ID             string
	Name           string
	TotalStock     int
	AvailableStock int
	PriceCents     int64
}
