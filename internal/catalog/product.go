// Package catalog defines the product entity and the rules a product must satisfy
// before it is sent to the catalog API.
package catalog

// Product is a catalog item as returned by the catalog API.
// ID is assigned by the backend and never changes afterwards.
type Product struct {
	ID          int64    `json:"id"`
	ProductName string   `json:"product_name"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Discount    *float64 `json:"discount,omitempty"`
}

// Payload is the body of a create or update request: a product without its id.
type Payload struct {
	ProductName string   `json:"product_name" validate:"required"`
	Category    string   `json:"category"     validate:"required"`
	Price       float64  `json:"price"        validate:"gt=0"`
	Discount    *float64 `json:"discount,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// Payload returns the mutable fields of p.
func (p Product) Payload() Payload {
	return Payload{
		ProductName: p.ProductName,
		Category:    p.Category,
		Price:       p.Price,
		Discount:    cloneFloat(p.Discount),
	}
}

// WithID builds the product the backend is expected to return for this payload.
func (p Payload) WithID(id int64) Product {
	return Product{
		ID:          id,
		ProductName: p.ProductName,
		Category:    p.Category,
		Price:       p.Price,
		Discount:    cloneFloat(p.Discount),
	}
}

// Float is a convenience for building optional discounts.
func Float(v float64) *float64 {
	return &v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
