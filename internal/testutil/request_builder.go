package testutil

import "github.com/hupe1980/launchmesh/core"

// RequestBuilder helps construct launch requests with fluent chaining.
// Example:
//
//	req := NewRequestBuilder().Product("EcoBottle").Market("hikers").Build()
//
// Unset fields keep valid defaults.
type RequestBuilder struct {
	req core.LaunchRequest
}

// NewRequestBuilder creates a builder pre-filled with a valid request.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{req: core.LaunchRequest{
		ProductName:    "EcoBottle",
		ProductDetails: "A reusable insulated water bottle made from recycled steel.",
		TargetMarket:   "urban professionals",
	}}
}

// Product sets the product name (chainable).
func (b *RequestBuilder) Product(name string) *RequestBuilder { b.req.ProductName = name; return b }

// Details sets the product details (chainable).
func (b *RequestBuilder) Details(d string) *RequestBuilder { b.req.ProductDetails = d; return b }

// Market sets the target market (chainable).
func (b *RequestBuilder) Market(m string) *RequestBuilder { b.req.TargetMarket = m; return b }

// Build returns the request.
func (b *RequestBuilder) Build() core.LaunchRequest { return b.req }
