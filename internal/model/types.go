// Package model defines domain types exchanged with the collaborators and
// served by the composite API.
package model

// Product is the root entity owned by the product domain.
type Product struct {
	ProductID      int     `json:"productId"`
	Name           string  `json:"name"`
	Weight         float64 `json:"weight"`
	ServiceAddress string  `json:"serviceAddress,omitempty"`
}

// Recommendation belongs to exactly one product.
type Recommendation struct {
	ProductID        int     `json:"productId"`
	RecommendationID int     `json:"recommendationId"`
	Author           string  `json:"author"`
	Rate             float64 `json:"rate"`
	Content          string  `json:"content"`
	ServiceAddress   string  `json:"serviceAddress,omitempty"`
}

// Review belongs to exactly one product.
type Review struct {
	ProductID      int    `json:"productId"`
	ReviewID       int    `json:"reviewId"`
	Author         string `json:"author"`
	Subject        string `json:"subject"`
	Content        string `json:"content"`
	ServiceAddress string `json:"serviceAddress,omitempty"`
}
