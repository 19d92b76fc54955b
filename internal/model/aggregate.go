package model

// RecommendationSummary is the projection of a Recommendation inside an aggregate.
type RecommendationSummary struct {
	RecommendationID int     `json:"recommendationId"`
	Author           string  `json:"author"`
	Rate             float64 `json:"rate"`
	Content          string  `json:"content"`
}

// ReviewSummary is the projection of a Review inside an aggregate.
type ReviewSummary struct {
	ReviewID int    `json:"reviewId"`
	Author   string `json:"author"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
}

// ServiceAddresses records which instances served each part of an aggregate.
type ServiceAddresses struct {
	Composite      string `json:"composite"`
	Product        string `json:"product"`
	Review         string `json:"review"`
	Recommendation string `json:"recommendation"`
}

// ProductAggregate is the composed read-side view of a product.
//
// A nil Recommendations or Reviews slice means the lookup failed or was
// skipped; an empty slice means it succeeded with zero results.
type ProductAggregate struct {
	ProductID        int                     `json:"productId"`
	Name             string                  `json:"name"`
	Weight           float64                 `json:"weight"`
	Recommendations  []RecommendationSummary `json:"recommendations"`
	Reviews          []ReviewSummary         `json:"reviews"`
	ServiceAddresses *ServiceAddresses       `json:"serviceAddresses,omitempty"`
}

// ProductEntity returns the product part of the aggregate.
func (a ProductAggregate) ProductEntity() Product {
	return Product{ProductID: a.ProductID, Name: a.Name, Weight: a.Weight}
}

// RecommendationEntities expands the summaries into entities owned by the
// aggregate's product, preserving input order.
func (a ProductAggregate) RecommendationEntities() []Recommendation {
	if a.Recommendations == nil {
		return nil
	}
	out := make([]Recommendation, 0, len(a.Recommendations))
	for _, s := range a.Recommendations {
		out = append(out, Recommendation{
			ProductID:        a.ProductID,
			RecommendationID: s.RecommendationID,
			Author:           s.Author,
			Rate:             s.Rate,
			Content:          s.Content,
		})
	}
	return out
}

// ReviewEntities expands the summaries into entities owned by the
// aggregate's product, preserving input order.
func (a ProductAggregate) ReviewEntities() []Review {
	if a.Reviews == nil {
		return nil
	}
	out := make([]Review, 0, len(a.Reviews))
	for _, s := range a.Reviews {
		out = append(out, Review{
			ProductID: a.ProductID,
			ReviewID:  s.ReviewID,
			Author:    s.Author,
			Subject:   s.Subject,
			Content:   s.Content,
		})
	}
	return out
}

// SummarizeRecommendations projects entities to summaries. A nil input stays nil.
func SummarizeRecommendations(recs []Recommendation) []RecommendationSummary {
	if recs == nil {
		return nil
	}
	out := make([]RecommendationSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, RecommendationSummary{
			RecommendationID: r.RecommendationID,
			Author:           r.Author,
			Rate:             r.Rate,
			Content:          r.Content,
		})
	}
	return out
}

// SummarizeReviews projects entities to summaries. A nil input stays nil.
func SummarizeReviews(revs []Review) []ReviewSummary {
	if revs == nil {
		return nil
	}
	out := make([]ReviewSummary, 0, len(revs))
	for _, r := range revs {
		out = append(out, ReviewSummary{
			ReviewID: r.ReviewID,
			Author:   r.Author,
			Subject:  r.Subject,
			Content:  r.Content,
		})
	}
	return out
}
