package models

import (
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CarModelFilters contains all the possible ways to filter and query for cars.
type CarModelFilters struct {
	ModelId    *primitive.ObjectID
	Brand      *string
	Model      *string
	SearchText *string
}

// Page selects a window of results. A nil *Page means "everything".
type Page struct {
	Number int
	Size   int
}

// Skip is the number of results before the page, never negative
func (p Page) Skip() int64 {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	number, size := int64(p.Number), int64(p.Size)
	if number-1 > math.MaxInt64/size {
		return math.MaxInt64
	}
	return (number - 1) * size
}
