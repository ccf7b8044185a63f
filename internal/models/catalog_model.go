package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CatalogKey is the lookup form of a brand or model name. Names that differ only
// in case or spacing share one key and therefore one catalog entry.
func CatalogKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// BrandModel is a car manufacturer in the reference catalog.
// Name is the display name it was first created with, NameKey its CatalogKey.
type BrandModel struct {
	Id      primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name    string             `json:"name" bson:"name"`
	NameKey string             `json:"-" bson:"name_key"`
	Logo    string             `json:"logo,omitempty" bson:"logo,omitempty"`
}

// CarLineModel is a model line of a brand (e.g. "Civic" for "Honda").
// Variants of a line are stored as CarModel documents pointing back at it.
type CarLineModel struct {
	Id      primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	BrandId primitive.ObjectID `json:"brand_id" bson:"brand_id"`
	Name    string             `json:"name" bson:"name"`
	NameKey string             `json:"-" bson:"name_key"`
}

// BrandItemModel is one entry of the brand dropdown: a brand and its model lines.
type BrandItemModel struct {
	Id     primitive.ObjectID `json:"_id"`
	Name   string             `json:"name"`
	Logo   string             `json:"logo,omitempty"`
	Models []CarLineModel     `json:"models"`
}
