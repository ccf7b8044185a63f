package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SpecificationModel holds the comparable specification fields of a car variant.
// Zero values mean the field is unknown for that variant.
type SpecificationModel struct {
	Engine       string  `json:"engine,omitempty" bson:"engine,omitempty"`
	EngineCC     int     `json:"engine_cc,omitempty" bson:"engine_cc,omitempty" validate:"gte=0"`
	FuelType     string  `json:"fuel_type,omitempty" bson:"fuel_type,omitempty"`
	Transmission string  `json:"transmission,omitempty" bson:"transmission,omitempty"`
	Drive        string  `json:"drive,omitempty" bson:"drive,omitempty"`
	BodyType     string  `json:"body_type,omitempty" bson:"body_type,omitempty"`
	PowerHP      float64 `json:"power_hp,omitempty" bson:"power_hp,omitempty" validate:"gte=0"`
	TorqueNM     float64 `json:"torque_nm,omitempty" bson:"torque_nm,omitempty" validate:"gte=0"`
	Mileage      float64 `json:"mileage,omitempty" bson:"mileage,omitempty" validate:"gte=0"`
	Seating      int     `json:"seating,omitempty" bson:"seating,omitempty" validate:"gte=0"`
}

// CarModel is a single purchasable variant of a brand's model, stored verbatim in the cars collection.
// Image is the object key owned by the image upload endpoint; create and update ignore it.
type CarModel struct {
	Id            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Brand         string             `json:"brand" bson:"brand" validate:"required"`
	Model         string             `json:"model" bson:"model" validate:"required"`
	ModelId       primitive.ObjectID `json:"model_id" bson:"model_id,omitempty"`
	Variant       string             `json:"variant" bson:"variant" validate:"required"`
	Price         float64            `json:"price,omitempty" bson:"price,omitempty" validate:"gte=0"`
	Year          int                `json:"year,omitempty" bson:"year,omitempty" validate:"gte=0"`
	Image         string             `json:"image,omitempty" bson:"image,omitempty"`
	Specification SpecificationModel `json:"specification" bson:"specification"`
	Extra         map[string]string  `json:"extra,omitempty" bson:"extra,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}
