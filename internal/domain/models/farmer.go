package models

// Farmer is the subset of the farmer register the billing core reads.
type Farmer struct {
	ID     string `bson:"_id" json:"id"`
	Code   string `bson:"code" json:"code"`
	Name   string `bson:"name" json:"name"`
	Phone  string `bson:"phone,omitempty" json:"phone,omitempty"`
	Active bool   `bson:"active" json:"active"`
}
