package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Kind string

const (
	KindContact      Kind = "contact"
	KindConsultation Kind = "consultation"
)

type Status string

const (
	StatusNew      Status = "new"
	StatusResolved Status = "resolved"
)

// Enquiry is a contact form or skin consultation request.
type Enquiry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"          json:"id"`
	Kind       Kind               `bson:"kind"                   json:"kind"`
	Name       string             `bson:"name"                   json:"name"`
	Email      string             `bson:"email"                  json:"email"`
	Phone      string             `bson:"phone,omitempty"        json:"phone,omitempty"`
	Subject    string             `bson:"subject,omitempty"      json:"subject,omitempty"`
	Message    string             `bson:"message"                json:"message"`
	SkinType   string             `bson:"skin_type,omitempty"    json:"skin_type,omitempty"`
	Concerns   []string           `bson:"concerns,omitempty"     json:"concerns,omitempty"`
	Status     Status             `bson:"status"                 json:"status"`
	CreatedAt  time.Time          `bson:"created_at"             json:"created_at"`
	ResolvedAt *time.Time         `bson:"resolved_at,omitempty"  json:"resolved_at,omitempty"`
}
