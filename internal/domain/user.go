package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the local record for an identity issued by the external
// identity provider. It is created lazily and never updated afterwards.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Subject   string             `bson:"subject" json:"-"` // Identity provider subject, unique
	Email     string             `bson:"email" json:"email"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Identity is what the auth middleware extracts from a verified token.
type Identity struct {
	Subject string
	Email   string
}
