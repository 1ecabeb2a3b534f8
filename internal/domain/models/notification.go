// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is an in-app message addressed to one student.
type Notification struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	StudentID  primitive.ObjectID  `bson:"student_id" json:"student_id"`
	Title      string              `bson:"title" json:"title"`
	Message    string              `bson:"message" json:"message"`
	MatchingID *primitive.ObjectID `bson:"matching_id,omitempty" json:"matching_id,omitempty"`
	RunID      string              `bson:"run_id,omitempty" json:"run_id,omitempty"`
	SentBy     string              `bson:"sent_by,omitempty" json:"sent_by,omitempty"`
	Read       bool                `bson:"read" json:"read"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
}
