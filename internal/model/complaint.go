package model

import "time"

// StatusPending is the status every complaint starts in. Later statuses are
// free-form strings chosen by admins.
const StatusPending = "pending"

// Complaint is a submission to one workflow.
type Complaint struct {
	ID         string    `json:"id" bson:"id"`
	Workflow   Workflow  `json:"-" bson:"-"`
	Name       string    `json:"name" bson:"name"`
	RollNumber string    `json:"roll_number" bson:"roll_number"`
	Stream     string    `json:"stream" bson:"stream"`
	Phone      string    `json:"phone" bson:"phone"`
	Email      string    `json:"email" bson:"email"`
	Body       string    `json:"complaint" bson:"complaint"`
	Status     string    `json:"status" bson:"status"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	LabNumber  *string   `json:"lab_number" bson:"lab_number,omitempty"`
	Photo      *string   `json:"photo_base64" bson:"photo_base64,omitempty"`
}

// Submission holds the submitter-supplied fields of a new complaint.
type Submission struct {
	Name       string
	RollNumber string
	Stream     string
	Phone      string
	Email      string
	Body       string
	LabNumber  string
	Photo      string
}
