package model

import "time"

// Admin is an administrator account of one workflow partition.
type Admin struct {
	ID           string    `json:"id" bson:"id"`
	Workflow     Workflow  `json:"-" bson:"-"`
	Email        string    `json:"email" bson:"email"`
	Name         string    `json:"name" bson:"name"`
	PasswordHash string    `json:"-" bson:"password"`
	CreatedAt    time.Time `json:"-" bson:"created_at"`
}

// AdminSummary is the public view of an admin returned by signup and login.
type AdminSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Summary strips everything but the public fields.
func (a *Admin) Summary() AdminSummary {
	return AdminSummary{ID: a.ID, Email: a.Email, Name: a.Name}
}

// Sanitized returns a copy without the password hash.
func (a Admin) Sanitized() *Admin {
	a.PasswordHash = ""
	return &a
}
