package models

import (
	"strings"
	"time"
)

// Student is the profile document of one student.
type Student struct {
	ID         string       `bson:"_id,omitempty" json:"id"`
	Name       string       `bson:"name" json:"name"`
	Email      string       `bson:"email" json:"email"`
	University string       `bson:"university,omitempty" json:"university,omitempty"`
	Program    string       `bson:"program,omitempty" json:"program,omitempty"`
	Year       *int         `bson:"year,omitempty" json:"year,omitempty"`
	Facts      StudentFacts `bson:"facts" json:"facts"`
	CreatedAt  time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `bson:"updated_at" json:"updated_at"`
}

// StudentUpdate carries the profile fields that may change after signup.
// Nil fields are left untouched.
type StudentUpdate struct {
	Name       *string `json:"name,omitempty"`
	University *string `json:"university,omitempty"`
	Program    *string `json:"program,omitempty"`
	Year       *int    `json:"year,omitempty"`
}

// NormalizeEmail is the canonical form used for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
