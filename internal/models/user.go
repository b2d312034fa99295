package models

import "github.com/google/uuid"

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`
	RUT      *string   `json:"rut,omitempty"` // Chilean national id, formatted 12.345.678-5
}
