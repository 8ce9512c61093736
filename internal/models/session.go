package models

import "time"

// Principal пользователь, от имени которого выполняется запрос.
type Principal struct {
	UserID   int64     `json:"user_id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
	HasPaid  bool      `json:"has_paid"`
	IssuedAt time.Time `json:"issued_at"`
}
