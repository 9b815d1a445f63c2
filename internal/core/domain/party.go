// internal/core/domain/party.go
package domain

import "time"

// Customer is a bookstore customer. Full customer CRUD lives outside the
// sale workflow; the sale path only needs lookups.
type Customer struct {
	ID         int64     `json:"id"`
	DocumentID string    `json:"document_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	BirthDate  time.Time `json:"birth_date,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserRole represents staff roles.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleStaff UserRole = "staff"
)

// User is a staff member recorded on each sale.
type User struct {
	ID         int64     `json:"id"`
	DocumentID string    `json:"document_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       UserRole  `json:"role"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
