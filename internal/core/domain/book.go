// internal/core/domain/book.go
package domain

import (
	"time"
)

// BookKind represents the kind of catalog entry
type BookKind string

// Book kind constants
const (
	KindTextbook  BookKind = "textbook"
	KindWorkbook  BookKind = "workbook"
	KindReader    BookKind = "reader"
	KindTeacherEd BookKind = "teacher_edition"
	KindOther     BookKind = "other"
)

// Book represents a catalog entry of the institute bookstore.
//
// Stock is a denormalized counter: the ground truth is the sum of
// UnitsAvailable across the book's lots. The sale and intake paths
// recompute it after every mutation; it must never be trusted on its
// own for sufficiency decisions.
type Book struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Level     string     `json:"level,omitempty"`
	Kind      BookKind   `json:"kind"`
	Publisher string     `json:"publisher,omitempty"`
	Edition   string     `json:"edition,omitempty"`
	Stock     int        `json:"stock"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
