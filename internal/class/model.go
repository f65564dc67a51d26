package class

import "time"

type Class struct {
	ID             int       `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	StartTime      time.Time `db:"start_time" json:"start_time"`
	AvailableSeats int       `db:"available_seats" json:"available_seats"`
	MaxCapacity    int       `db:"max_capacity" json:"max_capacity"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// IsFull reports whether no seat is left.
func (c Class) IsFull() bool {
	return c.AvailableSeats <= 0
}

type ClassWithAvailability struct {
	Class
	Enrolled int  `json:"enrolled"`
	IsFull   bool `json:"is_full"`
}

func WithAvailability(c Class) ClassWithAvailability {
	return ClassWithAvailability{
		Class:    c,
		Enrolled: c.MaxCapacity - c.AvailableSeats,
		IsFull:   c.IsFull(),
	}
}

type CreateClassRequest struct {
	Name        string `json:"name" binding:"required" validate:"required,max=100"`
	Description string `json:"description" binding:"required" validate:"required"`
	StartTime   string `json:"start_time" binding:"required" validate:"required"`
	MaxCapacity int    `json:"max_capacity" binding:"required" validate:"min=1"`
}

type UpdateClassRequest struct {
	Name           string `json:"name" binding:"required" validate:"required,max=100"`
	Description    string `json:"description" binding:"required" validate:"required"`
	StartTime      string `json:"start_time" binding:"required" validate:"required"`
	AvailableSeats *int   `json:"available_seats" binding:"required" validate:"required,min=0"`
	MaxCapacity    int    `json:"max_capacity" binding:"required" validate:"min=1"`
}

// DeleteResult reports how many enrollment rows went with the class.
type DeleteResult struct {
	Enrollments        int64 `json:"enrollments"`
	VisitorEnrollments int64 `json:"visitor_enrollments"`
}
