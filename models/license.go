package models

import "time"

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Price       float64   `json:"price" validate:"gte=0"`
	IsActive    bool      `json:"is_active"`
	Slug        string    `json:"slug" validate:"required"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type License struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"user_id" validate:"required"`
	ProductID  int64       `json:"product_id" validate:"required"`
	LicenseKey string      `json:"license_key" validate:"required"`
	Status     string      `json:"status" validate:"required"`
	CreatedAt  time.Time   `json:"created_at,omitempty"`
	User       *AccountRef `json:"users,omitempty"`
	Product    *ProductRef `json:"products,omitempty"`
}

// Account is a row of the backend users table, distinct from the
// authenticated User returned by the auth endpoints.
type Account struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email" validate:"required,email"`
	FullName  string    `json:"full_name" validate:"required"`
	Role      string    `json:"role" validate:"required"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type AccountRef struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type ProductRef struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
