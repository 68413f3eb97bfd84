package domain

import (
	"time"

	"github.com/google/uuid"
)

// Photo references an image hosted on the remote media store.
// PublicID is the stable identifier used for later removal.
type Photo struct {
	PublicID string `json:"public_id" db:"photo_public_id"`
	URL      string `json:"url" db:"photo_url"`
}

// Product represents a product in the catalog. Name and Category are stored
// lowercased; Name is unique across the catalog.
type Product struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Price     float64   `json:"price" db:"price"`
	Stock     int       `json:"stock" db:"stock"`
	Category  string    `json:"category" db:"category"`
	Photo     Photo     `json:"photo"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
