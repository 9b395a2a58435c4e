package testmodels

import "github.com/go-openapi/strfmt"

type Order struct {

	// Unique identifier for the order.
	// Required: true
	ID string `json:"id"`

	// Customer the order belongs to; used as the partition key.
	// Required: true
	CustomerID string `json:"customerId"`

	// Order status.
	// Enum: [open paid shipped cancelled]
	Status string `json:"status,omitempty"`

	// Order total in minor units.
	Total int64 `json:"total"`

	// Shipping address.
	Address *Address `json:"address,omitempty"`

	// Timestamp when the order was created.
	// Format: date-time
	CreatedAt strfmt.DateTime `json:"createdAt"`
}

type Address struct {

	// city
	City string `json:"city,omitempty"`

	// country
	Country string `json:"country,omitempty"`
}
