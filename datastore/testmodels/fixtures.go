package testmodels

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
)

// Orders returns n orders for customer, created one minute apart, with totals
// 100, 200, ... and alternating open/paid status.
func Orders(customer string, n int) []Order {
	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	out := make([]Order, n)
	for i := range out {
		status := "open"
		if i%2 == 1 {
			status = "paid"
		}
		out[i] = Order{
			ID:         fmt.Sprintf("%s-order-%03d", customer, i),
			CustomerID: customer,
			Status:     status,
			Total:      int64(i+1) * 100,
			Address:    &Address{City: "Lisbon", Country: "PT"},
			CreatedAt:  strfmt.DateTime(base.Add(time.Duration(i) * time.Minute)),
		}
	}
	return out
}
