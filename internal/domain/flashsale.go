package domain

import "time"

// FlashSaleWindow is fetched fresh for every flash-sale add. A zero
// ExpirationDate means the service reported no active window.
type FlashSaleWindow struct {
	ExpirationDate time.Time `json:"expiration_date"`
	IsOpen         bool      `json:"is_open"`
}

type FlashSaleStock struct {
	Found bool `json:"found"`
	Stock int  `json:"stock"`
}
