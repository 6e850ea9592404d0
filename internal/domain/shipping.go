package domain

import "github.com/shopspring/decimal"

type Address struct {
	DistrictID int    `json:"district_id"`
	WardCode   string `json:"ward_code"`
}

type ShippingQuote struct {
	OriginDistrictID      int             `json:"origin_district_id"`
	OriginWardCode        string          `json:"origin_ward_code"`
	DestinationDistrictID int             `json:"destination_district_id"`
	DestinationWardCode   string          `json:"destination_ward_code"`
	TotalWeight           int             `json:"total_weight"`
	TotalWidth            int             `json:"total_width"`
	TotalHeight           int             `json:"total_height"`
	TotalLength           int             `json:"total_length"`
	ServiceTypeID         int             `json:"service_type_id"`
	FeeAmount             decimal.Decimal `json:"fee_amount"`
}
