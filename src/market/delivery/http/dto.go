// Package http provides HTTP handlers for marketplace operations
//
// Schemes: http
// Host: localhost:8080
// BasePath: /
// Version: 1.0.0
//
// Consumes:
// - application/json
//
// Produces:
// - application/json
//
// swagger:meta
package http

import (
	"time"

	"github.com/MMN3003/nftmarket/src/market/domain"
)

// AddListingRequestBody lists an asset
// swagger:model AddListingRequestBody
type AddListingRequestBody struct {
	Contract string `json:"contract" binding:"required" example:"0x5FbDB2315678afecb367f032d93F642f64180aa3"`
	TokenID  uint64 `json:"token_id" example:"1"`
	Price    string `json:"price" binding:"required" example:"1000"`
}

// AddListingResponse carries the new listing id
// swagger:model AddListingResponse
type AddListingResponse struct {
	ID uint `json:"id" example:"1"`
}

// ListingDto describes one listing
// swagger:model ListingDto
type ListingDto struct {
	ID        uint      `json:"id" example:"1"`
	Contract  string    `json:"contract" example:"0x5FbDB2315678afecb367f032d93F642f64180aa3"`
	TokenID   uint64    `json:"token_id" example:"1"`
	Price     string    `json:"price" example:"1000"`
	Seller    string    `json:"seller" example:"0x70997970C51812dc3A010C7d01b50e0d17dc79C8"`
	ForSale   bool      `json:"for_sale" example:"true"`
	Buyer     *string   `json:"buyer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListListingsResponse lists active listings
// swagger:model ListListingsResponse
type ListListingsResponse struct {
	Listings []ListingDto `json:"listings"`
}

// BuyRequestBody pays for a listing
// swagger:model BuyRequestBody
type BuyRequestBody struct {
	Payment string `json:"payment" binding:"required" example:"1000"`
}

// SaleReceiptDto describes a completed purchase
// swagger:model SaleReceiptDto
type SaleReceiptDto struct {
	ID               string    `json:"id"`
	ListingID        uint      `json:"listing_id" example:"1"`
	Contract         string    `json:"contract"`
	TokenID          uint64    `json:"token_id" example:"1"`
	Seller           string    `json:"seller"`
	Buyer            string    `json:"buyer"`
	Price            string    `json:"price" example:"1000"`
	Fee              string    `json:"fee" example:"25"`
	FeeRecipient     string    `json:"fee_recipient"`
	Royalty          string    `json:"royalty" example:"100"`
	RoyaltyRecipient *string   `json:"royalty_recipient,omitempty"`
	SellerProceeds   string    `json:"seller_proceeds" example:"875"`
	SoldAt           time.Time `json:"sold_at"`
}

// RateRequestBody sets a rate in basis points
// swagger:model RateRequestBody
type RateRequestBody struct {
	Rate *uint32 `json:"rate" binding:"required" example:"250"`
}

// ServiceFeeResponse carries the current service fee
// swagger:model ServiceFeeResponse
type ServiceFeeResponse struct {
	Rate uint32 `json:"rate" example:"250"`
}

// RoyaltyResponse carries a collection's royalty
// swagger:model RoyaltyResponse
type RoyaltyResponse struct {
	Contract  string     `json:"contract"`
	Rate      uint32     `json:"rate" example:"100"`
	Recipient *string    `json:"recipient,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ErrorResponse reports a failed request; Kind names the domain error
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty" example:"not_for_sale"`
}

// BalanceResponse carries an account balance
// swagger:model BalanceResponse
type BalanceResponse struct {
	Account string `json:"account"`
	Balance string `json:"balance" example:"1000"`
}

func ListingDtoFromDomain(l *domain.Listing) ListingDto {
	dto := ListingDto{
		ID:        l.ID,
		Contract:  l.Asset.Contract,
		TokenID:   l.Asset.TokenID,
		Price:     l.Price.String(),
		Seller:    string(l.Seller),
		ForSale:   l.ForSale,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.Buyer != nil {
		buyer := string(*l.Buyer)
		dto.Buyer = &buyer
	}
	return dto
}

func ListListingsResponseFromDomain(ls []*domain.Listing) ListListingsResponse {
	dtos := make([]ListingDto, len(ls))
	for i, l := range ls {
		dtos[i] = ListingDtoFromDomain(l)
	}
	return ListListingsResponse{Listings: dtos}
}

func SaleReceiptDtoFromDomain(r *domain.SaleReceipt) SaleReceiptDto {
	dto := SaleReceiptDto{
		ID:             r.ID.String(),
		ListingID:      r.ListingID,
		Contract:       r.Asset.Contract,
		TokenID:        r.Asset.TokenID,
		Seller:         string(r.Seller),
		Buyer:          string(r.Buyer),
		Price:          r.Split.Price.String(),
		Fee:            r.Split.Fee.String(),
		FeeRecipient:   string(r.FeeRecipient),
		Royalty:        r.Split.Royalty.String(),
		SellerProceeds: r.Split.SellerProceeds.String(),
		SoldAt:         r.SoldAt,
	}
	if r.RoyaltyRecipient != nil {
		recipient := string(*r.RoyaltyRecipient)
		dto.RoyaltyRecipient = &recipient
	}
	return dto
}

func RoyaltyResponseFromDomain(contract string, c *domain.RoyaltyConfig) RoyaltyResponse {
	if c == nil {
		return RoyaltyResponse{Contract: contract}
	}
	recipient := string(c.Recipient)
	updated := c.UpdatedAt
	return RoyaltyResponse{
		Contract:  contract,
		Rate:      uint32(c.Rate),
		Recipient: &recipient,
		UpdatedAt: &updated,
	}
}
