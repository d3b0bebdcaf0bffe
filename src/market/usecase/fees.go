package usecase

import (
	"fmt"

	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/shopspring/decimal"
)

var basisPointsDenominator = decimal.NewFromInt(int64(domain.MaxBasisPoints))

// CalculateSplit divides [price] into royalty, service fee and seller proceeds.
// Royalty and fee are each floored independently; the seller receives the rest,
// so the three always add up to price exactly.
func CalculateSplit(price decimal.Decimal, serviceFee, royalty domain.BasisPoints) (domain.Split, error) {
	if price.IsNegative() || !price.IsInteger() {
		return domain.Split{}, fmt.Errorf("%w: %s", domain.ErrInvalidPrice, price)
	}
	if err := validateCombinedRates(serviceFee, royalty); err != nil {
		return domain.Split{}, err
	}

	royaltyAmount := portion(price, royalty)
	feeAmount := portion(price, serviceFee)
	return domain.Split{
		Price:          price,
		Royalty:        royaltyAmount,
		Fee:            feeAmount,
		SellerProceeds: price.Sub(royaltyAmount).Sub(feeAmount),
	}, nil
}

// portion is floor(amount * rate / 10000) for a non-negative integer amount.
func portion(amount decimal.Decimal, rate domain.BasisPoints) decimal.Decimal {
	q, _ := amount.Mul(decimal.NewFromInt(int64(rate))).QuoRem(basisPointsDenominator, 0)
	return q
}

func validateCombinedRates(serviceFee, royalty domain.BasisPoints) error {
	if !serviceFee.Valid() || !royalty.Valid() {
		return fmt.Errorf("%w: rates must be within 0..%d bp", domain.ErrInvalidRate, domain.MaxBasisPoints)
	}
	if serviceFee+royalty > domain.MaxBasisPoints {
		return fmt.Errorf("%w: service fee %d bp plus royalty %d bp exceeds %d bp",
			domain.ErrInvalidRate, serviceFee, royalty, domain.MaxBasisPoints)
	}
	return nil
}
