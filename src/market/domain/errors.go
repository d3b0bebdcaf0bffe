package domain

import "errors"

// Errors
var (
	ErrNotOwner        = errors.New("caller does not hold custody of the asset")
	ErrNotApproved     = errors.New("marketplace is not approved to transfer the asset")
	ErrNotFound        = errors.New("listing not found")
	ErrNotForSale      = errors.New("listing is not for sale")
	ErrWrongPrice      = errors.New("payment does not match listing price")
	ErrNotSeller       = errors.New("caller is not the seller")
	ErrInvalidRate     = errors.New("invalid rate")
	ErrRegistryFailure = errors.New("asset registry failure")
	ErrPaymentFailure  = errors.New("payment failure")
	ErrAlreadyListed   = errors.New("asset is already listed")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrUnauthorized    = errors.New("caller is not authorized")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrNotOwner, "not_owner"},
	{ErrNotApproved, "not_approved"},
	{ErrNotFound, "not_found"},
	{ErrNotForSale, "not_for_sale"},
	{ErrWrongPrice, "wrong_price"},
	{ErrNotSeller, "not_seller"},
	{ErrInvalidRate, "invalid_rate"},
	{ErrRegistryFailure, "registry_failure"},
	{ErrPaymentFailure, "payment_failure"},
	{ErrAlreadyListed, "already_listed"},
	{ErrInvalidPrice, "invalid_price"},
	{ErrUnauthorized, "unauthorized"},
}

// Kind names the error kind wrapped by err, or "internal" for anything else.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
