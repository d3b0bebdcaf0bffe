package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AccountHeader names the calling account. Authentication happens upstream.
const AccountHeader = "X-Account"

// BalanceReader reports account balances held by the payment gateway.
type BalanceReader interface {
	BalanceOf(ctx context.Context, account domain.Account) (decimal.Decimal, error)
}

// Handler binds usecase + logger
type Handler struct {
	service  domain.MarketUseCase
	balances BalanceReader
	logger   *logger.Logger
}

func NewHandler(s domain.MarketUseCase, balances BalanceReader, l *logger.Logger) *Handler {
	return &Handler{service: s, balances: balances, logger: l}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/listings", h.AddItemToMarket)
	r.GET("/listings", h.ListActiveItems)
	r.GET("/listings/:id", h.GetItem)
	r.POST("/listings/:id/buy", h.BuyItem)
	r.POST("/listings/:id/cancel", h.CancelSaleFromMarket)
	r.GET("/service-fee", h.GetServiceFee)
	r.PUT("/service-fee", h.SetServiceFee)
	r.GET("/royalties/:contract", h.GetRoyalties)
	r.PUT("/royalties/:contract", h.SetRoyalties)
	r.GET("/balances/:account", h.GetBalance)
}

// AddItemToMarket godoc
//
//	@Summary		List an asset for sale
//	@Description	Moves the caller's asset into escrow and creates an active listing
//	@Tags			listings
//	@Accept			json
//	@Produce		json
//	@Param			X-Account	header		string					true	"Calling account"
//	@Param			request		body		AddListingRequestBody	true	"Request body"
//	@Success		201			{object}	AddListingResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		502			{object}	ErrorResponse
//	@Router			/listings [post]
func (h *Handler) AddItemToMarket(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req AddListingRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("AddItemToMarket err: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}

	asset := domain.AssetRef{Contract: contractRef(req.Contract), TokenID: req.TokenID}
	id, err := h.service.AddItemToMarket(c.Request.Context(), caller, asset, price)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, AddListingResponse{ID: id})
}

// ListActiveItems godoc
//
//	@Summary		List active listings
//	@Tags			listings
//	@Produce		json
//	@Success		200	{object}	ListListingsResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/listings [get]
func (h *Handler) ListActiveItems(c *gin.Context) {
	listings, err := h.service.ListActiveItems(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListListingsResponseFromDomain(listings))
}

// GetItem godoc
//
//	@Summary		Get a listing
//	@Description	Returns active and retired listings alike
//	@Tags			listings
//	@Produce		json
//	@Param			id	path		int	true	"Listing id"
//	@Success		200	{object}	ListingDto
//	@Failure		404	{object}	ErrorResponse
//	@Router			/listings/{id} [get]
func (h *Handler) GetItem(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}
	listing, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListingDtoFromDomain(listing))
}

// BuyItem godoc
//
//	@Summary		Buy a listing
//	@Description	Payment must equal the listing price exactly
//	@Tags			listings
//	@Accept			json
//	@Produce		json
//	@Param			X-Account	header		string			true	"Calling account"
//	@Param			id			path		int				true	"Listing id"
//	@Param			request		body		BuyRequestBody	true	"Request body"
//	@Success		200			{object}	SaleReceiptDto
//	@Failure		400			{object}	ErrorResponse
//	@Failure		402			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		502			{object}	ErrorResponse
//	@Router			/listings/{id}/buy [post]
func (h *Handler) BuyItem(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.listingID(c)
	if !ok {
		return
	}
	var req BuyRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("BuyItem err: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	payment, err := decimal.NewFromString(req.Payment)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment"})
		return
	}

	receipt, err := h.service.BuyItem(c.Request.Context(), caller, id, payment)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SaleReceiptDtoFromDomain(receipt))
}

// CancelSaleFromMarket godoc
//
//	@Summary		Cancel a listing
//	@Description	Returns the asset to its seller
//	@Tags			listings
//	@Produce		json
//	@Param			X-Account	header	string	true	"Calling account"
//	@Param			id			path	int		true	"Listing id"
//	@Success		204
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/listings/{id}/cancel [post]
func (h *Handler) CancelSaleFromMarket(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.listingID(c)
	if !ok {
		return
	}
	if err := h.service.CancelSaleFromMarket(c.Request.Context(), caller, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetServiceFee godoc
//
//	@Summary	Get the service fee
//	@Tags		settings
//	@Produce	json
//	@Success	200	{object}	ServiceFeeResponse
//	@Router		/service-fee [get]
func (h *Handler) GetServiceFee(c *gin.Context) {
	c.JSON(http.StatusOK, ServiceFeeResponse{Rate: uint32(h.service.GetServiceFee(c.Request.Context()))})
}

// SetServiceFee godoc
//
//	@Summary		Set the service fee
//	@Description	Admin only. Rate is in basis points
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			X-Account	header		string			true	"Calling account"
//	@Param			request		body		RateRequestBody	true	"Request body"
//	@Success		200			{object}	ServiceFeeResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Router			/service-fee [put]
func (h *Handler) SetServiceFee(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req RateRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("SetServiceFee err: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.service.SetServiceFee(c.Request.Context(), caller, domain.BasisPoints(*req.Rate)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ServiceFeeResponse{Rate: *req.Rate})
}

// GetRoyalties godoc
//
//	@Summary		Get a collection's royalty
//	@Description	Rate is 0 for collections never configured
//	@Tags			settings
//	@Produce		json
//	@Param			contract	path		string	true	"Collection contract"
//	@Success		200			{object}	RoyaltyResponse
//	@Router			/royalties/{contract} [get]
func (h *Handler) GetRoyalties(c *gin.Context) {
	contract := contractRef(c.Param("contract"))
	cfg, err := h.service.GetRoyaltyConfig(c.Request.Context(), contract)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RoyaltyResponseFromDomain(contract, cfg))
}

// SetRoyalties godoc
//
//	@Summary		Set a collection's royalty
//	@Description	Collection owner only; the owner becomes the recipient
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			X-Account	header		string			true	"Calling account"
//	@Param			contract	path		string			true	"Collection contract"
//	@Param			request		body		RateRequestBody	true	"Request body"
//	@Success		200			{object}	RoyaltyResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		403			{object}	ErrorResponse
//	@Failure		502			{object}	ErrorResponse
//	@Router			/royalties/{contract} [put]
func (h *Handler) SetRoyalties(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req RateRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("SetRoyalties err: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	contract := contractRef(c.Param("contract"))
	ctx := c.Request.Context()
	if err := h.service.SetRoyalties(ctx, caller, contract, domain.BasisPoints(*req.Rate)); err != nil {
		h.writeError(c, err)
		return
	}
	cfg, err := h.service.GetRoyaltyConfig(ctx, contract)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RoyaltyResponseFromDomain(contract, cfg))
}

// GetBalance godoc
//
//	@Summary	Get an account balance
//	@Tags		balances
//	@Produce	json
//	@Param		account	path		string	true	"Account address"
//	@Success	200		{object}	BalanceResponse
//	@Failure	400		{object}	ErrorResponse
//	@Router		/balances/{account} [get]
func (h *Handler) GetBalance(c *gin.Context) {
	raw := c.Param("account")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account"})
		return
	}
	account := domain.Account(common.HexToAddress(raw).Hex())
	balance, err := h.balances.BalanceOf(c.Request.Context(), account)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Account: string(account), Balance: balance.String()})
}

// ---------- HELPERS ----------

// caller reads and checksums the calling account; it writes the error response itself.
func (h *Handler) caller(c *gin.Context) (domain.Account, bool) {
	raw := c.GetHeader(AccountHeader)
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + AccountHeader + " header"})
		return "", false
	}
	return domain.Account(common.HexToAddress(raw).Hex()), true
}

// contractRef checksums hex contract addresses so one collection has one key.
func contractRef(raw string) string {
	if common.IsHexAddress(raw) {
		return common.HexToAddress(raw).Hex()
	}
	return raw
}

func (h *Handler) listingID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Errorf("%s %s err: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: domain.Kind(err)})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotSeller),
		errors.Is(err, domain.ErrNotApproved),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotForSale),
		errors.Is(err, domain.ErrAlreadyListed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrWrongPrice),
		errors.Is(err, domain.ErrInvalidRate),
		errors.Is(err, domain.ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPaymentFailure):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrRegistryFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
