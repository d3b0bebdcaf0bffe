package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MMN3003/nftmarket/src/config"
	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/MMN3003/nftmarket/src/market/adapter/payment"
	"github.com/MMN3003/nftmarket/src/market/adapter/registry"
	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/MMN3003/nftmarket/src/market/repository"
	"github.com/MMN3003/nftmarket/src/market/usecase"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	adminAddr   = common.HexToAddress("0x00000000000000000000000000000000000000ad").Hex()
	escrowAddr  = common.HexToAddress("0x000000000000000000000000000000000000e5c0").Hex()
	sellerAddr  = common.HexToAddress("0x0000000000000000000000000000000000000a11").Hex()
	buyerAddr   = common.HexToAddress("0x0000000000000000000000000000000000000b0b").Hex()
	creatorAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0").Hex()
)

type testEnv struct {
	router   *gin.Engine
	registry *registry.MemoryRegistry
	bank     *payment.MemoryBank
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logg := logger.NewNop()
	cfg := &config.Config{
		Market:    config.MarketConfig{AdminAccount: adminAddr, EscrowAccount: escrowAddr, DefaultServiceFee: 250},
		Reconcile: config.ReconcileConfig{Concurrency: 2},
	}
	reg := registry.NewMemoryRegistry(domain.Account(escrowAddr), logg)
	bank := payment.NewMemoryBank(logg)
	svc, err := usecase.NewService(context.Background(),
		repository.NewMemoryListingRepo(), repository.NewMemorySettingsRepo(),
		reg, bank, logg, cfg, nil)
	require.NoError(t, err)

	r := gin.New()
	NewHandler(svc, bank, logg).RegisterRoutes(r)
	return &testEnv{router: r, registry: reg, bank: bank}
}

func (e *testEnv) do(t *testing.T, method, path, account string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if account != "" {
		req.Header.Set(AccountHeader, account)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// mintListable mints a token to the seller and approves escrow for it.
func (e *testEnv) mintListable(t *testing.T, contract string) uint64 {
	t.Helper()
	id, err := e.registry.Mint(contract, domain.Account(sellerAddr))
	require.NoError(t, err)
	require.NoError(t, e.registry.Approve(domain.Account(sellerAddr),
		domain.AssetRef{Contract: contract, TokenID: id}, domain.Account(escrowAddr)))
	return id
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestListAndBuyOverHTTP(t *testing.T) {
	require := require.New(t)
	e := newTestEnv(t)
	require.NoError(e.registry.CreateCollection("nft", domain.Account(creatorAddr), "MyToken", "TKN"))
	token := e.mintListable(t, "nft")
	require.NoError(e.bank.Deposit(domain.Account(buyerAddr), decimal.NewFromInt(1000)))

	w := e.do(t, http.MethodPost, "/listings", "", AddListingRequestBody{Contract: "nft", TokenID: token, Price: "1000"})
	require.Equal(http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/listings", sellerAddr, AddListingRequestBody{Contract: "nft", TokenID: token, Price: "1000"})
	require.Equal(http.StatusCreated, w.Code, w.Body.String())
	require.Equal(uint(1), decode[AddListingResponse](t, w).ID)

	w = e.do(t, http.MethodPost, "/listings", sellerAddr, AddListingRequestBody{Contract: "nft", TokenID: token, Price: "1000"})
	require.Equal(http.StatusConflict, w.Code)

	w = e.do(t, http.MethodGet, "/listings", "", nil)
	require.Equal(http.StatusOK, w.Code)
	require.Len(decode[ListListingsResponse](t, w).Listings, 1)

	w = e.do(t, http.MethodPost, "/listings/1/buy", buyerAddr, BuyRequestBody{Payment: "999"})
	require.Equal(http.StatusBadRequest, w.Code)
	require.Contains(w.Body.String(), "wrong_price")

	w = e.do(t, http.MethodPost, "/listings/1/buy", buyerAddr, BuyRequestBody{Payment: "1000"})
	require.Equal(http.StatusOK, w.Code, w.Body.String())
	receipt := decode[SaleReceiptDto](t, w)
	require.Equal("25", receipt.Fee)
	require.Equal("0", receipt.Royalty)
	require.Equal("975", receipt.SellerProceeds)
	require.Equal(adminAddr, receipt.FeeRecipient)
	require.Nil(receipt.RoyaltyRecipient)

	w = e.do(t, http.MethodPost, "/listings/1/buy", buyerAddr, BuyRequestBody{Payment: "1000"})
	require.Equal(http.StatusConflict, w.Code)

	w = e.do(t, http.MethodGet, "/listings/1", "", nil)
	require.Equal(http.StatusOK, w.Code)
	listing := decode[ListingDto](t, w)
	require.False(listing.ForSale)
	require.Equal(buyerAddr, *listing.Buyer)

	w = e.do(t, http.MethodGet, "/balances/"+sellerAddr, "", nil)
	require.Equal(http.StatusOK, w.Code)
	require.Equal("975", decode[BalanceResponse](t, w).Balance)
}

func TestContractAddressCaseIsIgnored(t *testing.T) {
	require := require.New(t)
	e := newTestEnv(t)
	contract := common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3").Hex()
	lower := strings.ToLower(contract)
	require.NotEqual(contract, lower)
	require.NoError(e.registry.CreateCollection(contract, domain.Account(creatorAddr), "MyToken", "TKN"))
	token := e.mintListable(t, contract)
	require.NoError(e.bank.Deposit(domain.Account(buyerAddr), decimal.NewFromInt(1000)))

	rate := uint32(1000)
	w := e.do(t, http.MethodPut, "/royalties/"+lower, creatorAddr, RateRequestBody{Rate: &rate})
	require.Equal(http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/royalties/"+contract, "", nil)
	require.Equal(http.StatusOK, w.Code)
	require.Equal(uint32(1000), decode[RoyaltyResponse](t, w).Rate)

	w = e.do(t, http.MethodPost, "/listings", sellerAddr, AddListingRequestBody{Contract: contract, TokenID: token, Price: "1000"})
	require.Equal(http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/listings/1/buy", buyerAddr, BuyRequestBody{Payment: "1000"})
	require.Equal(http.StatusOK, w.Code, w.Body.String())
	receipt := decode[SaleReceiptDto](t, w)
	require.Equal("100", receipt.Royalty)
	require.Equal(contract, receipt.Contract)
}

func TestBuyWithoutFundsIsPaymentRequired(t *testing.T) {
	require := require.New(t)
	e := newTestEnv(t)
	require.NoError(e.registry.CreateCollection("nft", domain.Account(creatorAddr), "MyToken", "TKN"))
	token := e.mintListable(t, "nft")

	w := e.do(t, http.MethodPost, "/listings", sellerAddr, AddListingRequestBody{Contract: "nft", TokenID: token, Price: "1000"})
	require.Equal(http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/listings/1/buy", buyerAddr, BuyRequestBody{Payment: "1000"})
	require.Equal(http.StatusPaymentRequired, w.Code)

	w = e.do(t, http.MethodGet, "/listings/1", "", nil)
	require.True(decode[ListingDto](t, w).ForSale)
}

func TestCancelOverHTTP(t *testing.T) {
	require := require.New(t)
	e := newTestEnv(t)
	require.NoError(e.registry.CreateCollection("nft", domain.Account(creatorAddr), "MyToken", "TKN"))
	token := e.mintListable(t, "nft")

	w := e.do(t, http.MethodPost, "/listings", sellerAddr, AddListingRequestBody{Contract: "nft", TokenID: token, Price: "10"})
	require.Equal(http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/listings/1/cancel", buyerAddr, nil)
	require.Equal(http.StatusForbidden, w.Code)
	w = e.do(t, http.MethodPost, "/listings/1/cancel", sellerAddr, nil)
	require.Equal(http.StatusNoContent, w.Code)
	w = e.do(t, http.MethodPost, "/listings/1/cancel", sellerAddr, nil)
	require.Equal(http.StatusConflict, w.Code)

	custodian, err := e.registry.CustodyOf(context.Background(), domain.AssetRef{Contract: "nft", TokenID: token})
	require.NoError(err)
	require.Equal(domain.Account(sellerAddr), custodian)
}

func TestRatesOverHTTP(t *testing.T) {
	require := require.New(t)
	e := newTestEnv(t)
	require.NoError(e.registry.CreateCollection("nft", domain.Account(creatorAddr), "MyToken", "TKN"))
	rate := func(v uint32) RateRequestBody { return RateRequestBody{Rate: &v} }

	w := e.do(t, http.MethodGet, "/service-fee", "", nil)
	require.Equal(uint32(250), decode[ServiceFeeResponse](t, w).Rate)

	w = e.do(t, http.MethodPut, "/service-fee", sellerAddr, rate(100))
	require.Equal(http.StatusForbidden, w.Code)
	w = e.do(t, http.MethodPut, "/service-fee", adminAddr, rate(10001))
	require.Equal(http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodPut, "/service-fee", adminAddr, RateRequestBody{})
	require.Equal(http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodPut, "/service-fee", adminAddr, rate(0))
	require.Equal(http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/royalties/nft", "", nil)
	require.Equal(http.StatusOK, w.Code)
	royalty := decode[RoyaltyResponse](t, w)
	require.Zero(royalty.Rate)
	require.Nil(royalty.Recipient)

	w = e.do(t, http.MethodPut, "/royalties/nft", sellerAddr, rate(1000))
	require.Equal(http.StatusForbidden, w.Code)
	w = e.do(t, http.MethodPut, "/royalties/nft", creatorAddr, rate(1000))
	require.Equal(http.StatusOK, w.Code, w.Body.String())
	royalty = decode[RoyaltyResponse](t, w)
	require.Equal(uint32(1000), royalty.Rate)
	require.Equal(creatorAddr, *royalty.Recipient)

	w = e.do(t, http.MethodPut, "/royalties/missing", creatorAddr, rate(1000))
	require.Equal(http.StatusBadGateway, w.Code)
}

func TestBadPathParams(t *testing.T) {
	require := require.New(t)
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/listings/abc", "", nil)
	require.Equal(http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodGet, "/listings/99", "", nil)
	require.Equal(http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodGet, "/balances/nobody", "", nil)
	require.Equal(http.StatusBadRequest, w.Code)
}
