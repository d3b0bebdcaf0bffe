package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrInvalidAddress = errors.New("invalid address")

var _ domain.AssetRegistry = (*EthereumRegistry)(nil)

// ERC721 is the token contract surface the registry needs; implemented by
// ethereum.ERC721Client.
type ERC721 interface {
	WalletAddress() common.Address
	OwnerOf(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error)
	GetApproved(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error)
	IsApprovedForAll(ctx context.Context, contract, owner, operator common.Address) (bool, error)
	Owner(ctx context.Context, contract common.Address) (common.Address, error)
	TransferFrom(ctx context.Context, contract, from, to common.Address, tokenID *big.Int) (*types.Receipt, error)
}

// EthereumRegistry keeps custody on chain. The client wallet is the escrow
// account; accounts and contracts are hex addresses.
type EthereumRegistry struct {
	client ERC721
	logger *logger.Logger
}

func NewEthereumRegistry(client ERC721, logger *logger.Logger) *EthereumRegistry {
	return &EthereumRegistry{client: client, logger: logger}
}

// Escrow is the account the registry transfers as.
func (r *EthereumRegistry) Escrow() domain.Account {
	return domain.Account(r.client.WalletAddress().Hex())
}

func (r *EthereumRegistry) CustodyOf(ctx context.Context, asset domain.AssetRef) (domain.Account, error) {
	contract, err := parseAddress(asset.Contract)
	if err != nil {
		return "", err
	}
	owner, err := r.client.OwnerOf(ctx, contract, tokenID(asset))
	if err != nil {
		return "", err
	}
	return domain.Account(owner.Hex()), nil
}

func (r *EthereumRegistry) IsTransferApproved(ctx context.Context, asset domain.AssetRef, spender domain.Account) (bool, error) {
	contract, err := parseAddress(asset.Contract)
	if err != nil {
		return false, err
	}
	who, err := parseAddress(string(spender))
	if err != nil {
		return false, err
	}
	approved, err := r.client.GetApproved(ctx, contract, tokenID(asset))
	if err != nil {
		return false, err
	}
	if approved == who {
		return true, nil
	}
	owner, err := r.client.OwnerOf(ctx, contract, tokenID(asset))
	if err != nil {
		return false, err
	}
	return r.client.IsApprovedForAll(ctx, contract, owner, who)
}

func (r *EthereumRegistry) TransferCustody(ctx context.Context, asset domain.AssetRef, from, to domain.Account) error {
	contract, err := parseAddress(asset.Contract)
	if err != nil {
		return err
	}
	src, err := parseAddress(string(from))
	if err != nil {
		return err
	}
	dst, err := parseAddress(string(to))
	if err != nil {
		return err
	}
	owner, err := r.client.OwnerOf(ctx, contract, tokenID(asset))
	if err != nil {
		return err
	}
	if owner != src {
		return fmt.Errorf("%w: %s holds %s", ErrNotTokenOwner, owner.Hex(), asset)
	}
	receipt, err := r.client.TransferFrom(ctx, contract, src, dst, tokenID(asset))
	if err != nil {
		return err
	}
	r.logger.WithFields(map[string]interface{}{
		"asset": asset.String(),
		"from":  src.Hex(),
		"to":    dst.Hex(),
		"tx":    receipt.TxHash.Hex(),
		"block": receipt.BlockNumber.String(),
	}).Infof("registry: transferred %s", asset)
	return nil
}

func (r *EthereumRegistry) CollectionOwner(ctx context.Context, contract string) (domain.Account, error) {
	addr, err := parseAddress(contract)
	if err != nil {
		return "", err
	}
	owner, err := r.client.Owner(ctx, addr)
	if err != nil {
		return "", err
	}
	return domain.Account(owner.Hex()), nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

func tokenID(asset domain.AssetRef) *big.Int {
	return new(big.Int).SetUint64(asset.TokenID)
}
