package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Subset of ERC-721 plus Ownable.owner(), which the marketplace treats as the
// collection's royalty authority.
const erc721ABI = `[
	{
		"constant": true,
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "ownerOf",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "getApproved",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "operator", "type": "address"}
		],
		"name": "isApprovedForAll",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "owner",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "tokenId", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [],
		"type": "function"
	}
]`

// Errors
var (
	ErrMissingConfig     = errors.New("missing required ethereum configuration")
	ErrConnectNetwork    = errors.New("failed to connect to network")
	ErrInvalidPrivateKey = errors.New("failed to parse private key")
	ErrParseABI          = errors.New("failed to parse ABI")
	ErrCreateTransactor  = errors.New("failed to create transactor")
	ErrContractCall      = errors.New("failed to call contract function")
	ErrSendTransaction   = errors.New("failed to send transaction")
	ErrMineTransaction   = errors.New("failed to mine transaction")
)

// Config holds Ethereum client config
type Config struct {
	RPCURL     string
	PrivateKey string
	ChainID    *big.Int
}

// ERC721Client reads and moves ERC-721 tokens. Its wallet is the marketplace
// escrow: it signs every transfer and must be approved by sellers.
type ERC721Client struct {
	client     *ethclient.Client
	wallet     common.Address
	privateKey *ecdsa.PrivateKey
	abi        abi.ABI
	config     Config

	mu        sync.Mutex
	contracts map[common.Address]*bind.BoundContract
}

// ParseERC721ABI returns the parsed token ABI the client binds contracts with.
func ParseERC721ABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%w: ERC721 ABI: %v", ErrParseABI, err)
	}
	return parsed, nil
}

// NewERC721Client initializes the client
func NewERC721Client(ctx context.Context, config Config) (*ERC721Client, error) {
	if config.RPCURL == "" || config.PrivateKey == "" || config.ChainID == nil {
		return nil, fmt.Errorf("%w: RPC URL, private key and chain id", ErrMissingConfig)
	}
	parsed, err := ParseERC721ABI()
	if err != nil {
		return nil, err
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(config.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	client, err := ethclient.DialContext(ctx, config.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectNetwork, err)
	}

	return &ERC721Client{
		client:     client,
		wallet:     crypto.PubkeyToAddress(privateKey.PublicKey),
		privateKey: privateKey,
		abi:        parsed,
		config:     config,
		contracts:  make(map[common.Address]*bind.BoundContract),
	}, nil
}

func (ec *ERC721Client) Close() { ec.client.Close() }

func (ec *ERC721Client) WalletAddress() common.Address { return ec.wallet }

func (ec *ERC721Client) OwnerOf(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error) {
	out, err := ec.call(ctx, contract, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (ec *ERC721Client) GetApproved(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error) {
	out, err := ec.call(ctx, contract, "getApproved", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (ec *ERC721Client) IsApprovedForAll(ctx context.Context, contract, owner, operator common.Address) (bool, error) {
	out, err := ec.call(ctx, contract, "isApprovedForAll", owner, operator)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// Owner reads Ownable.owner() of the collection contract.
func (ec *ERC721Client) Owner(ctx context.Context, contract common.Address) (common.Address, error) {
	out, err := ec.call(ctx, contract, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// TransferFrom moves a token as the client wallet and waits for the receipt.
func (ec *ERC721Client) TransferFrom(ctx context.Context, contract, from, to common.Address, tokenID *big.Int) (*types.Receipt, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(ec.privateKey, ec.config.ChainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateTransactor, err)
	}
	auth.Context = ctx

	bound := ec.bind(contract)
	// Call (dry run)
	var dry []interface{}
	if err := bound.Call(&bind.CallOpts{Context: ctx, From: ec.wallet}, &dry, "transferFrom", from, to, tokenID); err != nil {
		return nil, fmt.Errorf("%w: transferFrom: %v", ErrContractCall, err)
	}

	tx, err := bound.Transact(auth, "transferFrom", from, to, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSendTransaction, err)
	}
	receipt, err := bind.WaitMined(ctx, ec.client, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMineTransaction, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: transfer %s reverted", ErrMineTransaction, tx.Hash().Hex())
	}
	return receipt, nil
}

func (ec *ERC721Client) call(ctx context.Context, contract common.Address, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := ec.bind(contract).Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrContractCall, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s returned nothing", ErrContractCall, method)
	}
	return out, nil
}

func (ec *ERC721Client) bind(contract common.Address) *bind.BoundContract {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	c, ok := ec.contracts[contract]
	if !ok {
		c = bind.NewBoundContract(contract, ec.abi, ec.client, ec.client, ec.client)
		ec.contracts[contract] = c
	}
	return c
}
