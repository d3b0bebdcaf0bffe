package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/MMN3003/nftmarket/src/market/domain"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrCollectionExists  = errors.New("collection already exists")
	ErrUnknownToken      = errors.New("unknown token")
	ErrNotTokenOwner     = errors.New("from is not the token owner")
	ErrNotAuthorized     = errors.New("operator is neither owner nor approved")
)

var _ domain.AssetRegistry = (*MemoryRegistry)(nil)

type collection struct {
	owner     domain.Account
	name      string
	symbol    string
	lastToken uint64
	owners    map[uint64]domain.Account
	approved  map[uint64]domain.Account
	operators map[domain.Account]map[domain.Account]bool
}

// MemoryRegistry simulates ERC-721 collections in process; use for local
// runs and tests. Transfers through the domain.AssetRegistry methods are
// performed as [operator], the marketplace escrow account.
type MemoryRegistry struct {
	operator    domain.Account
	mu          sync.RWMutex
	collections map[string]*collection
	logger      *logger.Logger
}

func NewMemoryRegistry(operator domain.Account, logger *logger.Logger) *MemoryRegistry {
	return &MemoryRegistry{
		operator:    operator,
		collections: make(map[string]*collection),
		logger:      logger,
	}
}

// CreateCollection deploys a collection owned by [owner].
func (r *MemoryRegistry) CreateCollection(contract string, owner domain.Account, name, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.collections[contract]; ok {
		return fmt.Errorf("%w: %s", ErrCollectionExists, contract)
	}
	r.collections[contract] = &collection{
		owner:     owner,
		name:      name,
		symbol:    symbol,
		owners:    make(map[uint64]domain.Account),
		approved:  make(map[uint64]domain.Account),
		operators: make(map[domain.Account]map[domain.Account]bool),
	}
	r.logger.Infof("registry: collection %s (%s) created by %s", contract, symbol, owner)
	return nil
}

// Mint issues the next token id of the collection, starting at 1.
func (r *MemoryRegistry) Mint(contract string, to domain.Account) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.collections[contract]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCollection, contract)
	}
	c.lastToken++
	c.owners[c.lastToken] = to
	return c.lastToken, nil
}

// Approve lets [spender] move one token. Only the owner or one of its
// operators may approve.
func (r *MemoryRegistry) Approve(caller domain.Account, asset domain.AssetRef, spender domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, owner, err := r.token(asset)
	if err != nil {
		return err
	}
	if caller != owner && !c.operators[owner][caller] {
		return fmt.Errorf("%w: %s approving %s", ErrNotAuthorized, caller, asset)
	}
	c.approved[asset.TokenID] = spender
	return nil
}

// SetApprovalForAll lets [operator] move every token of [owner] in the collection.
func (r *MemoryRegistry) SetApprovalForAll(contract string, owner, operator domain.Account, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.collections[contract]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, contract)
	}
	if c.operators[owner] == nil {
		c.operators[owner] = make(map[domain.Account]bool)
	}
	c.operators[owner][operator] = approved
	return nil
}

// BalanceOf counts the tokens [owner] holds in the collection.
func (r *MemoryRegistry) BalanceOf(contract string, owner domain.Account) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[contract]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCollection, contract)
	}
	var n uint64
	for _, o := range c.owners {
		if o == owner {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRegistry) CustodyOf(_ context.Context, asset domain.AssetRef) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, owner, err := r.token(asset)
	return owner, err
}

func (r *MemoryRegistry) IsTransferApproved(_ context.Context, asset domain.AssetRef, spender domain.Account) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, owner, err := r.token(asset)
	if err != nil {
		return false, err
	}
	return c.approved[asset.TokenID] == spender || c.operators[owner][spender], nil
}

func (r *MemoryRegistry) TransferCustody(_ context.Context, asset domain.AssetRef, from, to domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, owner, err := r.token(asset)
	if err != nil {
		return err
	}
	if owner != from {
		return fmt.Errorf("%w: %s holds %s", ErrNotTokenOwner, owner, asset)
	}
	if r.operator != from && c.approved[asset.TokenID] != r.operator && !c.operators[from][r.operator] {
		return fmt.Errorf("%w: %s moving %s", ErrNotAuthorized, r.operator, asset)
	}
	delete(c.approved, asset.TokenID)
	c.owners[asset.TokenID] = to
	r.logger.Debugf("registry: %s moved from %s to %s", asset, from, to)
	return nil
}

func (r *MemoryRegistry) CollectionOwner(_ context.Context, contract string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[contract]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCollection, contract)
	}
	return c.owner, nil
}

// token must be called with r.mu held.
func (r *MemoryRegistry) token(asset domain.AssetRef) (*collection, domain.Account, error) {
	c, ok := r.collections[asset.Contract]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownCollection, asset.Contract)
	}
	owner, ok := c.owners[asset.TokenID]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownToken, asset)
	}
	return c, owner, nil
}
