package main

import (
	"errors"

	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	demoCollection = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3").Hex()
	demoCreator    = domain.Account(common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC").Hex())
	demoSeller     = domain.Account(common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8").Hex())
	demoBuyer      = domain.Account(common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906").Hex())
)

// seedDemo prepares a collection whose tokens the demo seller may list at once.
func seedDemo(d *deps) error {
	if d.memRegistry == nil || d.memBank == nil {
		return errors.New("seeding needs the in-memory registry and bank")
	}
	if err := d.memRegistry.CreateCollection(demoCollection, demoCreator, "Demo", "DEMO"); err != nil {
		return err
	}
	escrow := d.market.Escrow()
	if err := d.memRegistry.SetApprovalForAll(demoCollection, demoSeller, escrow, true); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		if _, err := d.memRegistry.Mint(demoCollection, demoSeller); err != nil {
			return err
		}
	}
	if err := d.memBank.Deposit(demoBuyer, decimal.RequireFromString("1000000000000000000000")); err != nil {
		return err
	}
	d.logg.WithFields(map[string]interface{}{
		"collection": demoCollection,
		"creator":    demoCreator,
		"seller":     demoSeller,
		"buyer":      demoBuyer,
	}).Infof("seeded demo collection with 3 tokens")
	return nil
}
