package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MMN3003/nftmarket/src/logger"
	"github.com/MMN3003/nftmarket/src/market/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	_ domain.PaymentGateway = (*PostgresBank)(nil)
	_ domain.PaymentTx      = (*postgresTx)(nil)
)

// ---------- BALANCES ----------

type Balance struct {
	Account   string          `gorm:"primarykey"`
	Amount    decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0"`
	UpdatedAt time.Time
}

// ---------- BANK ----------

// PostgresBank keeps balances in a table. A payment transaction is a database
// transaction holding the payer's row lock until Commit or Rollback.
type PostgresBank struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresBank(db *gorm.DB, log *logger.Logger) (*PostgresBank, error) {
	if err := db.AutoMigrate(&Balance{}); err != nil {
		return nil, err
	}
	return &PostgresBank{db: db, log: log}, nil
}

func (b *PostgresBank) Deposit(ctx context.Context, account domain.Account, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	return credit(b.db.WithContext(ctx), account, amount)
}

func (b *PostgresBank) BalanceOf(ctx context.Context, account domain.Account) (decimal.Decimal, error) {
	var bal Balance
	if err := b.db.WithContext(ctx).First(&bal, "account = ?", string(account)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return bal.Amount, nil
}

func (b *PostgresBank) Begin(ctx context.Context, payer domain.Account, amount decimal.Decimal) (domain.PaymentTx, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	tx := b.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var bal Balance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&bal, "account = ?", string(payer)).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, err
	}
	if bal.Amount.LessThan(amount) {
		tx.Rollback()
		return nil, fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, payer, bal.Amount, amount)
	}
	if err := tx.Model(&Balance{}).
		Where("account = ?", string(payer)).
		Update("amount", gorm.Expr("amount - ?", amount)).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	return &postgresTx{tx: tx, log: b.log, payer: payer, remaining: amount}, nil
}

type postgresTx struct {
	tx        *gorm.DB
	log       *logger.Logger
	payer     domain.Account
	remaining decimal.Decimal
	closed    bool
}

func (p *postgresTx) Pay(ctx context.Context, recipient domain.Account, amount decimal.Decimal) error {
	if p.closed {
		return ErrTxClosed
	}
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(p.remaining) {
		return fmt.Errorf("%w: %s of %s left", ErrOverdrawnHold, amount, p.remaining)
	}
	if err := credit(p.tx.WithContext(ctx), recipient, amount); err != nil {
		return err
	}
	p.remaining = p.remaining.Sub(amount)
	return nil
}

func (p *postgresTx) Commit(_ context.Context) error {
	if p.closed {
		return ErrTxClosed
	}
	if !p.remaining.IsZero() {
		return fmt.Errorf("%w: %s left", ErrUndisbursed, p.remaining)
	}
	p.closed = true
	return p.tx.Commit().Error
}

func (p *postgresTx) Rollback(_ context.Context) error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.tx.Rollback().Error
}

// ---------- HELPERS ----------

func credit(db *gorm.DB, account domain.Account, amount decimal.Decimal) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"amount":     gorm.Expr("balances.amount + EXCLUDED.amount"),
			"updated_at": gorm.Expr("EXCLUDED.updated_at"),
		}),
	}).Create(&Balance{Account: string(account), Amount: amount}).Error
}
