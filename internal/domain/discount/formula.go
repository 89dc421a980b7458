package discount

import "github.com/shopspring/decimal"

// ValueType identifies the discount formula variant carried by a rule.
type ValueType string

const (
	ValuePercentage    ValueType = "percentage"
	ValueFixedAmount   ValueType = "fixed_amount"
	ValueTieredAmount  ValueType = "tiered_amount"
	ValueVoucherAmount ValueType = "voucher_amount"
	ValueBuyNGetM      ValueType = "buy_n_get_m"
	ValueUnitPrice     ValueType = "unit_price"
)

// Formula is a sealed sum type over the supported discount formulas. Each
// variant carries only the numeric parameters its value type needs; the
// calculator dispatches exhaustively on the concrete type.
type Formula interface {
	ValueType() ValueType
	formula()
}

// Percentage discounts a percentage of the base amount, floored to the won.
type Percentage struct {
	Percent decimal.Decimal
}

// FixedAmount subtracts a flat amount, never below zero.
type FixedAmount struct {
	Amount decimal.Decimal
}

// TieredAmount discounts a fixed amount per full tier unit of the base:
// floor(base / Unit) * Amount.
type TieredAmount struct {
	Unit   decimal.Decimal
	Amount decimal.Decimal
}

// VoucherAmount subtracts the voucher's face value.
type VoucherAmount struct {
	Face decimal.Decimal
}

// BuyNGetM grants free units: every full set of Buy+Get units makes Get of
// them free. A "1+1" is Buy=1, Get=1: two units for the price of one.
type BuyNGetM struct {
	Buy int
	Get int
}

// UnitPrice discounts a flat amount per qualifying unit.
type UnitPrice struct {
	Amount decimal.Decimal
}

func (Percentage) ValueType() ValueType    { return ValuePercentage }
func (FixedAmount) ValueType() ValueType   { return ValueFixedAmount }
func (TieredAmount) ValueType() ValueType  { return ValueTieredAmount }
func (VoucherAmount) ValueType() ValueType { return ValueVoucherAmount }
func (BuyNGetM) ValueType() ValueType      { return ValueBuyNGetM }
func (UnitPrice) ValueType() ValueType     { return ValueUnitPrice }

func (Percentage) formula()    {}
func (FixedAmount) formula()   {}
func (TieredAmount) formula()  {}
func (VoucherAmount) formula() {}
func (BuyNGetM) formula()      {}
func (UnitPrice) formula()     {}

// FreeUnits returns how many of qty units ship free under the promotion,
// using strict set semantics: sets = qty / (Buy+Get), free = sets * Get.
func (f BuyNGetM) FreeUnits(qty int) int {
	setSize := f.Buy + f.Get
	if setSize <= 0 || qty < setSize {
		return 0
	}
	return (qty / setSize) * f.Get
}
