package discount

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Wire shapes for formula parameters, keyed by value type. Stored as JSONB
// and exchanged with the seed/ingest tools.
type (
	percentageParams struct {
		Percent decimal.Decimal `json:"percent"`
	}
	fixedAmountParams struct {
		Amount decimal.Decimal `json:"amount"`
	}
	tieredAmountParams struct {
		Unit   decimal.Decimal `json:"unit"`
		Amount decimal.Decimal `json:"amount"`
	}
	voucherAmountParams struct {
		Face decimal.Decimal `json:"face"`
	}
	buyNGetMParams struct {
		Buy int `json:"buy"`
		Get int `json:"get"`
	}
	unitPriceParams struct {
		Amount decimal.Decimal `json:"amount"`
	}
)

// MarshalParams serializes a formula's numeric parameters to JSON.
func MarshalParams(f Formula) ([]byte, error) {
	switch v := f.(type) {
	case Percentage:
		return json.Marshal(percentageParams{Percent: v.Percent})
	case FixedAmount:
		return json.Marshal(fixedAmountParams{Amount: v.Amount})
	case TieredAmount:
		return json.Marshal(tieredAmountParams{Unit: v.Unit, Amount: v.Amount})
	case VoucherAmount:
		return json.Marshal(voucherAmountParams{Face: v.Face})
	case BuyNGetM:
		return json.Marshal(buyNGetMParams{Buy: v.Buy, Get: v.Get})
	case UnitPrice:
		return json.Marshal(unitPriceParams{Amount: v.Amount})
	default:
		return nil, errors.Errorf("unsupported value type: %q", f.ValueType())
	}
}

// UnmarshalParams reconstructs the formula variant for the given value type
// from its JSON parameters.
func UnmarshalParams(vt ValueType, data []byte) (Formula, error) {
	switch vt {
	case ValuePercentage:
		var p percentageParams
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, errors.Wrap(err, "percentage params")
		}
		return Percentage{Percent: p.Percent}, nil
	case ValueFixedAmount:
		var p fixedAmountParams
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, errors.Wrap(err, "fixed_amount params")
		}
		return FixedAmount{Amount: p.Amount}, nil
	case ValueTieredAmount:
		var p tieredAmountParams
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, errors.Wrap(err, "tiered_amount params")
		}
		return TieredAmount{Unit: p.Unit, Amount: p.Amount}, nil
	case ValueVoucherAmount:
		var p voucherAmountParams
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, errors.Wrap(err, "voucher_amount params")
		}
		return VoucherAmount{Face: p.Face}, nil
	case ValueBuyNGetM:
		var p buyNGetMParams
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, errors.Wrap(err, "buy_n_get_m params")
		}
		return BuyNGetM{Buy: p.Buy, Get: p.Get}, nil
	case ValueUnitPrice:
		var p unitPriceParams
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, errors.Wrap(err, "unit_price params")
		}
		return UnitPrice{Amount: p.Amount}, nil
	default:
		return nil, errors.Errorf("unsupported value type: %q", vt)
	}
}
