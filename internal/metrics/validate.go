package metrics

import (
	"errors"
	"fmt"
	"math"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks the preconditions of Compute. It returns an *InputError
// wrapping ErrInvalidInput for the first violation found.
func Validate(trades []Trade, curve []EquityPoint, initialCapital, periodDays float64, opts Options) error {
	if !finite(initialCapital) || initialCapital <= 0 {
		return invalid("initial_capital", "must be > 0, got %v", initialCapital)
	}
	if !finite(periodDays) || periodDays <= 0 {
		return invalid("period_days", "must be > 0, got %v", periodDays)
	}
	if err := ValidateOptions(opts); err != nil {
		return err
	}
	if err := validateCurve(curve); err != nil {
		return err
	}
	for i, t := range trades {
		if err := validateTrade(t); err != nil {
			var ie *InputError
			if errors.As(err, &ie) {
				ie.Field = fmt.Sprintf("trades[%d].%s", i, ie.Field)
			}
			return err
		}
	}
	return nil
}

// ValidateOptions rejects non-positive annualization factors and negative period floors.
func ValidateOptions(opts Options) error {
	if !finite(opts.AnnualizationFactor) || opts.AnnualizationFactor <= 0 {
		return invalid("annualization_factor", "must be > 0, got %v", opts.AnnualizationFactor)
	}
	if !finite(opts.MinPeriodDays) || opts.MinPeriodDays < 0 {
		return invalid("min_period_days", "must be >= 0, got %v", opts.MinPeriodDays)
	}
	if !finite(opts.TargetReturn) {
		return invalid("target_return", "must be finite")
	}
	return nil
}

func validateCurve(curve []EquityPoint) error {
	if len(curve) == 0 {
		return invalid("equity_curve", "must not be empty")
	}
	for i, p := range curve {
		if !finite(p.Value) || p.Value <= 0 {
			return invalid(fmt.Sprintf("equity_curve[%d].value", i), "must be > 0, got %v", p.Value)
		}
		if i > 0 && !p.Timestamp.After(curve[i-1].Timestamp) {
			return invalid(fmt.Sprintf("equity_curve[%d].timestamp", i), "must be after %s", curve[i-1].Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
	return nil
}

func validateTrade(t Trade) error {
	if !finite(t.ProfitLoss) || !finite(t.ProfitLossPercent) {
		return invalid("profit_loss", "must be finite")
	}
	if t.Direction != "" && !t.Direction.Valid() {
		return invalid("direction", "unknown value %q", t.Direction)
	}
	if t.ExitReason != "" && !t.ExitReason.Valid() {
		return invalid("exit_reason", "unknown value %q", t.ExitReason)
	}
	if t.EntryPrice < 0 || t.ExitPrice < 0 || t.Quantity < 0 {
		return invalid("price", "prices and quantity must not be negative")
	}
	if !t.EntryTime.IsZero() && !t.ExitTime.IsZero() && !t.ExitTime.After(t.EntryTime) {
		return invalid("exit_time", "must be after entry_time")
	}
	if t.HasPrices() {
		if !t.Direction.Valid() {
			return invalid("direction", "required when prices are set")
		}
		derived, _ := DeriveProfitLoss(t.Direction, t.EntryPrice, t.ExitPrice, t.Quantity)
		if sign(derived) != sign(t.ProfitLoss) {
			return invalid("profit_loss", "%v disagrees with %s move %v -> %v", t.ProfitLoss, t.Direction, t.EntryPrice, t.ExitPrice)
		}
	}
	return nil
}
