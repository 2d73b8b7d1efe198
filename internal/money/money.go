// Package money represents all monetary amounts as int64 cents, the
// same exact fixed-point representation the reference payments backend
// uses for Account.Balance. It avoids floating point entirely and needs
// no decimal library: an int64 count of the smallest currency unit is
// already exact.
package money

// Cents is an amount in the smallest currency unit (cents).
type Cents = int64

// CeilMinutes bills per whole started minute: a 1-second session bills
// one minute, a 61-second session bills two minutes. Zero or negative
// durations still bill one minute, matching the anti-abuse behavior
// spec.md §9 calls out as intentional.
func CeilMinutes(durationSeconds int64) int64 {
	if durationSeconds <= 0 {
		return 1
	}
	minutes := durationSeconds / 60
	if durationSeconds%60 != 0 {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// PlatformFeeHalfEven computes round-half-even(total * percent / 100)
// entirely in integer arithmetic, in cents. percent is e.g. 30 for 30%.
//
// total is already in cents, so total*percent is still exact; the only
// rounding step is the division by 100, which this performs to the
// nearest cent with ties rounding to even.
func PlatformFeeHalfEven(totalCents Cents, percent int64) Cents {
	numerator := totalCents * percent
	quotient := numerator / 100
	remainder := numerator % 100

	if remainder == 0 {
		return quotient
	}

	twiceRemainder := remainder * 2
	switch {
	case twiceRemainder < 100:
		return quotient
	case twiceRemainder > 100:
		return quotient + 1
	default:
		// Exact tie: round to even.
		if quotient%2 == 0 {
			return quotient
		}
		return quotient + 1
	}
}

// Split computes the platform fee and reader earnings for a total
// amount, preserving fee+earnings == total exactly (earnings is derived
// by subtraction, never rounded independently).
func Split(totalCents Cents, feePercent int64) (fee, earnings Cents) {
	fee = PlatformFeeHalfEven(totalCents, feePercent)
	earnings = totalCents - fee
	return fee, earnings
}

// Min returns the smaller of two cent amounts.
func Min(a, b Cents) Cents {
	if a < b {
		return a
	}
	return b
}
