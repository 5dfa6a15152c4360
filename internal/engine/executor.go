package engine

import "trade_bot/config"

// ExecuteTrade applies a buy or sell to the running balances and returns
// the new (usdt, coin) pair plus the volume actually executed.
//
// Insufficient funds never reject the trade: a buy that costs more than
// the available USDT is clamped to spend everything, a sell larger than
// the holdings is clamped to sell everything. Oversized requests become
// best-effort fills instead of errors.
func ExecuteTrade(action string, volume, price, usdt, coinAmount, feeRate float64) (float64, float64, float64) {
	if volume <= 0 || price <= 0 {
		return usdt, coinAmount, 0
	}

	switch action {
	case "buy":
		cost := volume * price * (1 + feeRate)
		newUSDT := usdt - cost
		if usdt < cost {
			volume = usdt / (price * (1 + feeRate))
			// spend-all fill, round-off must not leave a negative balance
			newUSDT = 0
		}
		if volume <= 0 {
			return usdt, coinAmount, 0
		}
		return newUSDT, coinAmount + volume, volume

	case "sell":
		if coinAmount < volume {
			volume = coinAmount
		}
		if volume <= 0 {
			return usdt, coinAmount, 0
		}
		proceeds := volume * price * (1 - feeRate)
		return usdt + proceeds, coinAmount - volume, volume
	}

	return usdt, coinAmount, 0
}

// CalculateVolume sizes a trade from the quote balance, clamped to the
// coin's configured min/max limits. A non-positive result means the trade
// must be skipped.
func CalculateVolume(quoteBalance, price float64, limits config.VolumeLimits) float64 {
	if price <= 0 || quoteBalance <= 0 {
		return 0
	}
	volume := quoteBalance / price
	if volume < limits.Min {
		volume = limits.Min
	}
	if limits.Max > 0 && volume > limits.Max {
		volume = limits.Max
	}
	return volume
}
