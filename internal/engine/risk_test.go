package engine

import (
	"testing"

	"trade_bot/internal/models"
)

func longPosition(amount, entry float64) *models.CoinState {
	e := entry
	return &models.CoinState{Amount: amount, PositionEntryPrice: &e}
}

func TestDrawdownBreached(t *testing.T) {
	if !drawdownBreached(850, 1000, 15) {
		t.Error("850 against a peak of 1000 is exactly a 15% drawdown, should breach")
	}
	if drawdownBreached(851, 1000, 15) {
		t.Error("851 is inside the limit, should not breach")
	}
	if drawdownBreached(100, 0, 15) {
		t.Error("no recorded peak yet, should not breach")
	}
}

func TestRiskExitFlatPosition(t *testing.T) {
	cs := &models.CoinState{Amount: 5} // no entry price tracked
	if reason, fire := evaluateRiskExit(cs, 50, 5, 10, 5); fire {
		t.Errorf("flat position fired %s", reason)
	}
}

func TestRiskExitStopLoss(t *testing.T) {
	cs := longPosition(1, 100)
	reason, fire := evaluateRiskExit(cs, 94.9, 5, 10, 5)
	if !fire || reason != exitStopLoss {
		t.Errorf("got (%q, %v), want stop_loss at 5.1%% loss", reason, fire)
	}

	cs = longPosition(1, 100)
	if _, fire := evaluateRiskExit(cs, 96, 5, 10, 5); fire {
		t.Error("4% loss should not trip a 5% stop")
	}
}

func TestRiskExitTakeProfit(t *testing.T) {
	cs := longPosition(1, 100)
	reason, fire := evaluateRiskExit(cs, 110, 5, 10, 5)
	if !fire || reason != exitTakeProfit {
		t.Errorf("got (%q, %v), want take_profit at exactly +10%%", reason, fire)
	}
}

func TestRiskExitTrailingStop(t *testing.T) {
	cs := longPosition(1, 100)

	// rally to 105 sets the trailing high without firing anything
	if reason, fire := evaluateRiskExit(cs, 105, 5, 10, 5); fire {
		t.Fatalf("rally fired %s", reason)
	}
	if cs.TrailingHighPrice == nil || *cs.TrailingHighPrice != 105 {
		t.Fatalf("trailing high = %v, want 105", cs.TrailingHighPrice)
	}

	// a lower price never lowers the high
	if _, fire := evaluateRiskExit(cs, 103, 5, 10, 5); fire {
		t.Fatal("dip to 103 should not fire (trailing floor is 99.75)")
	}
	if *cs.TrailingHighPrice != 105 {
		t.Fatalf("trailing high moved down to %.2f", *cs.TrailingHighPrice)
	}

	// 99.7 <= 105 * 0.95 trips the stop
	reason, fire := evaluateRiskExit(cs, 99.7, 5, 10, 5)
	if !fire || reason != exitTrailing {
		t.Errorf("got (%q, %v), want trailing_stop", reason, fire)
	}
}
