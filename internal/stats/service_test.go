package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %s: %v", s, err)
	}
	return d.UTC()
}

func TestUnstatedDaysBuildsInclusiveRange(t *testing.T) {
	start := mustDate(t, "2026-07-28")
	today := mustDate(t, "2026-07-31")
	days := unstatedDays(start, today)
	if len(days) != 4 {
		t.Fatalf("len(days) = %d, want 4", len(days))
	}
	if !days[0].Equal(start) || !days[len(days)-1].Equal(today) {
		t.Fatalf("range = [%s, %s], want [%s, %s]", days[0], days[len(days)-1], start, today)
	}
}

func TestUnstatedDaysEmptyWhenTodayBeforeStart(t *testing.T) {
	start := mustDate(t, "2026-08-01")
	today := mustDate(t, "2026-07-31")
	days := unstatedDays(start, today)
	if days != nil {
		t.Fatalf("days = %v, want nil when today < start", days)
	}
}

func TestScaleAndMultiplyDividesByDecimalsThenMultipliesPrice(t *testing.T) {
	got := scaleAndMultiply("1500000", 6, decimal.NewFromInt(2))
	want := decimal.NewFromInt(3)
	if !got.Equal(want) {
		t.Fatalf("scaleAndMultiply = %s, want %s", got, want)
	}
}

func TestScaleAndMultiplyReturnsZeroOnUnparsableAmount(t *testing.T) {
	got := scaleAndMultiply("not-a-number", 18, decimal.NewFromInt(1))
	if !got.IsZero() {
		t.Fatalf("scaleAndMultiply = %s, want 0", got)
	}
}
