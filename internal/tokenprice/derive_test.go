package tokenprice

import (
	"math/big"
	"testing"

	"ammindexer/internal/models"
)

func TestModSub256WrapsAroundUint256(t *testing.T) {
	a := big.NewInt(5)
	b := new(big.Int).Sub(two256, big.NewInt(10)) // b = 2^256 - 10
	got := modSub256(a, b)
	// (5 - (2^256-10)) mod 2^256 == 15
	if got.Cmp(big.NewInt(15)) != 0 {
		t.Fatalf("modSub256 = %s, want 15", got.String())
	}
}

func TestModSub256NoWrapIsPlainSubtraction(t *testing.T) {
	got := modSub256(big.NewInt(100), big.NewInt(40))
	if got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("modSub256 = %s, want 60", got.String())
	}
}

func TestPow10RatioMatchesDecimalsScale(t *testing.T) {
	r := pow10Ratio(18, 6)
	want := new(big.Rat).SetFrac(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), big.NewInt(1_000_000))
	if r.Cmp(want) != 0 {
		t.Fatalf("pow10Ratio(18,6) = %s, want %s", r.String(), want.String())
	}
}

func TestFindCounterPoolPrefersExactMatchEitherSide(t *testing.T) {
	usdc := "0xusdc"
	weth := "0xweth"
	pools := []models.PoolInfo{
		{PairAddress: "0xpair1", TokenXAddress: weth, TokenYAddress: usdc},
	}

	pair, counter, subjectIsX, found := findCounterPool(weth, usdc, pools)
	if !found {
		t.Fatalf("expected to find pool pairing weth against usdc")
	}
	if pair.PairAddress != "0xpair1" || counter != usdc || !subjectIsX {
		t.Fatalf("got pair=%s counter=%s subjectIsX=%v", pair.PairAddress, counter, subjectIsX)
	}

	pair2, counter2, subjectIsX2, found2 := findCounterPool(usdc, weth, pools)
	if !found2 || pair2.PairAddress != "0xpair1" || counter2 != weth || subjectIsX2 {
		t.Fatalf("got pair=%s counter=%s subjectIsX=%v", pair2.PairAddress, counter2, subjectIsX2)
	}
}

func TestFindCounterPoolMatchesAcrossAddressFormats(t *testing.T) {
	// Pool addresses come back from the repository as bare hex
	// (bytesToHex strips "0x"); configured counter addresses
	// (config.USDCAddress/ETHAddress) are 0x-prefixed and may differ in
	// case. findCounterPool must normalize both sides before comparing.
	weth := "a1ea0b2354f5a344110af2b6ad68e75545009a03"
	usdc := "a0d71b9877f44c744546d649147e3f1e70a93760"
	pools := []models.PoolInfo{
		{PairAddress: "0xpair1", TokenXAddress: weth, TokenYAddress: usdc},
	}

	pair, counter, subjectIsX, found := findCounterPool("0x"+weth, "0X"+usdc, pools)
	if !found {
		t.Fatalf("expected to find pool pairing weth against usdc across address formats")
	}
	if pair.PairAddress != "0xpair1" || counter != usdc || !subjectIsX {
		t.Fatalf("got pair=%s counter=%s subjectIsX=%v", pair.PairAddress, counter, subjectIsX)
	}
}

func TestFindCounterPoolReturnsNotFoundWhenCounterEmpty(t *testing.T) {
	_, _, _, found := findCounterPool("0xtoken", "", []models.PoolInfo{{TokenXAddress: "0xtoken", TokenYAddress: "0xother"}})
	if found {
		t.Fatalf("expected not found when counter address is unset")
	}
}

func TestRatToDecimalRoundsToEighteenDigits(t *testing.T) {
	r := new(big.Rat).SetFrac(big.NewInt(1), big.NewInt(3))
	d := ratToDecimal(r)
	if d.Exponent() < -18 {
		t.Fatalf("decimal %s has more than 18 fractional digits", d.String())
	}
}
