package tokenprice

import (
	"context"
	"math/big"
	"strings"

	"ammindexer/internal/models"
	"ammindexer/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	two256 = new(big.Int).Lsh(big.NewInt(1), 256)
	q112   = new(big.Int).Lsh(big.NewInt(1), 112)
)

// deriveFromPools implements branch B (§4.6): find a pool pairing tok
// against USDC (preferred) or ETH, then derive its spot price from
// cumulative-price samples (§4.7). ok is false if no such pool exists.
func (s *Service) deriveFromPools(ctx context.Context, tokenAddr string, decimals uint8, pools []models.PoolInfo) (decimal.Decimal, bool, error) {
	pair, counterAddr, subjectIsX, found := findCounterPool(tokenAddr, s.cfg.USDCAddress, pools)
	if !found {
		pair, counterAddr, subjectIsX, found = findCounterPool(tokenAddr, s.cfg.ETHAddress, pools)
	}
	if !found {
		return decimal.Zero, false, nil
	}

	counterToken, ok, err := s.repo.GetToken(ctx, counterAddr)
	if err != nil {
		return decimal.Zero, false, err
	}
	if !ok {
		return decimal.Zero, false, nil
	}

	var dx, dy uint8
	if subjectIsX {
		dx, dy = decimals, counterToken.Decimals
	} else {
		dx, dy = counterToken.Decimals, decimals
	}

	price, err := deriveSpotPrice(ctx, s.repo, pair.PairAddress, dx, dy, subjectIsX)
	if err != nil {
		return decimal.Zero, false, err
	}

	if addrEqual(counterAddr, s.cfg.ETHAddress) {
		ethToken, ok, err := s.repo.GetToken(ctx, s.cfg.ETHAddress)
		if err != nil {
			return decimal.Zero, false, err
		}
		if ok && ethToken.USDPrice != nil {
			price = price.Mul(*ethToken.USDPrice)
		}
	}

	return price, true, nil
}

// addrEqual compares two addresses regardless of "0x" prefix or case:
// pool addresses come back from the repository as bare hex
// (bytesToHex has no "0x"), while configured counter addresses
// (config.USDCAddress/ETHAddress) are 0x-prefixed.
func addrEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(a, "0x"), strings.TrimPrefix(b, "0x"))
}

// findCounterPool looks for a pool pairing tokenAddr against counter,
// in either pool position.
func findCounterPool(tokenAddr, counter string, pools []models.PoolInfo) (pool models.PoolInfo, counterAddr string, subjectIsX bool, found bool) {
	if counter == "" {
		return models.PoolInfo{}, "", false, false
	}
	for _, p := range pools {
		if addrEqual(p.TokenXAddress, tokenAddr) && addrEqual(p.TokenYAddress, counter) {
			return p, p.TokenYAddress, true, true
		}
		if addrEqual(p.TokenYAddress, tokenAddr) && addrEqual(p.TokenXAddress, counter) {
			return p, p.TokenXAddress, false, true
		}
	}
	return models.PoolInfo{}, "", false, false
}

// deriveSpotPrice implements §4.7 steps 1-5: select samples L and B,
// compute the per-second rate over the window between them (subtracting
// modulo 2^256 to remain correct across a uint256 wraparound), scale by
// 2^112 and the decimals ratio, and pick the side matching subjectIsX.
func deriveSpotPrice(ctx context.Context, repo *repository.Repository, pairAddress string, dx, dy uint8, subjectIsX bool) (decimal.Decimal, error) {
	latest, ok, err := repo.LatestPriceSample(ctx, pairAddress)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}

	oldest, ok, err := repo.OldestPriceSampleAtLeast(ctx, pairAddress, latest.BlockTimestampLast, 3600)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		oldest = latest
	}

	lp0, err := parseBigInt(latest.Price0Cumulative)
	if err != nil {
		return decimal.Zero, err
	}
	lp1, err := parseBigInt(latest.Price1Cumulative)
	if err != nil {
		return decimal.Zero, err
	}
	bp0, err := parseBigInt(oldest.Price0Cumulative)
	if err != nil {
		return decimal.Zero, err
	}
	bp1, err := parseBigInt(oldest.Price1Cumulative)
	if err != nil {
		return decimal.Zero, err
	}

	deltaT := int64(latest.BlockTimestampLast) - int64(oldest.BlockTimestampLast)

	var p0Rat, p1Rat *big.Rat
	if deltaT == 0 {
		p0Rat = new(big.Rat).SetInt(lp0)
		p1Rat = new(big.Rat).SetInt(lp1)
	} else {
		dt := new(big.Rat).SetInt64(deltaT)
		p0Diff := modSub256(lp0, bp0)
		p1Diff := modSub256(lp1, bp1)
		p0Rat = new(big.Rat).Quo(new(big.Rat).SetInt(p0Diff), dt)
		p1Rat = new(big.Rat).Quo(new(big.Rat).SetInt(p1Diff), dt)
	}

	qRat := new(big.Rat).SetInt(q112)
	scaleXY := pow10Ratio(dx, dy)
	scaleYX := pow10Ratio(dy, dx)

	price0 := new(big.Rat).Mul(new(big.Rat).Quo(p0Rat, qRat), scaleXY)
	price1 := new(big.Rat).Mul(new(big.Rat).Quo(p1Rat, qRat), scaleYX)

	if subjectIsX {
		return ratToDecimal(price1), nil
	}
	return ratToDecimal(price0), nil
}

// modSub256 computes (a - b) mod 2^256, correct across a Uniswap V2
// cumulative-price uint256 wraparound.
func modSub256(a, b *big.Int) *big.Int {
	diff := new(big.Int).Sub(a, b)
	return diff.Mod(diff, two256)
}

func pow10Ratio(numExp, denExp uint8) *big.Rat {
	num := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(numExp)), nil)
	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(denExp)), nil)
	return new(big.Rat).SetFrac(num, den)
}

// ratToDecimal rounds to 18 fractional digits at the last possible step,
// the only truncation point the arbitrary-precision-rational contract
// permits.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	d, _ := decimal.NewFromString(r.FloatString(30))
	return d.Round(18)
}

func parseBigInt(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errInvalidBigInt(s)
	}
	return n, nil
}

type errInvalidBigInt string

func (e errInvalidBigInt) Error() string { return "invalid decimal integer: " + string(e) }
