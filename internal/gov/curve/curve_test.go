package curve_test

import (
	"math/big"
	"testing"

	"dao_governance_pool/internal/gov"
	"dao_governance_pool/internal/gov/curve"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	expert  = common.HexToAddress("0xE1")
	regular = common.HexToAddress("0xA1")
)

func TestLinear_Identity(t *testing.T) {
	c := curve.NewLinear()

	raw := big.NewInt(12345)
	weight := c.Transform(regular, raw)
	assert.Equal(t, raw, weight)

	// The result is detached from the input.
	weight.Add(weight, big.NewInt(1))
	assert.Equal(t, big.NewInt(12345), raw)
}

func TestExpertBoost_BoostsExpertsOnly(t *testing.T) {
	// 25% boost.
	boost := new(big.Int).Div(gov.PercentageFull, big.NewInt(4))
	c := curve.NewExpertBoost(boost, expert)

	assert.Equal(t, big.NewInt(1000), c.Transform(regular, big.NewInt(1000)))
	assert.Equal(t, big.NewInt(1250), c.Transform(expert, big.NewInt(1000)))
}

func TestExpertBoost_ZeroRaw(t *testing.T) {
	c := curve.NewExpertBoost(gov.PercentageFull, expert)
	assert.Equal(t, "0", c.Transform(expert, big.NewInt(0)).String())
}

func TestRewardMultiplier_ExtraReward(t *testing.T) {
	m := curve.NewRewardMultiplier()

	assert.Equal(t, "0", m.ExtraReward(regular, big.NewInt(1000)).String())

	// 1.5x extra.
	multiplier := new(big.Int).Mul(big.NewInt(15), new(big.Int).Div(gov.Precision, big.NewInt(10)))
	m.SetHolder(regular, multiplier)
	assert.Equal(t, big.NewInt(1500), m.ExtraReward(regular, big.NewInt(1000)))
}

func TestRewardMultiplier_ZeroRemovesHolder(t *testing.T) {
	m := curve.NewRewardMultiplier()
	m.SetHolder(regular, new(big.Int).Set(gov.Precision))
	assert.Equal(t, big.NewInt(1000), m.ExtraReward(regular, big.NewInt(1000)))

	m.SetHolder(regular, nil)
	assert.Equal(t, "0", m.ExtraReward(regular, big.NewInt(1000)).String())
}
