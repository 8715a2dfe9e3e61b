package curve

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"dao_governance_pool/internal/gov"
)

// Linear is the identity curve: effective weight equals the raw amount.
type Linear struct{}

func NewLinear() Linear { return Linear{} }

func (Linear) Transform(_ common.Address, raw *big.Int) *big.Int {
	return new(big.Int).Set(raw)
}

// ExpertBoost multiplies the raw amount for expert-flagged accounts by
// (1 + boost), where boost is a PercentageFull-scaled fraction. Monotonic in
// the raw amount for every account.
type ExpertBoost struct {
	boost   *big.Int
	experts map[common.Address]struct{}
}

func NewExpertBoost(boost *big.Int, experts ...common.Address) *ExpertBoost {
	curve := &ExpertBoost{
		boost:   new(big.Int).Set(boost),
		experts: make(map[common.Address]struct{}, len(experts)),
	}
	for _, expert := range experts {
		curve.experts[expert] = struct{}{}
	}
	return curve
}

func (c *ExpertBoost) Transform(account common.Address, raw *big.Int) *big.Int {
	weight := new(big.Int).Set(raw)
	if _, ok := c.experts[account]; !ok {
		return weight
	}
	extra := new(big.Int).Mul(raw, c.boost)
	extra.Div(extra, gov.PercentageFull)
	return weight.Add(weight, extra)
}
