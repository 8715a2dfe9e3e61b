package curve

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"dao_governance_pool/internal/gov"
)

// RewardMultiplier boosts vote rewards for accounts holding a locked
// multiplier badge. The multiplier is Precision-scaled and applies to the
// coefficient term only, never to the base weight.
type RewardMultiplier struct {
	holders map[common.Address]*big.Int
}

func NewRewardMultiplier() *RewardMultiplier {
	return &RewardMultiplier{holders: map[common.Address]*big.Int{}}
}

// SetHolder locks a badge with the given Precision-scaled multiplier for an
// account; a zero multiplier removes it.
func (m *RewardMultiplier) SetHolder(account common.Address, multiplier *big.Int) {
	if multiplier == nil || multiplier.Sign() == 0 {
		delete(m.holders, account)
		return
	}
	m.holders[account] = new(big.Int).Set(multiplier)
}

func (m *RewardMultiplier) ExtraReward(account common.Address, base *big.Int) *big.Int {
	multiplier, ok := m.holders[account]
	if !ok {
		return new(big.Int)
	}
	extra := new(big.Int).Mul(base, multiplier)
	return extra.Div(extra, gov.Precision)
}
