package gov

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Treasury holds the pool's own balances per token (NativeToken for the
// native asset). Rewards and action values are paid out of it; claims
// re-check it live rather than trusting accrual-time arithmetic.
type Treasury struct {
	balances map[common.Address]*big.Int
	received map[common.Address]map[common.Address]*big.Int
}

func NewTreasury() *Treasury {
	return &Treasury{
		balances: map[common.Address]*big.Int{},
		received: map[common.Address]map[common.Address]*big.Int{},
	}
}

func (t *Treasury) Deposit(token common.Address, amount *big.Int) {
	balance, ok := t.balances[token]
	if !ok {
		balance = new(big.Int)
		t.balances[token] = balance
	}
	balance.Add(balance, amount)
}

func (t *Treasury) BalanceOf(token common.Address) *big.Int {
	if balance, ok := t.balances[token]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

// Send moves amount of token out of the pool to an account. The error kind
// distinguishes native transfers from token transfers.
func (t *Treasury) Send(token, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}

	balance := t.balances[token]
	if balance == nil || balance.Cmp(amount) < 0 {
		if token == NativeToken {
			return ErrFailedToSendEth
		}
		return ErrInsufficientBalance
	}
	balance.Sub(balance, amount)

	byToken, ok := t.received[to]
	if !ok {
		byToken = map[common.Address]*big.Int{}
		t.received[to] = byToken
	}
	got, ok := byToken[token]
	if !ok {
		got = new(big.Int)
		byToken[token] = got
	}
	got.Add(got, amount)
	return nil
}

// ReceivedBy reports the cumulative amount of token ever sent to an account.
func (t *Treasury) ReceivedBy(account, token common.Address) *big.Int {
	if byToken, ok := t.received[account]; ok {
		if got, ok := byToken[token]; ok {
			return new(big.Int).Set(got)
		}
	}
	return new(big.Int)
}

type treasurySnapshot struct {
	balances map[common.Address]*big.Int
	received map[common.Address]map[common.Address]*big.Int
}

func (t *Treasury) snapshot() treasurySnapshot {
	snap := treasurySnapshot{
		balances: make(map[common.Address]*big.Int, len(t.balances)),
		received: make(map[common.Address]map[common.Address]*big.Int, len(t.received)),
	}
	for token, balance := range t.balances {
		snap.balances[token] = new(big.Int).Set(balance)
	}
	for account, byToken := range t.received {
		copied := make(map[common.Address]*big.Int, len(byToken))
		for token, got := range byToken {
			copied[token] = new(big.Int).Set(got)
		}
		snap.received[account] = copied
	}
	return snap
}

func (t *Treasury) restore(snap treasurySnapshot) {
	t.balances = snap.balances
	t.received = snap.received
}
