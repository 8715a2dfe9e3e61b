package models

import "time"

// RewardClaim records one executed payout from the pool treasury, written
// only after the engine confirmed the claim.
type RewardClaim struct {
	ID        int       `json:"id" pg:",pk"`
	Account   string    `json:"account" pg:",notnull"`
	Token     string    `json:"token" pg:",notnull"`
	Amount    string    `json:"amount" pg:"type:numeric,notnull,use_zero"`
	Proposals []int64   `json:"proposals" pg:",array"`
	ClaimedAt time.Time `json:"claimed_at" pg:"default:now()"`
}
