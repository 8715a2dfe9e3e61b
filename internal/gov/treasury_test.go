package gov

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	treasuryToken   = common.HexToAddress("0x3001")
	treasuryAccount = common.HexToAddress("0xA1")
)

func TestTreasurySend_ErrorKinds(t *testing.T) {
	treasury := NewTreasury()

	err := treasury.Send(NativeToken, treasuryAccount, big.NewInt(1))
	assert.ErrorIs(t, err, ErrFailedToSendEth)

	err = treasury.Send(treasuryToken, treasuryAccount, big.NewInt(1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Zero transfers are a no-op, not an error.
	assert.NoError(t, treasury.Send(treasuryToken, treasuryAccount, big.NewInt(0)))
}

func TestTreasurySend_TracksReceived(t *testing.T) {
	treasury := NewTreasury()
	treasury.Deposit(treasuryToken, big.NewInt(500))

	assert.NoError(t, treasury.Send(treasuryToken, treasuryAccount, big.NewInt(200)))
	assert.NoError(t, treasury.Send(treasuryToken, treasuryAccount, big.NewInt(100)))

	assert.Equal(t, big.NewInt(200), treasury.BalanceOf(treasuryToken))
	assert.Equal(t, big.NewInt(300), treasury.ReceivedBy(treasuryAccount, treasuryToken))
}

func TestTreasurySnapshot_RestoreUnwindsTransfers(t *testing.T) {
	treasury := NewTreasury()
	treasury.Deposit(treasuryToken, big.NewInt(500))

	snap := treasury.snapshot()
	assert.NoError(t, treasury.Send(treasuryToken, treasuryAccount, big.NewInt(400)))
	treasury.Deposit(NativeToken, big.NewInt(10))

	treasury.restore(snap)
	assert.Equal(t, big.NewInt(500), treasury.BalanceOf(treasuryToken))
	assert.Equal(t, "0", treasury.BalanceOf(NativeToken).String())
	assert.Equal(t, "0", treasury.ReceivedBy(treasuryAccount, treasuryToken).String())
}
