package gov

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Action calldata is a 4-byte keccak selector followed by ABI-encoded
// arguments, so proposals stay byte-compatible with on-chain tooling.

func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

var (
	// Internal pool selectors, allowed as self-targeted actions.
	SelectorEditDescriptionURL = Selector("editDescriptionURL(string)")
	SelectorSetNftMultiplier   = Selector("setNftMultiplier(address)")
	SelectorChangeVoteLimit    = Selector("changeVoteLimit(uint256)")

	// Internal settings-registry selector.
	SelectorChangeExecutors = Selector("changeExecutors(address,uint256)")

	// Distribution proposal executor.
	SelectorDistributionExecute = Selector("execute(uint256,address,uint256)")
)

var (
	uint256Type, _ = abi.NewType("uint256", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
	stringType, _  = abi.NewType("string", "", nil)

	distributionExecuteArgs = abi.Arguments{{Type: uint256Type}, {Type: addressType}, {Type: uint256Type}}
	changeExecutorsArgs     = abi.Arguments{{Type: addressType}, {Type: uint256Type}}
	editDescriptionArgs     = abi.Arguments{{Type: stringType}}
	setNftMultiplierArgs    = abi.Arguments{{Type: addressType}}
	changeVoteLimitArgs     = abi.Arguments{{Type: uint256Type}}
)

func packCall(selector [4]byte, args abi.Arguments, values ...interface{}) []byte {
	packed, err := args.Pack(values...)
	if err != nil {
		// Arguments are typed by the callers below; a pack failure is a bug.
		panic(err)
	}
	return append(selector[:], packed...)
}

func PackEditDescriptionURL(url string) []byte {
	return packCall(SelectorEditDescriptionURL, editDescriptionArgs, url)
}

func PackSetNftMultiplier(multiplier common.Address) []byte {
	return packCall(SelectorSetNftMultiplier, setNftMultiplierArgs, multiplier)
}

func PackChangeVoteLimit(limit *big.Int) []byte {
	return packCall(SelectorChangeVoteLimit, changeVoteLimitArgs, limit)
}

func PackChangeExecutors(executor common.Address, settingsID *big.Int) []byte {
	return packCall(SelectorChangeExecutors, changeExecutorsArgs, executor, settingsID)
}

func PackDistributionExecute(proposalID *big.Int, token common.Address, amount *big.Int) []byte {
	return packCall(SelectorDistributionExecute, distributionExecuteArgs, proposalID, token, amount)
}

// CallSelector splits off the selector; ok is false for calldata shorter
// than 4 bytes.
func CallSelector(data []byte) (sel [4]byte, ok bool) {
	if len(data) < 4 {
		return sel, false
	}
	copy(sel[:], data[:4])
	return sel, true
}

func UnpackDistributionExecute(data []byte) (proposalID *big.Int, token common.Address, amount *big.Int, err error) {
	if _, ok := CallSelector(data); !ok {
		return nil, common.Address{}, nil, errors.New("calldata too short")
	}
	values, err := distributionExecuteArgs.Unpack(data[4:])
	if err != nil {
		return nil, common.Address{}, nil, errors.Wrap(err, "failed to unpack distribution calldata")
	}
	return values[0].(*big.Int), values[1].(common.Address), values[2].(*big.Int), nil
}

func UnpackChangeExecutors(data []byte) (executor common.Address, settingsID *big.Int, err error) {
	values, err := changeExecutorsArgs.Unpack(data[4:])
	if err != nil {
		return common.Address{}, nil, errors.Wrap(err, "failed to unpack executors calldata")
	}
	return values[0].(common.Address), values[1].(*big.Int), nil
}

func unpackEditDescriptionURL(data []byte) (string, error) {
	values, err := editDescriptionArgs.Unpack(data[4:])
	if err != nil {
		return "", errors.Wrap(err, "failed to unpack description calldata")
	}
	return values[0].(string), nil
}

func unpackSetNftMultiplier(data []byte) (common.Address, error) {
	values, err := setNftMultiplierArgs.Unpack(data[4:])
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to unpack multiplier calldata")
	}
	return values[0].(common.Address), nil
}

func unpackChangeVoteLimit(data []byte) (*big.Int, error) {
	values, err := changeVoteLimitArgs.Unpack(data[4:])
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack vote limit calldata")
	}
	return values[0].(*big.Int), nil
}
