package main

import (
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"dao_governance_pool/configs"
	"dao_governance_pool/internal/db"
	"dao_governance_pool/internal/db/repositories"
	"dao_governance_pool/internal/di"
	"dao_governance_pool/internal/gov"
	"dao_governance_pool/internal/gov/curve"
	"dao_governance_pool/internal/gov/dist"
	"dao_governance_pool/internal/gov/ledger"
	"dao_governance_pool/internal/gov/settings"
	"dao_governance_pool/internal/gov/validators"
	"dao_governance_pool/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron"
)

// Well-known internal target addresses. Distribution proposals point their
// single action at the executor; settings changes target the registry.
var (
	distributionExecutorAddress = common.HexToAddress("0x00000000000000000000000000000000000d1517")
	settingsRegistryAddress     = common.HexToAddress("0x000000000000000000000000000000000005e771")
	rewardMultiplierAddress     = common.HexToAddress("0x0000000000000000000000000000000000a0117e")
)

func main() {
	config, err := configs.LoadPoolServiceConfig()
	logger := di.NewLogger(config.App, config.Logger)

	if err != nil {
		logger.Fatalw("failed to load config", "error", err)
	}
	logger.Info("config loaded")

	logger.Info("starting db")
	database, err := db.StartDB(config.DB, logger)
	if err != nil {
		logger.Fatalw("failed to start db", "error", err)
	}
	logger.Info("db started")

	logger.Info("building governance pool")
	assetLedger := ledger.New(big.NewInt(config.Pool.NftUnitPower))

	weights, err := parseValidators(config.Pool.Validators)
	if err != nil {
		logger.Fatalw("failed to parse validators", "error", err)
	}
	committee := validators.New(weights, nil)

	defaultBundle, err := buildSettings(config.Settings)
	if err != nil {
		logger.Fatalw("failed to build settings", "error", err)
	}
	internalBundle := defaultBundle
	internalBundle.ExecutorDescription = "internal"
	registry := settings.New(defaultBundle, internalBundle)

	pool := gov.NewPool(gov.Config{
		SelfAddress:    common.HexToAddress(config.Pool.Address),
		Ledger:         assetLedger,
		Curve:          buildCurve(config.Pool),
		Validators:     committee,
		Registry:       registry,
		Treasury:       gov.NewTreasury(),
		Logger:         logger,
		VoteLimit:      config.Pool.VoteLimit,
		DescriptionURL: config.Pool.DescriptionURL,
	})
	pool.RegisterInternalTarget(settingsRegistryAddress, registry, gov.SelectorChangeExecutors)

	distributor := dist.New(distributionExecutorAddress, pool.Treasury(), pool)
	pool.RegisterDistributionExecutor(distributionExecutorAddress, distributor)

	multiplier := curve.NewRewardMultiplier()
	pool.RegisterNftMultiplier(rewardMultiplierAddress, multiplier)

	logger.Info("initializing repositories and services")
	proposalRepository := repositories.NewProposalRepository(database)
	voteRepository := repositories.NewVoteRepository(database)
	rewardClaimRepository := repositories.NewRewardClaimRepository(database)
	poolService := services.NewPoolService(pool, proposalRepository, voteRepository, rewardClaimRepository, logger)

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.Every(1).Minute().Do(func() {
		if err := poolService.SyncProposalStates(); err != nil {
			logger.Errorw("failed to sync proposal states", "error", err)
		}
	})
	scheduler.StartAsync()

	api := newServer(pool, poolService, assetLedger, committee, distributor, proposalRepository, logger)

	logger.Infow("starting http server", "address", config.Pool.ListenAddress)
	if err := http.ListenAndServe(config.Pool.ListenAddress, api.routes()); err != nil {
		logger.Fatalw("http server stopped", "error", err)
	}
}

func errInvalidValidator(pair string) error {
	return fmt.Errorf("invalid validator entry %q, expected address:weight", pair)
}

func errInvalidSetting(name string) error {
	return fmt.Errorf("invalid value for %s", name)
}

func parseValidators(pairs []string) (map[common.Address]*big.Int, error) {
	weights := make(map[common.Address]*big.Int, len(pairs))

	for _, pair := range pairs {
		address, rawWeight, found := strings.Cut(pair, ":")
		if !found {
			return nil, errInvalidValidator(pair)
		}
		weight, ok := new(big.Int).SetString(rawWeight, 10)
		if !ok || weight.Sign() <= 0 {
			return nil, errInvalidValidator(pair)
		}
		weights[common.HexToAddress(address)] = weight
	}

	return weights, nil
}

func buildCurve(config configs.Pool) gov.PowerCurve {
	if config.ExpertBoostPercent <= 0 || len(config.Experts) == 0 {
		return curve.NewLinear()
	}

	boost := new(big.Int).Mul(big.NewInt(config.ExpertBoostPercent), gov.Precision)
	experts := make([]common.Address, len(config.Experts))
	for i, expert := range config.Experts {
		experts[i] = common.HexToAddress(expert)
	}
	return curve.NewExpertBoost(boost, experts...)
}

func buildSettings(config configs.ProposalSettings) (gov.Settings, error) {
	minVotesForVoting, ok := new(big.Int).SetString(config.MinVotesForVoting, 10)
	if !ok {
		return gov.Settings{}, errInvalidSetting("SETTINGS_MIN_VOTES_FOR_VOTING")
	}
	minVotesForCreating, ok := new(big.Int).SetString(config.MinVotesForCreating, 10)
	if !ok {
		return gov.Settings{}, errInvalidSetting("SETTINGS_MIN_VOTES_FOR_CREATING")
	}
	creationReward, ok := new(big.Int).SetString(config.CreationReward, 10)
	if !ok {
		return gov.Settings{}, errInvalidSetting("SETTINGS_CREATION_REWARD")
	}
	executionReward, ok := new(big.Int).SetString(config.ExecutionReward, 10)
	if !ok {
		return gov.Settings{}, errInvalidSetting("SETTINGS_EXECUTION_REWARD")
	}
	voteRewardsCoefficient, ok := new(big.Int).SetString(config.VoteRewardsCoefficient, 10)
	if !ok {
		return gov.Settings{}, errInvalidSetting("SETTINGS_VOTE_REWARDS_COEFFICIENT")
	}

	var rewardToken common.Address
	if config.RewardToken != "" {
		rewardToken = common.HexToAddress(config.RewardToken)
	}

	return gov.Settings{
		EarlyCompletion:        config.EarlyCompletion,
		DelegatedVotingAllowed: config.DelegatedVotingAllowed,
		ValidatorsVote:         config.ValidatorsVote,
		Duration:               config.DurationSeconds,
		DurationValidators:     config.DurationValidators,
		Quorum:                 new(big.Int).Mul(big.NewInt(config.QuorumPercent), gov.Precision),
		QuorumValidators:       new(big.Int).Mul(big.NewInt(config.QuorumValidatorsPct), gov.Precision),
		MinVotesForVoting:      minVotesForVoting,
		MinVotesForCreating:    minVotesForCreating,
		RewardToken:            rewardToken,
		CreationReward:         creationReward,
		ExecutionReward:        executionReward,
		VoteRewardsCoefficient: voteRewardsCoefficient,
		ExecutorDescription:    config.ExecutorDescription,
	}, nil
}
