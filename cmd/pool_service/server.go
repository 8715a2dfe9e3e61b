package main

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"dao_governance_pool/internal/db/repositories"
	"dao_governance_pool/internal/gov"
	"dao_governance_pool/internal/gov/dist"
	"dao_governance_pool/internal/gov/ledger"
	"dao_governance_pool/internal/gov/validators"
	"dao_governance_pool/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

type server struct {
	pool         *gov.Pool
	poolService  services.PoolService
	ledger       *ledger.Ledger
	committee    *validators.Committee
	distributor  *dist.Executor
	proposalRepo repositories.ProposalRepository
	logger       *zap.SugaredLogger
}

func newServer(
	pool *gov.Pool,
	poolService services.PoolService,
	assetLedger *ledger.Ledger,
	committee *validators.Committee,
	distributor *dist.Executor,
	proposalRepo repositories.ProposalRepository,
	logger *zap.SugaredLogger,
) *server {
	return &server{
		pool:         pool,
		poolService:  poolService,
		ledger:       assetLedger,
		committee:    committee,
		distributor:  distributor,
		proposalRepo: proposalRepo,
		logger:       logger,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /deposits/tokens", s.handleDepositTokens)
	mux.HandleFunc("POST /deposits/nfts", s.handleDepositNfts)
	mux.HandleFunc("POST /withdrawals/tokens", s.handleWithdrawTokens)
	mux.HandleFunc("POST /withdrawals/nfts", s.handleWithdrawNfts)
	mux.HandleFunc("POST /delegations", s.handleDelegate)
	mux.HandleFunc("POST /undelegations", s.handleUndelegate)
	mux.HandleFunc("POST /treasury/deposits", s.handleTreasuryDeposit)
	mux.HandleFunc("GET /treasury/balances", s.handleTreasuryBalance)

	mux.HandleFunc("POST /proposals", s.handleCreateProposal)
	mux.HandleFunc("GET /proposals", s.handleListProposals)
	mux.HandleFunc("GET /history/proposals", s.handleProposalHistory)
	mux.HandleFunc("GET /proposals/{id}", s.handleGetProposal)
	mux.HandleFunc("POST /proposals/{id}/escalate", s.handleEscalate)
	mux.HandleFunc("POST /proposals/{id}/execute", s.handleExecute)

	mux.HandleFunc("POST /votes", s.handleVote)
	mux.HandleFunc("POST /votes/cancel", s.handleCancelVote)
	mux.HandleFunc("POST /validators/votes", s.handleValidatorVote)

	mux.HandleFunc("POST /rewards/claims", s.handleClaimRewards)
	mux.HandleFunc("GET /rewards/pending", s.handlePendingRewards)
	mux.HandleFunc("POST /distributions/claims", s.handleClaimDistribution)

	mux.HandleFunc("POST /unlocks", s.handleUnlock)
	mux.HandleFunc("GET /assets/withdrawable", s.handleWithdrawableAssets)
	mux.HandleFunc("GET /assets/undelegateable", s.handleUndelegateableAssets)

	return mux
}

type amountRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type nftRequest struct {
	Account string   `json:"account"`
	NftIDs  []uint64 `json:"nft_ids"`
}

type delegationRequest struct {
	Delegator string   `json:"delegator"`
	Delegatee string   `json:"delegatee"`
	Amount    string   `json:"amount"`
	NftIDs    []uint64 `json:"nft_ids"`
}

type treasuryDepositRequest struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type actionRequest struct {
	Target string `json:"target"`
	Value  string `json:"value"`
	Data   string `json:"data"`
}

type createProposalRequest struct {
	Creator        string          `json:"creator"`
	DescriptionURL string          `json:"description_url"`
	Misc           string          `json:"misc"`
	Actions        []actionRequest `json:"actions"`
}

type voteRequest struct {
	Voter      string   `json:"voter"`
	ProposalID uint64   `json:"proposal_id"`
	Tokens     string   `json:"tokens"`
	NftIDs     []uint64 `json:"nft_ids"`
	Side       string   `json:"side"`
	Delegated  bool     `json:"delegated"`
}

type cancelVoteRequest struct {
	Voter      string `json:"voter"`
	ProposalID uint64 `json:"proposal_id"`
}

type validatorVoteRequest struct {
	Validator  string `json:"validator"`
	ProposalID uint64 `json:"proposal_id"`
	Side       string `json:"side"`
}

type callerRequest struct {
	Caller string `json:"caller"`
}

type claimRequest struct {
	Account     string   `json:"account"`
	ProposalIDs []uint64 `json:"proposal_ids"`
}

func (s *server) handleDepositTokens(w http.ResponseWriter, r *http.Request) {
	var request amountRequest
	if !s.decode(w, r, &request) {
		return
	}
	amount, ok := parseAmount(request.Amount)
	if !ok {
		s.badRequest(w, "invalid amount")
		return
	}

	s.ledger.Deposit(common.HexToAddress(request.Account), amount)
	s.ok(w, nil)
}

func (s *server) handleDepositNfts(w http.ResponseWriter, r *http.Request) {
	var request nftRequest
	if !s.decode(w, r, &request) {
		return
	}

	err := s.ledger.DepositNfts(common.HexToAddress(request.Account), request.NftIDs...)
	s.respond(w, nil, err)
}

func (s *server) handleWithdrawTokens(w http.ResponseWriter, r *http.Request) {
	var request amountRequest
	if !s.decode(w, r, &request) {
		return
	}
	amount, ok := parseAmount(request.Amount)
	if !ok {
		s.badRequest(w, "invalid amount")
		return
	}

	err := s.ledger.Withdraw(common.HexToAddress(request.Account), amount)
	s.respond(w, nil, err)
}

func (s *server) handleWithdrawNfts(w http.ResponseWriter, r *http.Request) {
	var request nftRequest
	if !s.decode(w, r, &request) {
		return
	}

	err := s.ledger.WithdrawNfts(common.HexToAddress(request.Account), request.NftIDs...)
	s.respond(w, nil, err)
}

func (s *server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	var request delegationRequest
	if !s.decode(w, r, &request) {
		return
	}
	amount, ok := parseAmount(request.Amount)
	if !ok {
		s.badRequest(w, "invalid amount")
		return
	}

	err := s.ledger.Delegate(
		common.HexToAddress(request.Delegator),
		common.HexToAddress(request.Delegatee),
		amount,
		request.NftIDs...,
	)
	s.respond(w, nil, err)
}

func (s *server) handleUndelegate(w http.ResponseWriter, r *http.Request) {
	var request delegationRequest
	if !s.decode(w, r, &request) {
		return
	}
	amount, ok := parseAmount(request.Amount)
	if !ok {
		s.badRequest(w, "invalid amount")
		return
	}

	err := s.ledger.Undelegate(
		common.HexToAddress(request.Delegator),
		common.HexToAddress(request.Delegatee),
		amount,
		request.NftIDs...,
	)
	s.respond(w, nil, err)
}

func (s *server) handleTreasuryDeposit(w http.ResponseWriter, r *http.Request) {
	var request treasuryDepositRequest
	if !s.decode(w, r, &request) {
		return
	}
	amount, ok := parseAmount(request.Amount)
	if !ok {
		s.badRequest(w, "invalid amount")
		return
	}

	s.pool.Treasury().Deposit(common.HexToAddress(request.Token), amount)
	s.ok(w, nil)
}

func (s *server) handleTreasuryBalance(w http.ResponseWriter, r *http.Request) {
	token := common.HexToAddress(r.URL.Query().Get("token"))

	s.ok(w, map[string]string{"balance": s.pool.Treasury().BalanceOf(token).String()})
}

func (s *server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var request createProposalRequest
	if !s.decode(w, r, &request) {
		return
	}

	actions := make([]gov.Action, len(request.Actions))
	for i, action := range request.Actions {
		value, ok := parseAmount(action.Value)
		if !ok {
			s.badRequest(w, "invalid action value")
			return
		}
		data, err := decodeHex(action.Data)
		if err != nil {
			s.badRequest(w, "invalid action data")
			return
		}
		actions[i] = gov.Action{
			Target: common.HexToAddress(action.Target),
			Value:  value,
			Data:   data,
		}
	}

	proposalID, err := s.poolService.CreateProposal(
		common.HexToAddress(request.Creator),
		request.DescriptionURL,
		request.Misc,
		actions,
	)
	s.respond(w, map[string]uint64{"proposal_id": proposalID}, err)
}

func (s *server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	s.ok(w, s.pool.Proposals(offset, limit))
}

// handleProposalHistory reads from the database mirror rather than the
// engine.
func (s *server) handleProposalHistory(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	proposals, err := s.proposalRepo.GetMany(offset, limit)
	if err != nil {
		s.logger.Errorw("failed to load proposals", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.ok(w, proposals)
}

func (s *server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid proposal id")
		return
	}

	view, found := s.pool.GetProposal(proposalID)
	if !found {
		http.Error(w, "proposal not found", http.StatusNotFound)
		return
	}
	s.ok(w, view)
}

func (s *server) handleEscalate(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid proposal id")
		return
	}

	s.respond(w, nil, s.poolService.MoveProposalToValidators(proposalID))
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid proposal id")
		return
	}
	var request callerRequest
	if !s.decode(w, r, &request) {
		return
	}

	s.respond(w, nil, s.poolService.Execute(common.HexToAddress(request.Caller), proposalID))
}

func (s *server) handleVote(w http.ResponseWriter, r *http.Request) {
	var request voteRequest
	if !s.decode(w, r, &request) {
		return
	}
	tokens, ok := parseAmount(request.Tokens)
	if !ok {
		s.badRequest(w, "invalid token amount")
		return
	}
	side, ok := parseSide(request.Side)
	if !ok {
		s.badRequest(w, "invalid vote side")
		return
	}

	err := s.poolService.Vote(
		common.HexToAddress(request.Voter),
		request.ProposalID,
		tokens,
		request.NftIDs,
		side,
		request.Delegated,
	)
	s.respond(w, nil, err)
}

func (s *server) handleCancelVote(w http.ResponseWriter, r *http.Request) {
	var request cancelVoteRequest
	if !s.decode(w, r, &request) {
		return
	}

	s.respond(w, nil, s.poolService.CancelVote(common.HexToAddress(request.Voter), request.ProposalID))
}

func (s *server) handleValidatorVote(w http.ResponseWriter, r *http.Request) {
	var request validatorVoteRequest
	if !s.decode(w, r, &request) {
		return
	}
	side, ok := parseSide(request.Side)
	if !ok {
		s.badRequest(w, "invalid vote side")
		return
	}

	err := s.committee.Vote(common.HexToAddress(request.Validator), request.ProposalID, side)
	s.respond(w, nil, err)
}

func (s *server) handleClaimRewards(w http.ResponseWriter, r *http.Request) {
	var request claimRequest
	if !s.decode(w, r, &request) {
		return
	}

	paid, err := s.poolService.ClaimRewards(common.HexToAddress(request.Account), request.ProposalIDs)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	s.ok(w, map[string]string{"paid": paid.String()})
}

func (s *server) handlePendingRewards(w http.ResponseWriter, r *http.Request) {
	proposalID, err := strconv.ParseUint(r.URL.Query().Get("proposal_id"), 10, 64)
	if err != nil {
		s.badRequest(w, "invalid proposal id")
		return
	}
	account := common.HexToAddress(r.URL.Query().Get("account"))

	s.ok(w, map[string]string{"pending": s.pool.PendingRewards(proposalID, account).String()})
}

func (s *server) handleClaimDistribution(w http.ResponseWriter, r *http.Request) {
	var request claimRequest
	if !s.decode(w, r, &request) {
		return
	}

	paid, err := s.distributor.Claim(common.HexToAddress(request.Account), request.ProposalIDs)
	if err != nil {
		s.respond(w, nil, err)
		return
	}
	s.ok(w, map[string]string{"paid": paid.String()})
}

func (s *server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var request claimRequest
	if !s.decode(w, r, &request) {
		return
	}

	err := s.poolService.UnlockInProposals(request.ProposalIDs, common.HexToAddress(request.Account))
	s.respond(w, nil, err)
}

func (s *server) handleWithdrawableAssets(w http.ResponseWriter, r *http.Request) {
	account := common.HexToAddress(r.URL.Query().Get("account"))
	tokens, nfts := s.pool.WithdrawableAssets(account)

	s.ok(w, map[string]any{"tokens": tokens.String(), "nft_ids": nfts})
}

func (s *server) handleUndelegateableAssets(w http.ResponseWriter, r *http.Request) {
	delegator := common.HexToAddress(r.URL.Query().Get("delegator"))
	delegatee := common.HexToAddress(r.URL.Query().Get("delegatee"))
	tokens, nfts := s.pool.UndelegateableAssets(delegator, delegatee)

	s.ok(w, map[string]any{"tokens": tokens.String(), "nft_ids": nfts})
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, request any) bool {
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		s.badRequest(w, "invalid request body")
		return false
	}
	return true
}

func (s *server) respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		s.logger.Debugw("request rejected", "error", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	s.ok(w, body)
}

func (s *server) ok(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if body == nil {
		body = map[string]string{"status": "ok"}
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Errorw("failed to encode response", "error", err)
	}
}

func (s *server) badRequest(w http.ResponseWriter, message string) {
	http.Error(w, message, http.StatusBadRequest)
}

func decodeHex(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	return hexutil.Decode(raw)
}

func parseAmount(raw string) (*big.Int, bool) {
	if raw == "" {
		return new(big.Int), true
	}
	return new(big.Int).SetString(raw, 10)
}

func parseSide(raw string) (gov.VoteSide, bool) {
	switch raw {
	case "for":
		return gov.VoteSideFor, true
	case "against":
		return gov.VoteSideAgainst, true
	default:
		return 0, false
	}
}

func pathID(r *http.Request) (uint64, bool) {
	proposalID, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return proposalID, true
}
