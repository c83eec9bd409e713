package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dogewatch/dogewatch-core/internal/ledger"
	"github.com/dogewatch/dogewatch-core/internal/log"
	"github.com/dogewatch/dogewatch-core/internal/storage"
	"github.com/dogewatch/dogewatch-core/pkg/types"
)

var (
	// ErrCaseNotFound is returned for an unknown case ID.
	ErrCaseNotFound = errors.New("case not found")

	// ErrCaseClosed is returned when voting on a case that is no
	// longer open or whose window has passed.
	ErrCaseClosed = errors.New("case is closed to voting")

	// ErrSelfVote is returned when a submitter votes on their own case.
	ErrSelfVote = errors.New("submitter cannot vote on own case")

	// ErrAlreadyVoted is returned on a second vote by the same voter.
	ErrAlreadyVoted = errors.New("already voted on this case")

	// ErrStakeTooLow is returned when the stake is under the floor.
	ErrStakeTooLow = errors.New("stake below minimum")

	// ErrWindowOpen is returned when resolving before the
	// verification window has closed.
	ErrWindowOpen = errors.New("verification window still open")

	// ErrAlreadyResolved is returned for a resolution attempt on a
	// terminal case. A conflict, not a failure.
	ErrAlreadyResolved = errors.New("case already resolved")

	// ErrConservation signals that computed payouts do not add back up
	// to the losing pool. Resolution halts; nothing is credited.
	ErrConservation = errors.New("conservation violation")
)

// Pinner stores evidence payloads in content-addressed storage.
type Pinner interface {
	PinJSON(ctx context.Context, name string, v any) (string, error)
}

// Config tunes the engine.
type Config struct {
	// MinStake is the stake floor for votes.
	MinStake types.Amount
	// FeeBps is the platform fee in basis points taken off the losing
	// pool.
	FeeBps int64
	// Window is how long a new case accepts votes.
	Window time.Duration
}

// DefaultConfig returns production defaults: 1 DOGE stake floor, 5%
// fee, 72 hour window.
func DefaultConfig() Config {
	return Config{
		MinStake: types.KoinuPerCoin,
		FeeBps:   500,
		Window:   72 * time.Hour,
	}
}

// Engine coordinates cases, votes, and settlement. All fund movement
// goes through the ledger; the engine never touches balances directly.
type Engine struct {
	store  *Store
	ledger *ledger.Ledger
	pinner Pinner // optional
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an engine. pinner may be nil; evidence then stays
// unpinned.
func New(db storage.DB, led *ledger.Ledger, pinner Pinner, cfg Config) *Engine {
	return &Engine{
		store:  NewStore(db),
		ledger: led,
		pinner: pinner,
		cfg:    cfg,
		logger: log.Escrow,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (e *Engine) lockFor(caseID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.locks[caseID]
	if !ok {
		m = &sync.Mutex{}
		e.locks[caseID] = m
	}
	return m
}

// OpenCase escrows the bounty out of the submitter's balance and
// records the case. Evidence, when present, is pinned first so a pin
// failure leaves no state behind.
func (e *Engine) OpenCase(ctx context.Context, submitterID string, bounty types.Amount, description string, evidence any) (*Case, error) {
	if !bounty.IsPositive() {
		return nil, fmt.Errorf("bounty must be positive, got %s", bounty)
	}

	id := uuid.NewString()
	cid := ""
	if evidence != nil && e.pinner != nil {
		var err error
		cid, err = e.pinner.PinJSON(ctx, "case-"+id, evidence)
		if err != nil {
			return nil, fmt.Errorf("pin evidence: %w", err)
		}
	}

	if _, err := e.ledger.Debit(submitterID, bounty, "case bounty", "bounty:"+id); err != nil {
		return nil, fmt.Errorf("escrow bounty: %w", err)
	}

	now := e.now().UTC()
	c := &Case{
		ID:                   id,
		SubmitterID:          submitterID,
		Description:          description,
		Bounty:               bounty,
		EvidenceCID:          cid,
		Status:               StatusOpen,
		CreatedAt:            now,
		VerificationClosesAt: now.Add(e.cfg.Window),
	}
	if err := e.store.PutCase(c); err != nil {
		// The bounty left the wallet but the case does not exist;
		// put it back under a paired reference.
		if _, cerr := e.ledger.Credit(submitterID, bounty, "case bounty refund", "bounty:"+id+":refund"); cerr != nil {
			e.logger.Error().Err(cerr).Str("case", id).Msg("bounty refund after failed case insert")
		}
		return nil, fmt.Errorf("store case: %w", err)
	}

	e.logger.Info().
		Str("case", id).
		Str("submitter", submitterID).
		Str("bounty", bounty.String()).
		Str("cid", cid).
		Msg("case opened")
	return c, nil
}

// Get returns a case by ID.
func (e *Engine) Get(caseID string) (*Case, error) {
	ok, err := e.store.HasCase(caseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCaseNotFound
	}
	return e.store.GetCase(caseID)
}

// Votes returns the votes on a case.
func (e *Engine) Votes(caseID string) ([]Vote, error) {
	if _, err := e.Get(caseID); err != nil {
		return nil, err
	}
	return e.store.Votes(caseID)
}

// CastVote escrows the stake and records the verdict. Funds move only
// if the vote record also persists.
func (e *Engine) CastVote(caseID, voterID string, choice Choice, stake types.Amount) (*Vote, error) {
	if choice != ChoiceValid && choice != ChoiceInvalid {
		return nil, fmt.Errorf("unknown choice %q", choice)
	}
	if stake < e.cfg.MinStake {
		return nil, fmt.Errorf("%w: %s < %s", ErrStakeTooLow, stake, e.cfg.MinStake)
	}

	lock := e.lockFor(caseID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.Get(caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, fmt.Errorf("%w: status %s", ErrCaseClosed, c.Status)
	}
	if !e.now().Before(c.VerificationClosesAt) {
		return nil, fmt.Errorf("%w: window ended %s", ErrCaseClosed, c.VerificationClosesAt.Format(time.RFC3339))
	}
	if voterID == c.SubmitterID {
		return nil, ErrSelfVote
	}
	if voted, err := e.store.HasVote(caseID, voterID); err != nil {
		return nil, err
	} else if voted {
		return nil, ErrAlreadyVoted
	}

	ref := "stake:" + caseID + ":" + voterID
	if _, err := e.ledger.Debit(voterID, stake, "verification stake", ref); err != nil {
		return nil, err
	}

	v := &Vote{
		ID:           uuid.NewString(),
		CaseID:       caseID,
		VoterID:      voterID,
		Choice:       choice,
		Stake:        stake,
		PayoutStatus: PayoutPending,
		CreatedAt:    e.now().UTC(),
	}
	if err := e.store.PutVote(v); err != nil {
		if _, cerr := e.ledger.Credit(voterID, stake, "stake refund", ref+":refund"); cerr != nil {
			e.logger.Error().Err(cerr).Str("case", caseID).Str("voter", voterID).Msg("stake refund after failed vote insert")
		}
		return nil, fmt.Errorf("store vote: %w", err)
	}

	e.logger.Info().
		Str("case", caseID).
		Str("voter", voterID).
		Str("choice", string(choice)).
		Str("stake", stake.String()).
		Msg("vote cast")
	return v, nil
}

// Resolve settles a case after its window closes. Safe to re-run: a
// resolution interrupted mid-payout picks up where it left off, and
// every credit carries a per-(case,voter) reference so nothing pays
// twice. A second call on a terminal case returns ErrAlreadyResolved.
func (e *Engine) Resolve(caseID string) (*Resolution, error) {
	lock := e.lockFor(caseID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.Get(caseID)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return nil, fmt.Errorf("%w: status %s", ErrAlreadyResolved, c.Status)
	}
	if e.now().Before(c.VerificationClosesAt) {
		return nil, fmt.Errorf("%w until %s", ErrWindowOpen, c.VerificationClosesAt.Format(time.RFC3339))
	}

	// Status gate: open -> resolving persists before any payout, so a
	// crash mid-settlement is visible and a racing resolver re-enters
	// through this same lock.
	if c.Status == StatusOpen {
		c.Status = StatusResolving
		if err := e.store.PutCase(c); err != nil {
			return nil, fmt.Errorf("mark resolving: %w", err)
		}
	}

	votes, err := e.store.Votes(caseID)
	if err != nil {
		return nil, err
	}
	if len(votes) == 0 {
		return e.resolveDisputed(c)
	}
	return e.resolveTally(c, votes)
}

// resolveDisputed handles the zero-vote case: full bounty refund.
func (e *Engine) resolveDisputed(c *Case) (*Resolution, error) {
	if _, err := e.ledger.Credit(c.SubmitterID, c.Bounty, "disputed case refund", "bounty-refund:"+c.ID); err != nil {
		return nil, fmt.Errorf("refund bounty: %w", err)
	}
	if err := e.finalize(c, StatusDisputed, 0); err != nil {
		return nil, err
	}
	e.logger.Info().Str("case", c.ID).Msg("case disputed, bounty refunded")
	return &Resolution{
		CaseID:     c.ID,
		Status:     StatusDisputed,
		BountyPaid: c.Bounty,
		Payouts:    map[string]types.Amount{c.SubmitterID: c.Bounty},
	}, nil
}

func (e *Engine) resolveTally(c *Case, votes []Vote) (*Resolution, error) {
	var validStake, invalidStake types.Amount
	for _, v := range votes {
		var err error
		if v.Choice == ChoiceValid {
			validStake, err = validStake.Add(v.Stake)
		} else {
			invalidStake, err = invalidStake.Add(v.Stake)
		}
		if err != nil {
			return nil, err
		}
	}

	// Ties go to valid, favoring the claim.
	winner := ChoiceValid
	winningStake, losingPool := validStake, invalidStake
	if invalidStake > validStake {
		winner = ChoiceInvalid
		winningStake, losingPool = invalidStake, validStake
	}

	fee := prorate(losingPool, e.cfg.FeeBps, 10000)
	winnerPool := losingPool - fee

	// Compute every share up front and prove conservation before any
	// money moves.
	shares := make(map[string]types.Amount, len(votes))
	var distributed types.Amount
	for _, v := range votes {
		if v.Choice != winner {
			continue
		}
		share := prorate(v.Stake, int64(winnerPool), int64(winningStake))
		shares[v.VoterID] = share
		distributed += share
	}
	// Integer floor division leaves dust; it goes to the platform so
	// the pool balances exactly.
	residual := winnerPool - distributed
	if residual < 0 || fee+distributed+residual != losingPool {
		return nil, fmt.Errorf("%w: case %s fee %d + shares %d + residual %d != pool %d",
			ErrConservation, c.ID, fee, distributed, residual, losingPool)
	}
	platformFee := fee + residual

	res := &Resolution{
		CaseID:       c.ID,
		Winner:       winner,
		ValidStake:   validStake,
		InvalidStake: invalidStake,
		LosingPool:   losingPool,
		WinnerPool:   winnerPool,
		PlatformFee:  platformFee,
		Payouts:      make(map[string]types.Amount, len(shares)),
	}

	// Winners get their stake back plus their share; losers forfeit.
	for i := range votes {
		v := &votes[i]
		if v.Choice == winner {
			payout := v.Stake + shares[v.VoterID]
			if _, err := e.ledger.Credit(v.VoterID, payout, "stake win", payoutRef(c.ID, v.VoterID)); err != nil {
				return nil, fmt.Errorf("credit winner %s: %w", v.VoterID, err)
			}
			v.PayoutStatus = PayoutWon
			v.Payout = payout
			res.Payouts[v.VoterID] = payout
		} else {
			v.PayoutStatus = PayoutLost
			v.Payout = 0
		}
		if err := e.store.PutVote(v); err != nil {
			return nil, fmt.Errorf("mark vote %s: %w", v.VoterID, err)
		}
	}

	if platformFee > 0 {
		if _, err := e.ledger.Credit(ledger.TreasuryUserID, platformFee, "platform fee", "fee:"+c.ID); err != nil {
			return nil, fmt.Errorf("credit platform fee: %w", err)
		}
	}

	// Bounty: back to the submitter on a verified claim, otherwise
	// split among the challengers who were right.
	status := StatusVerified
	if winner == ChoiceValid {
		if _, err := e.ledger.Credit(c.SubmitterID, c.Bounty, "verified case bounty", "bounty-payout:"+c.ID); err != nil {
			return nil, fmt.Errorf("pay bounty: %w", err)
		}
		res.BountyPaid = c.Bounty
	} else {
		status = StatusRejected
		paid, err := e.splitBounty(c, votes, invalidStake)
		if err != nil {
			return nil, err
		}
		res.BountyPaid = paid
	}

	if err := e.finalize(c, status, platformFee); err != nil {
		return nil, err
	}
	res.Status = status

	e.logger.Info().
		Str("case", c.ID).
		Str("status", string(status)).
		Str("winner", string(winner)).
		Str("fee", platformFee.String()).
		Int("winners", len(shares)).
		Msg("case resolved")
	return res, nil
}

// splitBounty distributes a rejected case's bounty among the invalid
// voters pro-rata by stake, residual to the treasury.
func (e *Engine) splitBounty(c *Case, votes []Vote, invalidStake types.Amount) (types.Amount, error) {
	var paid types.Amount
	for _, v := range votes {
		if v.Choice != ChoiceInvalid {
			continue
		}
		share := prorate(v.Stake, int64(c.Bounty), int64(invalidStake))
		if share == 0 {
			continue
		}
		if _, err := e.ledger.Credit(v.VoterID, share, "rejected case bounty share", "bounty-share:"+c.ID+":"+v.VoterID); err != nil {
			return 0, fmt.Errorf("credit bounty share %s: %w", v.VoterID, err)
		}
		paid += share
	}
	if dust := c.Bounty - paid; dust > 0 {
		if _, err := e.ledger.Credit(ledger.TreasuryUserID, dust, "bounty split residual", "bounty-residual:"+c.ID); err != nil {
			return 0, fmt.Errorf("credit bounty residual: %w", err)
		}
	}
	return paid, nil
}

func (e *Engine) finalize(c *Case, status Status, fee types.Amount) error {
	now := e.now().UTC()
	c.Status = status
	c.ResolvedAt = &now
	c.FeeCollected = fee
	if err := e.store.PutCase(c); err != nil {
		return fmt.Errorf("finalize case: %w", err)
	}
	return nil
}

// Pending returns cases whose window has closed but that have not
// reached a terminal state, including ones stuck in resolving.
func (e *Engine) Pending(now time.Time) ([]Case, error) {
	var out []Case
	err := e.store.ForEachCase(func(c *Case) error {
		if !c.Status.Terminal() && now.After(c.VerificationClosesAt) {
			out = append(out, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Case{}
	}
	return out, nil
}

// List returns all cases, optionally filtered by status.
func (e *Engine) List(status Status) ([]Case, error) {
	var out []Case
	err := e.store.ForEachCase(func(c *Case) error {
		if status == "" || c.Status == status {
			out = append(out, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Case{}
	}
	return out, nil
}

func payoutRef(caseID, voterID string) string {
	return "payout:" + caseID + ":" + voterID
}

// prorate computes amount*num/den with 256-bit intermediates so large
// stake products cannot overflow int64.
func prorate(amount types.Amount, num, den int64) types.Amount {
	if den == 0 {
		return 0
	}
	r := sdkmath.NewInt(int64(amount)).MulRaw(num).QuoRaw(den)
	return types.Amount(r.Int64())
}
