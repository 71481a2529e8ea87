package devserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
	"github.com/trashtalkapp/trashtalk-client/internal/prooftoken"
)

// LeagueService enforces league rules on top of DB.
//
// Membership-gated mutations are refused with REJECTED errors, which the
// handlers turn into success=false acknowledgements. Membership-gated reads
// fail with FORBIDDEN.
type LeagueService struct {
	db     *DB
	index  *LeagueIndex
	logger *slog.Logger
}

// NewLeagueService creates a service and indexes the stored leagues.
func NewLeagueService(ctx context.Context, db *DB, index *LeagueIndex, logger *slog.Logger) (*LeagueService, error) {
	leagues, err := db.Leagues(ctx)
	if err != nil {
		return nil, err
	}
	if err := index.IndexAll(leagues); err != nil {
		return nil, err
	}
	logger.Info("league index ready", slog.Int("leagues", len(leagues)))
	return &LeagueService{db: db, index: index, logger: logger}, nil
}

// CreateLeague creates a league owned by uid and returns its id.
func (s *LeagueService) CreateLeague(ctx context.Context, uid, name, description string) (string, error) {
	league, err := s.db.CreateLeague(ctx, uid, name, description)
	if err != nil {
		return "", err
	}
	if err := s.index.Index(league); err != nil {
		// The league exists; it is only missing from search until restart.
		s.logger.Warn("failed to index league", slog.String("league_id", league.ID), slog.String("error", err.Error()))
	}
	return league.ID, nil
}

// SearchLeagues returns leagues ranked by relevance to q.
func (s *LeagueService) SearchLeagues(ctx context.Context, q string) ([]domain.League, error) {
	ids, err := s.index.Search(q)
	if err != nil {
		return nil, err
	}

	leagues := make([]domain.League, 0, len(ids))
	for _, id := range ids {
		l, err := s.db.League(ctx, id)
		if clienterrors.Is(err, clienterrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		leagues = append(leagues, l)
	}
	return leagues, nil
}

// JoinLeague adds uid to a league.
func (s *LeagueService) JoinLeague(ctx context.Context, uid, leagueID string) error {
	if _, err := s.db.League(ctx, leagueID); err != nil {
		if clienterrors.Is(err, clienterrors.ErrNotFound) {
			return clienterrors.Rejected("League not found")
		}
		return err
	}
	return s.db.AddMember(ctx, leagueID, uid)
}

// LeaveLeague removes uid from a league.
func (s *LeagueService) LeaveLeague(ctx context.Context, uid, leagueID string) error {
	removed, err := s.db.RemoveMember(ctx, leagueID, uid)
	if err != nil {
		return err
	}
	if !removed {
		return clienterrors.Rejected("Not a member of this league")
	}
	return nil
}

// Leaderboard returns the league's standings for a member.
func (s *LeagueService) Leaderboard(ctx context.Context, leagueID, uid string) ([]domain.LeaderboardEntry, error) {
	if err := s.requireReader(ctx, leagueID, uid); err != nil {
		return nil, err
	}
	return s.db.Leaderboard(ctx, leagueID)
}

// Chores returns the league's catalog for a member.
func (s *LeagueService) Chores(ctx context.Context, leagueID, uid string) ([]domain.Chore, error) {
	if err := s.requireReader(ctx, leagueID, uid); err != nil {
		return nil, err
	}
	return s.db.Chores(ctx, leagueID)
}

// CreateChore adds a chore to the catalog of a league uid belongs to.
func (s *LeagueService) CreateChore(ctx context.Context, uid, leagueID string, c domain.Chore) (string, error) {
	if err := s.requireMember(ctx, leagueID, uid); err != nil {
		return "", err
	}
	return s.db.CreateChore(ctx, leagueID, uid, c)
}

// EditChore lets any member of the chore's league change it.
func (s *LeagueService) EditChore(ctx context.Context, uid, choreID string, patch domain.ChorePatch) error {
	_, leagueID, err := s.choreForWrite(ctx, choreID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, leagueID, uid); err != nil {
		return err
	}
	return s.db.UpdateChore(ctx, choreID, patch)
}

// DeleteChore lets only the chore's creator remove it.
func (s *LeagueService) DeleteChore(ctx context.Context, uid, choreID string) error {
	chore, _, err := s.choreForWrite(ctx, choreID)
	if err != nil {
		return err
	}
	if chore.CreatorUID != uid {
		return clienterrors.Rejected("Only the creator can delete this chore")
	}
	return s.db.DeleteChore(ctx, choreID)
}

// CompleteChore records a completion worth the chore's current points.
func (s *LeagueService) CompleteChore(ctx context.Context, uid, leagueID, choreID, comments string, proof *domain.Attachment) (string, error) {
	if err := s.requireMember(ctx, leagueID, uid); err != nil {
		return "", err
	}
	chore, choreLeague, err := s.choreForWrite(ctx, choreID)
	if err != nil {
		return "", err
	}
	if choreLeague != leagueID {
		return "", clienterrors.Rejected("Chore not in league")
	}
	return s.db.InsertCompletion(ctx, newCompletion{
		LeagueID: leagueID,
		UserUID:  uid,
		Chore:    chore,
		Comments: comments,
		Proof:    proof,
	})
}

// Completions returns target's history to a member of the same league.
func (s *LeagueService) Completions(ctx context.Context, leagueID, targetUID, requesterUID string) ([]domain.Completion, error) {
	if err := s.requireReader(ctx, leagueID, requesterUID); err != nil {
		return nil, err
	}
	return s.db.Completions(ctx, leagueID, targetUID)
}

// ProofImage returns a proof image when token matches the image's league and
// the requester, and the requester is a member of that league.
func (s *LeagueService) ProofImage(ctx context.Context, filename, requesterUID, token string) (Proof, error) {
	proof, err := s.db.Proof(ctx, filename)
	if err != nil {
		return Proof{}, err
	}
	if !prooftoken.Verify(proof.LeagueID, requesterUID, token) {
		return Proof{}, clienterrors.Forbidden("Invalid token")
	}
	if err := s.requireReader(ctx, proof.LeagueID, requesterUID); err != nil {
		return Proof{}, err
	}
	return proof, nil
}

func (s *LeagueService) choreForWrite(ctx context.Context, choreID string) (domain.Chore, string, error) {
	chore, leagueID, err := s.db.Chore(ctx, choreID)
	if clienterrors.Is(err, clienterrors.ErrNotFound) {
		return domain.Chore{}, "", clienterrors.Rejected("Chore not found")
	}
	return chore, leagueID, err
}

func (s *LeagueService) requireMember(ctx context.Context, leagueID, uid string) error {
	ok, err := s.db.IsMember(ctx, leagueID, uid)
	if err != nil {
		return err
	}
	if !ok {
		return clienterrors.Rejected("Not a member of this league")
	}
	return nil
}

func (s *LeagueService) requireReader(ctx context.Context, leagueID, uid string) error {
	ok, err := s.db.IsMember(ctx, leagueID, uid)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return clienterrors.Forbidden("Not a member of this league")
	}
	return nil
}
