package devserver

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
	applog "github.com/trashtalkapp/trashtalk-client/internal/logger"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is the completed_at wire format.
const timeLayout = "2006-01-02 15:04:05"

// DB is the SQLite persistence behind the dev server.
//
// The pool holds a single connection: an in-memory database exists only
// inside its connection, and one writer is all SQLite allows anyway. Queries
// therefore never nest while rows are open.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// OpenDB opens (or creates) the database at path. An empty path keeps the
// data in memory for the life of the process.
func OpenDB(path string, logger *slog.Logger) (*DB, error) {
	dsn := ":memory:"
	if path != "" {
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	if path != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &DB{db: db, logger: applog.OrDiscard(logger), now: time.Now}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) timestamp() string {
	return d.now().UTC().Format(timeLayout)
}

// CreateLeague inserts a league and makes its creator the first member.
func (d *DB) CreateLeague(ctx context.Context, creatorUID, name, description string) (domain.League, error) {
	league := domain.League{ID: uuid.NewString(), Name: name, Description: description}
	now := d.timestamp()

	err := d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO leagues (id, name, description, creator_uid, created_at) VALUES (?, ?, ?, ?, ?)`,
			league.ID, name, description, creatorUID, now); err != nil {
			return fmt.Errorf("insert league: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO members (league_id, user_uid, joined_at) VALUES (?, ?, ?)`,
			league.ID, creatorUID, now); err != nil {
			return fmt.Errorf("insert creator membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.League{}, err
	}
	return league, nil
}

// League returns one league.
func (d *DB) League(ctx context.Context, id string) (domain.League, error) {
	var l domain.League
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM leagues WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.Description)
	if err == sql.ErrNoRows {
		return domain.League{}, clienterrors.NotFound("League not found")
	}
	if err != nil {
		return domain.League{}, fmt.Errorf("get league: %w", err)
	}
	return l, nil
}

// Leagues returns every league in creation order.
func (d *DB) Leagues(ctx context.Context) ([]domain.League, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, name, description FROM leagues ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list leagues: %w", err)
	}
	defer rows.Close()

	var leagues []domain.League
	for rows.Next() {
		var l domain.League
		if err := rows.Scan(&l.ID, &l.Name, &l.Description); err != nil {
			return nil, fmt.Errorf("scan league: %w", err)
		}
		leagues = append(leagues, l)
	}
	return leagues, rows.Err()
}

// AddMember adds uid to a league. Joining twice is not an error.
func (d *DB) AddMember(ctx context.Context, leagueID, uid string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO members (league_id, user_uid, joined_at) VALUES (?, ?, ?)`,
		leagueID, uid, d.timestamp())
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// RemoveMember reports whether uid was a member.
func (d *DB) RemoveMember(ctx context.Context, leagueID, uid string) (bool, error) {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM members WHERE league_id = ? AND user_uid = ?`, leagueID, uid)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	return n > 0, nil
}

// IsMember reports whether uid belongs to the league.
func (d *DB) IsMember(ctx context.Context, leagueID, uid string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx,
		`SELECT 1 FROM members WHERE league_id = ? AND user_uid = ?`, leagueID, uid,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

// Leaderboard totals every member's completions, highest first. Members with
// no completions are listed with zero points.
func (d *DB) Leaderboard(ctx context.Context, leagueID string) ([]domain.LeaderboardEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT m.user_uid, COALESCE(SUM(c.points_earned), 0), COUNT(c.id)
		FROM members m
		LEFT JOIN completions c ON c.league_id = m.league_id AND c.user_uid = m.user_uid
		WHERE m.league_id = ?
		GROUP BY m.user_uid
		ORDER BY 2 DESC, m.user_uid`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []domain.LeaderboardEntry{}
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserUID, &e.TotalPoints, &e.CompletedCount); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Chores lists a league's catalog in creation order.
func (d *DB) Chores(ctx context.Context, leagueID string) ([]domain.Chore, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, description, points, creator_uid
		FROM chores WHERE league_id = ? ORDER BY rowid`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	chores := []domain.Chore{}
	for rows.Next() {
		var c domain.Chore
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Points, &c.CreatorUID); err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, c)
	}
	return chores, rows.Err()
}

// Chore returns a chore and the league it belongs to.
func (d *DB) Chore(ctx context.Context, id string) (domain.Chore, string, error) {
	var (
		c        domain.Chore
		leagueID string
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, league_id, name, description, points, creator_uid
		FROM chores WHERE id = ?`, id,
	).Scan(&c.ID, &leagueID, &c.Name, &c.Description, &c.Points, &c.CreatorUID)
	if err == sql.ErrNoRows {
		return domain.Chore{}, "", clienterrors.NotFound("Chore not found")
	}
	if err != nil {
		return domain.Chore{}, "", fmt.Errorf("get chore: %w", err)
	}
	return c, leagueID, nil
}

// CreateChore adds a chore and returns its id.
func (d *DB) CreateChore(ctx context.Context, leagueID, creatorUID string, c domain.Chore) (string, error) {
	id := uuid.NewString()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO chores (id, league_id, name, description, points, creator_uid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, leagueID, c.Name, c.Description, c.Points, creatorUID, d.timestamp())
	if err != nil {
		return "", fmt.Errorf("insert chore: %w", err)
	}
	return id, nil
}

// UpdateChore writes the non-nil fields of patch.
func (d *DB) UpdateChore(ctx context.Context, id string, patch domain.ChorePatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Points != nil {
		sets = append(sets, "points = ?")
		args = append(args, *patch.Points)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	//#nosec G202 -- column list is built from fixed strings
	query := "UPDATE chores SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update chore: %w", err)
	}
	return nil
}

// DeleteChore removes a chore. Past completions of it stay.
func (d *DB) DeleteChore(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM chores WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// Proof is a stored proof image.
type Proof struct {
	LeagueID    string
	ContentType string
	Data        []byte
}

// newCompletion is one completion ready to be recorded.
type newCompletion struct {
	LeagueID string
	UserUID  string
	Chore    domain.Chore
	Comments string
	Proof    *domain.Attachment
}

// InsertCompletion records a completion with the chore's current name and
// points, storing the proof image when present. It returns the completion id.
func (d *DB) InsertCompletion(ctx context.Context, nc newCompletion) (string, error) {
	id := uuid.NewString()

	var comments, proofName sql.NullString
	if nc.Comments != "" {
		comments = sql.NullString{String: nc.Comments, Valid: true}
	}
	if nc.Proof != nil {
		proofName = sql.NullString{String: proofFilename(id, nc.Proof.Filename), Valid: true}
	}

	err := d.inTx(ctx, func(tx *sql.Tx) error {
		if nc.Proof != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO proofs (filename, league_id, content_type, data) VALUES (?, ?, ?, ?)`,
				proofName.String, nc.LeagueID, nc.Proof.ContentType, nc.Proof.Data); err != nil {
				return fmt.Errorf("insert proof: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO completions
				(id, league_id, chore_id, chore_name, user_uid, points_earned, comments, proof_filename, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, nc.LeagueID, nc.Chore.ID, nc.Chore.Name, nc.UserUID, nc.Chore.Points,
			comments, proofName, d.timestamp()); err != nil {
			return fmt.Errorf("insert completion: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Completions lists uid's completions in a league, newest first.
func (d *DB) Completions(ctx context.Context, leagueID, uid string) ([]domain.Completion, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, chore_id, chore_name, points_earned, completed_at, comments, proof_filename
		FROM completions
		WHERE league_id = ? AND user_uid = ?
		ORDER BY completed_at DESC, rowid DESC`, leagueID, uid)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	completions := []domain.Completion{}
	for rows.Next() {
		var (
			c                   domain.Completion
			comments, proofName sql.NullString
		)
		if err := rows.Scan(&c.CompletionID, &c.ChoreID, &c.ChoreName, &c.PointsEarned,
			&c.CompletedAt, &comments, &proofName); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		if comments.Valid {
			c.Comments = &comments.String
		}
		if proofName.Valid {
			c.HasProof = true
			c.ProofFilename = &proofName.String
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// Proof returns a stored proof image.
func (d *DB) Proof(ctx context.Context, filename string) (Proof, error) {
	var p Proof
	err := d.db.QueryRowContext(ctx,
		`SELECT league_id, content_type, data FROM proofs WHERE filename = ?`, filename,
	).Scan(&p.LeagueID, &p.ContentType, &p.Data)
	if err == sql.ErrNoRows {
		return Proof{}, clienterrors.NotFound("Image not found")
	}
	if err != nil {
		return Proof{}, fmt.Errorf("get proof: %w", err)
	}
	return p, nil
}

func (d *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}

// proofFilename names a stored proof after its completion, keeping the
// uploaded extension.
func proofFilename(completionID, uploaded string) string {
	ext := ".jpg"
	if i := strings.LastIndexByte(uploaded, '.'); i >= 0 && i < len(uploaded)-1 {
		ext = strings.ToLower(uploaded[i:])
	}
	return "proof_" + completionID + ext
}
