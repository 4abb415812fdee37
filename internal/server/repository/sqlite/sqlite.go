package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ZenonWrites/BlockchainEvoting/internal/server/models"
	"github.com/ZenonWrites/BlockchainEvoting/internal/server/repository"
	shared "github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

type Repository struct {
	db *sql.DB
}

func New(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			phone_number TEXT UNIQUE NOT NULL,
			voter_id TEXT UNIQUE NOT NULL,
			adhaar_number TEXT UNIQUE NOT NULL,
			address TEXT NOT NULL,
			wallet_address TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS otps (
			phone_number TEXT PRIMARY KEY,
			code_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS verifications (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			document_type TEXT NOT NULL,
			document_number TEXT NOT NULL,
			full_name TEXT NOT NULL,
			date_of_birth TEXT NOT NULL,
			face_match INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			process_after TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users(id)
		);
		CREATE TABLE IF NOT EXISTS elections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS candidates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			election_id INTEGER NOT NULL,
			user_name TEXT NOT NULL,
			party_name TEXT NOT NULL,
			manifesto TEXT NOT NULL,
			FOREIGN KEY(election_id) REFERENCES elections(id)
		);
		CREATE TABLE IF NOT EXISTS votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			voter_id INTEGER NOT NULL,
			election_id INTEGER NOT NULL,
			candidate_id INTEGER NOT NULL,
			cast_at TIMESTAMP NOT NULL,
			UNIQUE(voter_id, election_id),
			FOREIGN KEY(voter_id) REFERENCES users(id),
			FOREIGN KEY(election_id) REFERENCES elections(id),
			FOREIGN KEY(candidate_id) REFERENCES candidates(id)
		);
	`); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

// Users

// CreateUser inserts a voter account. A unique-constraint violation is
// reported as ErrConflict with the offending column name so the API can
// answer with a field-level error.
func (r *Repository) CreateUser(ctx context.Context, form shared.RegistrationForm) (shared.UserProfile, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users(username,email,phone_number,voter_id,adhaar_number,address,wallet_address,created_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		form.Username, form.Email, form.PhoneNumber, form.VoterID, form.AdhaarNumber, form.Address, form.WalletAddress, now)
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			return shared.UserProfile{}, &repository.ConflictError{Field: field}
		}
		return shared.UserProfile{}, err
	}
	id, _ := res.LastInsertId()
	return shared.UserProfile{
		ID:            id,
		Username:      form.Username,
		Email:         form.Email,
		PhoneNumber:   form.PhoneNumber,
		VoterID:       form.VoterID,
		AdhaarNumber:  form.AdhaarNumber,
		Address:       form.Address,
		WalletAddress: form.WalletAddress,
	}, nil
}

func (r *Repository) GetUserByPhone(ctx context.Context, phone string) (shared.UserProfile, error) {
	return r.getUser(ctx, `WHERE phone_number = ?`, phone)
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (shared.UserProfile, error) {
	return r.getUser(ctx, `WHERE id = ?`, id)
}

func (r *Repository) getUser(ctx context.Context, where string, arg any) (shared.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.phone_number, u.voter_id, u.adhaar_number,
		       u.address, u.wallet_address,
		       EXISTS(SELECT 1 FROM verifications v WHERE v.user_id = u.id AND v.status = 'verified'),
		       EXISTS(SELECT 1 FROM votes vt WHERE vt.voter_id = u.id)
		FROM users u `+where, arg)
	var u shared.UserProfile
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PhoneNumber, &u.VoterID, &u.AdhaarNumber,
		&u.Address, &u.WalletAddress, &u.IsVerified, &u.AlreadyVoted)
	if errors.Is(err, sql.ErrNoRows) {
		return shared.UserProfile{}, repository.ErrNotFound
	}
	if err != nil {
		return shared.UserProfile{}, err
	}
	return u, nil
}

// OTPs

func (r *Repository) UpsertOTP(ctx context.Context, otp models.OTP) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otps(phone_number, code_hash, created_at) VALUES(?,?,?)
		ON CONFLICT(phone_number) DO UPDATE SET code_hash=excluded.code_hash, created_at=excluded.created_at`,
		otp.PhoneNumber, otp.CodeHash, otp.CreatedAt)
	return err
}

func (r *Repository) GetOTP(ctx context.Context, phone string) (models.OTP, error) {
	row := r.db.QueryRowContext(ctx, `SELECT phone_number, code_hash, created_at FROM otps WHERE phone_number = ?`, phone)
	var otp models.OTP
	err := row.Scan(&otp.PhoneNumber, &otp.CodeHash, &otp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OTP{}, repository.ErrNotFound
	}
	return otp, err
}

// Verifications

func (r *Repository) CreateVerification(ctx context.Context, v models.Verification) (models.Verification, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verifications(id,user_id,status,document_type,document_number,full_name,date_of_birth,face_match,outcome,process_after,created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		v.ID, v.UserID, string(v.Status), v.DocumentType, v.DocumentNumber, v.FullName, v.DateOfBirth,
		v.FaceMatch, string(v.Outcome), v.ProcessAfter, v.CreatedAt)
	if err != nil {
		return models.Verification{}, err
	}
	return v, nil
}

func (r *Repository) UpdateVerification(ctx context.Context, v models.Verification) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE verifications SET status=?, document_type=?, document_number=?, full_name=?, date_of_birth=?,
			face_match=?, outcome=?, process_after=? WHERE id=?`,
		string(v.Status), v.DocumentType, v.DocumentNumber, v.FullName, v.DateOfBirth,
		v.FaceMatch, string(v.Outcome), v.ProcessAfter, v.ID)
	return err
}

// LatestVerificationByUser returns the user's most recent attempt.
func (r *Repository) LatestVerificationByUser(ctx context.Context, userID int64) (models.Verification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id,user_id,status,document_type,document_number,full_name,date_of_birth,face_match,outcome,process_after,created_at
		FROM verifications WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, userID)
	var v models.Verification
	var status, outcome string
	err := row.Scan(&v.ID, &v.UserID, &status, &v.DocumentType, &v.DocumentNumber, &v.FullName, &v.DateOfBirth,
		&v.FaceMatch, &outcome, &v.ProcessAfter, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Verification{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Verification{}, err
	}
	v.Status = shared.VerificationStatus(status)
	v.Outcome = shared.VerificationStatus(outcome)
	return v, nil
}

// Elections

func (r *Repository) ListElections(ctx context.Context) ([]shared.Election, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, start_date, end_date FROM elections ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []shared.Election
	for rows.Next() {
		var e shared.Election
		if err := rows.Scan(&e.ID, &e.Name, &e.StartDate, &e.EndDate); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) GetElection(ctx context.Context, id int64) (shared.Election, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, start_date, end_date FROM elections WHERE id = ?`, id)
	var e shared.Election
	err := row.Scan(&e.ID, &e.Name, &e.StartDate, &e.EndDate)
	if errors.Is(err, sql.ErrNoRows) {
		return shared.Election{}, repository.ErrNotFound
	}
	return e, err
}

func (r *Repository) CreateElection(ctx context.Context, e shared.Election) (shared.Election, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO elections(name, start_date, end_date) VALUES(?,?,?)`,
		e.Name, e.StartDate, e.EndDate)
	if err != nil {
		return shared.Election{}, err
	}
	e.ID, _ = res.LastInsertId()
	return e, nil
}

// Candidates

func (r *Repository) ListCandidates(ctx context.Context, electionID int64) ([]shared.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, election_id, user_name, party_name, manifesto FROM candidates WHERE election_id = ? ORDER BY id`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []shared.Candidate
	for rows.Next() {
		var c shared.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.UserName, &c.PartyName, &c.Manifesto); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetCandidate(ctx context.Context, id int64) (shared.Candidate, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, election_id, user_name, party_name, manifesto FROM candidates WHERE id = ?`, id)
	var c shared.Candidate
	err := row.Scan(&c.ID, &c.ElectionID, &c.UserName, &c.PartyName, &c.Manifesto)
	if errors.Is(err, sql.ErrNoRows) {
		return shared.Candidate{}, repository.ErrNotFound
	}
	return c, err
}

func (r *Repository) CreateCandidate(ctx context.Context, c shared.Candidate) (shared.Candidate, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO candidates(election_id, user_name, party_name, manifesto) VALUES(?,?,?,?)`,
		c.ElectionID, c.UserName, c.PartyName, c.Manifesto)
	if err != nil {
		return shared.Candidate{}, err
	}
	c.ID, _ = res.LastInsertId()
	return c, nil
}

// Votes

// CreateVote records one vote; the UNIQUE(voter_id, election_id)
// constraint is the authoritative double-vote prevention.
func (r *Repository) CreateVote(ctx context.Context, voterID, electionID, candidateID int64) (shared.Vote, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO votes(voter_id, election_id, candidate_id, cast_at) VALUES(?,?,?,?)`,
		voterID, electionID, candidateID, now)
	if err != nil {
		if _, ok := uniqueViolationField(err); ok {
			return shared.Vote{}, repository.ErrDuplicateVote
		}
		return shared.Vote{}, err
	}
	id, _ := res.LastInsertId()
	return shared.Vote{ID: id, ElectionID: electionID, CandidateID: candidateID, VoterID: voterID, CastAt: now}, nil
}

// Results returns the winning candidate's name and the total vote count
// for an election. No votes means no result set.
func (r *Repository) Results(ctx context.Context, electionID int64) (winner string, totalVotes int64, err error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE election_id = ?`, electionID)
	if err = row.Scan(&totalVotes); err != nil {
		return "", 0, err
	}
	if totalVotes == 0 {
		return "", 0, repository.ErrNotFound
	}
	row = r.db.QueryRowContext(ctx, `
		SELECT c.user_name FROM votes v
		JOIN candidates c ON c.id = v.candidate_id
		WHERE v.election_id = ?
		GROUP BY v.candidate_id ORDER BY COUNT(*) DESC, c.id ASC LIMIT 1`, electionID)
	if err = row.Scan(&winner); err != nil {
		return "", 0, err
	}
	return winner, totalVotes, nil
}

// SeedDemoData populates one election with candidates so a fresh dev
// server is immediately usable. It is a no-op once any election exists.
func (r *Repository) SeedDemoData(ctx context.Context) error {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM elections`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	now := time.Now().UTC()
	election, err := r.CreateElection(ctx, shared.Election{
		Name:      "General Election 2026",
		StartDate: now.AddDate(0, 0, -1),
		EndDate:   now.AddDate(0, 1, 0),
	})
	if err != nil {
		return err
	}
	candidates := []shared.Candidate{
		{ElectionID: election.ID, UserName: "asha_rao", PartyName: "Progress Alliance", Manifesto: "Universal broadband and transit."},
		{ElectionID: election.ID, UserName: "vikram_mehta", PartyName: "Citizens Front", Manifesto: "Lower taxes, local jobs."},
	}
	for _, c := range candidates {
		if _, err := r.CreateCandidate(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// uniqueViolationField parses the driver's unique-constraint message,
// e.g. "UNIQUE constraint failed: users.phone_number".
func uniqueViolationField(err error) (string, bool) {
	msg := err.Error()
	const marker = "UNIQUE constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	rest := msg[i+len(marker):]
	if j := strings.IndexAny(rest, " ("); j >= 0 {
		rest = rest[:j]
	}
	if k := strings.LastIndex(rest, "."); k >= 0 {
		rest = rest[k+1:]
	}
	rest = strings.TrimRight(rest, ",")
	if rest == "" {
		return "", false
	}
	return rest, true
}
