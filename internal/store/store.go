package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var ErrEmailTaken = errors.New("email already registered")

// Grievance lifecycle states.
var GrievanceStatuses = []string{"Pending", "Assigned", "In Progress", "Resolved", "Closed"}

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("missing database dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	AuthProvider string    `json:"authProvider"`
	Avatar       string    `json:"avatar,omitempty"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Grievance struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	CitizenID      string    `json:"citizenId"`
	AssignedTo     string    `json:"assignedTo,omitempty"`
	Attachment     string    `json:"attachment,omitempty"`
	Response       string    `json:"response,omitempty"`
	SentimentScore float64   `json:"sentimentScore"`
	AISuggestions  []string  `json:"aiSuggestions"`
	AICategory     string    `json:"aiCategory,omitempty"`
	AIPriority     string    `json:"aiPriority,omitempty"`
	AIResponse     string    `json:"aiResponse,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (s *Store) CreateUser(ctx context.Context, user User) (string, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Role == "" {
		user.Role = "citizen"
	}
	if user.AuthProvider == "" {
		user.AuthProvider = "local"
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, user.Email).Scan(&exists); err != nil {
		return "", err
	}
	if exists {
		return "", ErrEmailTaken
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, name, email, phone, password_hash, role, auth_provider, avatar, verified)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		user.ID, user.Name, user.Email, user.Phone, user.PasswordHash, user.Role, user.AuthProvider, user.Avatar, user.Verified)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, email, phone, password_hash, role, auth_provider, avatar, verified, created_at
		FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, email, phone, password_hash, role, auth_provider, avatar, verified, created_at
		FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) ListUsersByRole(ctx context.Context, role string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, phone, password_hash, role, auth_provider, avatar, verified, created_at
		FROM users WHERE role = $1 ORDER BY created_at DESC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.AuthProvider, &u.Avatar, &u.Verified, &u.CreatedAt)
	return u, err
}

func (s *Store) CreateGrievance(ctx context.Context, g Grievance) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Category == "" {
		g.Category = "General"
	}
	if g.Status == "" {
		g.Status = "Pending"
	}
	if g.Priority == "" {
		g.Priority = "Low"
	}
	suggestionsJSON, _ := json.Marshal(g.AISuggestions)
	_, err := s.db.ExecContext(ctx, `INSERT INTO grievances
		(id, title, description, category, status, priority, citizen_id, assigned_to, attachment, response, sentiment_score, ai_suggestions, ai_category, ai_priority, ai_response)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,'')::uuid,$9,$10,$11,$12,$13,$14,$15)`,
		g.ID, g.Title, g.Description, g.Category, g.Status, g.Priority, g.CitizenID, g.AssignedTo, g.Attachment, g.Response, g.SentimentScore, suggestionsJSON, g.AICategory, g.AIPriority, g.AIResponse)
	if err != nil {
		return "", err
	}
	return g.ID, nil
}

const grievanceColumns = `id, title, description, category, status, priority, citizen_id, COALESCE(assigned_to::text, ''), attachment, response, sentiment_score, ai_suggestions, ai_category, ai_priority, ai_response, created_at, updated_at`

func (s *Store) GetGrievance(ctx context.Context, id string) (Grievance, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+grievanceColumns+` FROM grievances WHERE id = $1`, id)
	return scanGrievance(row)
}

func (s *Store) ListGrievancesByCitizen(ctx context.Context, citizenID string) ([]Grievance, error) {
	return s.listGrievances(ctx, `SELECT `+grievanceColumns+` FROM grievances WHERE citizen_id = $1 ORDER BY created_at DESC`, citizenID)
}

func (s *Store) ListAllGrievances(ctx context.Context) ([]Grievance, error) {
	return s.listGrievances(ctx, `SELECT `+grievanceColumns+` FROM grievances ORDER BY created_at DESC`)
}

func (s *Store) listGrievances(ctx context.Context, query string, args ...any) ([]Grievance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grievances []Grievance
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, err
		}
		grievances = append(grievances, g)
	}
	return grievances, rows.Err()
}

func scanGrievance(row rowScanner) (Grievance, error) {
	var g Grievance
	var suggestionsJSON []byte
	err := row.Scan(&g.ID, &g.Title, &g.Description, &g.Category, &g.Status, &g.Priority, &g.CitizenID, &g.AssignedTo,
		&g.Attachment, &g.Response, &g.SentimentScore, &suggestionsJSON, &g.AICategory, &g.AIPriority, &g.AIResponse, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return g, err
	}
	_ = json.Unmarshal(suggestionsJSON, &g.AISuggestions)
	return g, nil
}

// AssignGrievance hands a grievance to an officer and moves it to Assigned.
func (s *Store) AssignGrievance(ctx context.Context, grievanceID, officerID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE grievances SET assigned_to = $2, status = 'Assigned', updated_at = now() WHERE id = $1`, grievanceID, officerID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateGrievanceProgress records an officer's status change and reply.
// Empty arguments leave the corresponding column unchanged.
func (s *Store) UpdateGrievanceProgress(ctx context.Context, grievanceID, status, response string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE grievances SET
		status = COALESCE(NULLIF($2, ''), status),
		response = COALESCE(NULLIF($3, ''), response),
		updated_at = now()
		WHERE id = $1`, grievanceID, status, response)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type Stats struct {
	Grievances struct {
		Total      int            `json:"total"`
		ByStatus   map[string]int `json:"byStatus"`
		ByCategory map[string]int `json:"byCategory"`
		ByPriority map[string]int `json:"byPriority"`
		Recent     int            `json:"recent"`
	} `json:"grievances"`
	Users struct {
		Total  int            `json:"total"`
		ByRole map[string]int `json:"byRole"`
		Recent int            `json:"recent"`
	} `json:"users"`
	Sentiment struct {
		Average float64 `json:"avgSentiment"`
		Total   int     `json:"total"`
	} `json:"sentiment"`
}

// Stats aggregates portal-wide grievance and user counts for the admin view.
// Recent counts cover the trailing 30 days.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	since := time.Now().UTC().Add(-30 * 24 * time.Hour)

	var err error
	if stats.Grievances.ByStatus, stats.Grievances.Total, err = s.countGrouped(ctx, `SELECT status, COUNT(*) FROM grievances GROUP BY status`); err != nil {
		return stats, err
	}
	if stats.Grievances.ByCategory, _, err = s.countGrouped(ctx, `SELECT category, COUNT(*) FROM grievances GROUP BY category`); err != nil {
		return stats, err
	}
	if stats.Grievances.ByPriority, _, err = s.countGrouped(ctx, `SELECT priority, COUNT(*) FROM grievances GROUP BY priority`); err != nil {
		return stats, err
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grievances WHERE created_at >= $1`, since).Scan(&stats.Grievances.Recent); err != nil {
		return stats, err
	}
	if stats.Users.ByRole, stats.Users.Total, err = s.countGrouped(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`); err != nil {
		return stats, err
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE created_at >= $1`, since).Scan(&stats.Users.Recent); err != nil {
		return stats, err
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COALESCE(AVG(sentiment_score), 0), COUNT(*) FROM grievances`).Scan(&stats.Sentiment.Average, &stats.Sentiment.Total); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Store) countGrouped(ctx context.Context, query string) (map[string]int, int, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	total := 0
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, 0, err
		}
		counts[key] = count
		total += count
	}
	return counts, total, rows.Err()
}
