package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrProfileNotFound = errors.New("profile not found")

// Profile is a user of the service. Role is "teacher" or "student".
type Profile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	PasswordHash string `json:"-"`
}

type ProfileStore interface {
	// FindProfile looks a profile up by id or email.
	FindProfile(ctx context.Context, login string) (Profile, error)
	UpsertProfile(ctx context.Context, p Profile) error
}

type SQLProfiles struct{ db *sql.DB }

func NewSQLProfiles(db *sql.DB) *SQLProfiles { return &SQLProfiles{db: db} }

func (s *SQLProfiles) FindProfile(ctx context.Context, login string) (Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, role, avatar_url, password_hash
		 FROM profiles WHERE id=$1 OR email=$1`, login,
	).Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.AvatarURL, &p.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	return p, err
}

func (s *SQLProfiles) UpsertProfile(ctx context.Context, p Profile) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO profiles (id, name, email, role, avatar_url, password_hash)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  name=excluded.name, email=excluded.email, role=excluded.role,
  avatar_url=excluded.avatar_url, password_hash=excluded.password_hash`,
		p.ID, p.Name, strings.ToLower(p.Email), p.Role, p.AvatarURL, p.PasswordHash)
	return err
}

// MemoryProfiles backs the memory store driver and tests.
type MemoryProfiles struct {
	mu   sync.RWMutex
	byID map[string]Profile
}

func NewMemoryProfiles() *MemoryProfiles { return &MemoryProfiles{byID: map[string]Profile{}} }

func (m *MemoryProfiles) FindProfile(_ context.Context, login string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.byID[login]; ok {
		return p, nil
	}
	for _, p := range m.byID {
		if p.Email == strings.ToLower(login) {
			return p, nil
		}
	}
	return Profile{}, ErrProfileNotFound
}

func (m *MemoryProfiles) UpsertProfile(_ context.Context, p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Email = strings.ToLower(p.Email)
	m.byID[p.ID] = p
	return nil
}

// HashPassword is bcrypt at the default cost.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// SeedDevProfiles creates a teacher and a student whose password equals
// their id. Offline/dev only.
func SeedDevProfiles(ctx context.Context, profiles ProfileStore) error {
	seeds := []Profile{
		{ID: "teacher", Name: "Dev Teacher", Email: "teacher@examhub.local", Role: "teacher"},
		{ID: "student", Name: "Dev Student", Email: "student@examhub.local", Role: "student"},
	}
	for _, p := range seeds {
		if _, err := profiles.FindProfile(ctx, p.ID); err == nil {
			continue
		}
		h, err := HashPassword(p.ID)
		if err != nil {
			return err
		}
		p.PasswordHash = h
		if err := profiles.UpsertProfile(ctx, p); err != nil {
			return err
		}
		log.Printf("[Auth] seeded dev profile %s (%s)", p.ID, p.Role)
	}
	return nil
}
