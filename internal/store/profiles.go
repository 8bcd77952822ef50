// profiles.go — public profile rows.
package store

import (
	"context"
	"errors"
	"fmt"
)

const profileSelectCols = `id, COALESCE(username, ''), COALESCE(avatar_url, ''), COALESCE(role, 'user')`

func (s *Store) Profile(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx, `SELECT `+profileSelectCols+` FROM profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.Username, &p.AvatarURL, &p.Role)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// ProfileRole returns "" when the user has no profile row yet.
func (s *Store) ProfileRole(ctx context.Context, id string) (string, error) {
	p, err := s.Profile(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("profile role: %w", err)
	}
	return p.Role, nil
}

// EnsureProfile inserts p unless a row with its id already exists, and
// returns whatever row is stored afterwards. Existing rows keep their role.
func (s *Store) EnsureProfile(ctx context.Context, p Profile) (*Profile, error) {
	if p.Role == "" {
		p.Role = "user"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, username, avatar_url, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Username, p.AvatarURL, p.Role)
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", mapErr(err))
	}
	return s.Profile(ctx, p.ID)
}

// UpdateProfile changes username and avatar. The role is never writable here.
func (s *Store) UpdateProfile(ctx context.Context, id, username, avatarURL string) (*Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx, `
		UPDATE profiles SET username = $2, avatar_url = $3
		WHERE id = $1
		RETURNING `+profileSelectCols, id, username, avatarURL).
		Scan(&p.ID, &p.Username, &p.AvatarURL, &p.Role)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", mapErr(err))
	}
	return &p, nil
}
