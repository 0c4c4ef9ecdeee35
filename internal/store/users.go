package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carehome-go/internal/models"
)

const userColumns = `id, username, full_name, password_hash, role, totp_secret, totp_enabled, last_password_change, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	var totpSecret sql.NullString
	var lastPasswordChange sql.NullTime

	if err := row.Scan(&user.ID, &user.Username, &user.FullName, &user.PasswordHash, &user.Role,
		&totpSecret, &user.TOTPEnabled, &lastPasswordChange, &user.CreatedAt); err != nil {
		return models.User{}, err
	}
	user.TOTPSecret = totpSecret.String
	if lastPasswordChange.Valid {
		user.LastPasswordChange = lastPasswordChange.Time
	}
	return user, nil
}

// User methods

func (s *PostgresStore) CreateUser(ctx context.Context, username, fullName, password, role string) (models.User, error) {
	passwordHash, err := models.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, full_name, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING `+userColumns,
		username, fullName, passwordHash, role,
	)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int) (models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return user, err
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return user, err
}

func (s *PostgresStore) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id int, username, fullName, role string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = $1, full_name = $2, role = $3 WHERE id = $4`,
		username, fullName, role, id,
	)
	if err != nil {
		return err
	}
	return expectAffected(result, "user", id)
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result, "user", id)
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID int, newPasswordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, last_password_change = NOW() WHERE id = $2`,
		newPasswordHash, userID,
	)
	return err
}

// 2FA methods

func (s *PostgresStore) UpdateUser2FA(ctx context.Context, userID int, totpSecret string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = $1, totp_enabled = $2 WHERE id = $3`,
		totpSecret, enabled, userID,
	)
	return err
}

func (s *PostgresStore) Disable2FA(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = NULL, totp_enabled = FALSE WHERE id = $1`,
		userID,
	)
	return err
}

// Team methods

func (s *PostgresStore) CreateTeam(ctx context.Context, organizationID, name string) (models.Team, error) {
	var team models.Team
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO teams (organization_id, name, created_at)
		 VALUES ($1, $2, NOW())
		 RETURNING id, organization_id, name, created_at`,
		organizationID, name,
	).Scan(&team.ID, &team.OrganizationID, &team.Name, &team.CreatedAt)
	return team, err
}

func (s *PostgresStore) GetTeams(ctx context.Context) ([]models.Team, error) {
	return s.queryTeams(ctx,
		`SELECT id, organization_id, name, created_at FROM teams ORDER BY organization_id, name`)
}

func (s *PostgresStore) DeleteTeam(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result, "team", id)
}

func (s *PostgresStore) AssignTeamToUser(ctx context.Context, userID, teamID int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_team_assignments (user_id, team_id, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id, team_id) DO NOTHING`,
		userID, teamID,
	)
	return err
}

func (s *PostgresStore) RemoveTeamFromUser(ctx context.Context, userID, teamID int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_team_assignments WHERE user_id = $1 AND team_id = $2`,
		userID, teamID,
	)
	return err
}

func (s *PostgresStore) GetUserTeams(ctx context.Context, userID int) ([]models.Team, error) {
	return s.queryTeams(ctx,
		`SELECT t.id, t.organization_id, t.name, t.created_at
		 FROM teams t
		 INNER JOIN user_team_assignments uta ON t.id = uta.team_id
		 WHERE uta.user_id = $1
		 ORDER BY t.name`,
		userID,
	)
}

func (s *PostgresStore) queryTeams(ctx context.Context, query string, args ...any) ([]models.Team, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var team models.Team
		if err := rows.Scan(&team.ID, &team.OrganizationID, &team.Name, &team.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// Audit

func (s *PostgresStore) InsertAudit(ctx context.Context, actorID int, action, targetType string, targetID int, metadata string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (actor_id, action, target_type, target_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		actorID, action, targetType, nullInt(targetID), metadata,
	)
	return err
}

func (s *PostgresStore) ListAudit(ctx context.Context, limit int) ([]models.AuditLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor_id, action, target_type, COALESCE(target_id, 0), COALESCE(metadata, ''), created_at
		 FROM audit_logs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &l.TargetType, &l.TargetID, &l.Metadata, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Push subscriptions

func (s *PostgresStore) SavePushSubscription(ctx context.Context, userID int, endpoint, p256dh, auth string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (endpoint) DO UPDATE SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth`,
		userID, endpoint, p256dh, auth,
	)
	return err
}

func (s *PostgresStore) GetPushSubscriptions(ctx context.Context) ([]models.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, endpoint, p256dh, auth, created_at FROM push_subscriptions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.PushSubscription
	for rows.Next() {
		var sub models.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *PostgresStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}

func expectAffected(result sql.Result, what string, id any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return nil
}
