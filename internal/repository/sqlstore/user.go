package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/model"
)

// UpsertUser inserts or updates a user keyed by the provider subject.
//
// ON CONFLICT (sub) keeps the internal id stable across sign-ins while the
// profile fields follow whatever the provider says today. Board settings are
// left alone on update. RETURNING id gives us the id in both cases.
func (t *Tx) UpsertUser(ctx context.Context, user *model.User) error {
	err := t.queryRow(ctx,
		`INSERT INTO users (sub, email, given_name, family_name, picture, locale)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (sub) DO UPDATE SET
			email = excluded.email,
			given_name = excluded.given_name,
			family_name = excluded.family_name,
			picture = excluded.picture,
			locale = excluded.locale,
			updated_at = CURRENT_TIMESTAMP
		 RETURNING id`,
		user.Sub,
		user.Email,
		user.GivenName,
		user.FamilyName,
		user.Picture,
		user.Locale,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("sqlstore: upserting user (sub=%s): %w", user.Sub, err)
	}
	return nil
}

// GetUser retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (t *Tx) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := t.queryRow(ctx,
		`SELECT id, sub, email, given_name, family_name, picture, locale,
			board_background_type, board_background_value
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&u.ID,
		&u.Sub,
		&u.Email,
		&u.GivenName,
		&u.FamilyName,
		&u.Picture,
		&u.Locale,
		&u.Background.Type,
		&u.Background.Value,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlstore: getting user %d: %w", id, err)
	}

	return &u, nil
}

// UpdateBoardBackground stores the user's board background.
func (t *Tx) UpdateBoardBackground(ctx context.Context, userID int64, bg model.BoardBackground) error {
	result, err := t.exec(ctx,
		`UPDATE users SET board_background_type = ?, board_background_value = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		string(bg.Type), bg.Value, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating board background of user %d: %w", userID, err)
	}
	return requireRow(result, "user", userID)
}

// requireRow turns "0 rows affected" into apperror.ErrNotFound.
func requireRow(result sql.Result, resource string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
