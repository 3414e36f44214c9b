package sqlstore

import (
	"context"
	"fmt"

	"github.com/sakif/linkboard/internal/model"
)

// ListSections returns the user's sections in display order.
// The id tiebreak keeps the order stable when ranks collide.
func (t *Tx) ListSections(ctx context.Context, userID int64) ([]model.Section, error) {
	rows, err := t.query(ctx,
		`SELECT id, name, user_id, rank FROM sections
		 WHERE user_id = ?
		 ORDER BY rank, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing sections of user %d: %w", userID, err)
	}
	defer rows.Close()

	// Initialise as empty slice (not nil) so it encodes as [] in JSON.
	sections := []model.Section{}
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.Name, &s.UserID, &s.Rank); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning section: %w", err)
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating sections: %w", err)
	}

	return sections, nil
}

// CreateSection inserts a section and fills section.ID.
func (t *Tx) CreateSection(ctx context.Context, section *model.Section) error {
	err := t.queryRow(ctx,
		`INSERT INTO sections (name, user_id, rank) VALUES (?, ?, ?) RETURNING id`,
		section.Name, section.UserID, section.Rank,
	).Scan(&section.ID)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting section: %w", err)
	}
	return nil
}

// UpdateSection rewrites name and rank. The owner never changes.
func (t *Tx) UpdateSection(ctx context.Context, section *model.Section) error {
	result, err := t.exec(ctx,
		`UPDATE sections SET name = ?, rank = ? WHERE id = ?`,
		section.Name, section.Rank, section.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating section %d: %w", section.ID, err)
	}
	return requireRow(result, "section", section.ID)
}

// DeleteSection removes the section row. Callers delete its links first;
// the foreign key cascade covers anything they missed.
func (t *Tx) DeleteSection(ctx context.Context, id int64) error {
	result, err := t.exec(ctx, `DELETE FROM sections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting section %d: %w", id, err)
	}
	return requireRow(result, "section", id)
}

func (t *Tx) SetSectionRank(ctx context.Context, id int64, rank int) error {
	if _, err := t.exec(ctx, `UPDATE sections SET rank = ? WHERE id = ?`, rank, id); err != nil {
		return fmt.Errorf("sqlstore: ranking section %d: %w", id, err)
	}
	return nil
}
