package sqlstore

import (
	"context"
	"fmt"
)

// CountOwnedSections is 1 when the section exists and belongs to userID.
func (t *Tx) CountOwnedSections(ctx context.Context, id, userID int64) (int, error) {
	var n int
	err := t.queryRow(ctx,
		`SELECT COUNT(*) FROM sections WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: counting owned section %d: %w", id, err)
	}
	return n, nil
}

// CountOwnedLinks is 1 when the link exists and its section belongs to userID.
func (t *Tx) CountOwnedLinks(ctx context.Context, id, userID int64) (int, error) {
	var n int
	err := t.queryRow(ctx,
		`SELECT COUNT(*) FROM links l
		 JOIN sections s ON s.id = l.section_id
		 WHERE l.id = ? AND s.user_id = ?`,
		id, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: counting owned link %d: %w", id, err)
	}
	return n, nil
}

// OwnedSectionIDs returns the subset of ids that are sections of userID.
func (t *Tx) OwnedSectionIDs(ctx context.Context, ids []int64, userID int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return t.collectIDs(ctx,
		`SELECT id FROM sections WHERE id IN (`+placeholders(len(ids))+`) AND user_id = ?`,
		int64Args(ids, userID)...,
	)
}

// OwnedLinkIDs returns the subset of ids that are links in sections of userID.
func (t *Tx) OwnedLinkIDs(ctx context.Context, ids []int64, userID int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return t.collectIDs(ctx,
		`SELECT l.id FROM links l
		 JOIN sections s ON s.id = l.section_id
		 WHERE l.id IN (`+placeholders(len(ids))+`) AND s.user_id = ?`,
		int64Args(ids, userID)...,
	)
}

func (t *Tx) collectIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: selecting owned ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating ids: %w", err)
	}
	return ids, nil
}
