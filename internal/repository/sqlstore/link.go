package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/model"
)

const linkColumns = `l.id, l.title, l.url, l.favicon, l.section_id, l.rank, l.type, l.link_group_id`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLink(s scanner) (model.Link, error) {
	var (
		l       model.Link
		url     sql.NullString
		favicon sql.NullString
		groupID sql.NullInt64
	)
	if err := s.Scan(&l.ID, &l.Title, &url, &favicon, &l.SectionID, &l.Rank, &l.Type, &groupID); err != nil {
		return model.Link{}, err
	}
	l.URL = stringPtr(url)
	l.Favicon = stringPtr(favicon)
	l.LinkGroupID = int64Ptr(groupID)
	return l, nil
}

// ListLinks returns the user's links, optionally narrowed to one section.
//
// The ownership filter is the join: only links whose section belongs to
// userID are visible. Ordering follows the board layout: section rank first,
// then link rank inside the section.
func (t *Tx) ListLinks(ctx context.Context, userID int64, sectionID *int64) ([]model.Link, error) {
	query := `SELECT ` + linkColumns + `
		FROM links l
		JOIN sections s ON s.id = l.section_id
		WHERE s.user_id = ?`
	args := []any{userID}

	if sectionID != nil {
		query += ` AND l.section_id = ?`
		args = append(args, *sectionID)
	}
	query += ` ORDER BY s.rank, s.id, l.rank, l.id`

	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing links of user %d: %w", userID, err)
	}
	defer rows.Close()

	links := []model.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating links: %w", err)
	}

	return links, nil
}

// GetLink retrieves a link by id without any ownership filter. Callers run
// the ownership check first.
func (t *Tx) GetLink(ctx context.Context, id int64) (*model.Link, error) {
	l, err := scanLink(t.queryRow(ctx, `SELECT `+linkColumns+` FROM links l WHERE l.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("link", id)
		}
		return nil, fmt.Errorf("sqlstore: getting link %d: %w", id, err)
	}
	return &l, nil
}

// CreateLink inserts a link and fills link.ID.
func (t *Tx) CreateLink(ctx context.Context, link *model.Link) error {
	err := t.queryRow(ctx,
		`INSERT INTO links (title, url, favicon, section_id, rank, type, link_group_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		link.Title,
		nullString(link.URL),
		nullString(link.Favicon),
		link.SectionID,
		link.Rank,
		string(link.Type),
		nullInt64(link.LinkGroupID),
	).Scan(&link.ID)
	if err != nil {
		return fmt.Errorf("sqlstore: inserting link: %w", err)
	}
	return nil
}

// UpdateLink rewrites every column of the link.
func (t *Tx) UpdateLink(ctx context.Context, link *model.Link) error {
	result, err := t.exec(ctx,
		`UPDATE links
		 SET title = ?, url = ?, favicon = ?, section_id = ?, rank = ?, type = ?, link_group_id = ?
		 WHERE id = ?`,
		link.Title,
		nullString(link.URL),
		nullString(link.Favicon),
		link.SectionID,
		link.Rank,
		string(link.Type),
		nullInt64(link.LinkGroupID),
		link.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating link %d: %w", link.ID, err)
	}
	return requireRow(result, "link", link.ID)
}

func (t *Tx) DeleteLink(ctx context.Context, id int64) error {
	result, err := t.exec(ctx, `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting link %d: %w", id, err)
	}
	return requireRow(result, "link", id)
}

// DeleteSectionLinks removes every link of a section. Children go before
// their groups so the statement order does not lean on the self-reference
// cascade.
func (t *Tx) DeleteSectionLinks(ctx context.Context, sectionID int64) error {
	if _, err := t.exec(ctx,
		`DELETE FROM links WHERE section_id = ? AND link_group_id IS NOT NULL`, sectionID,
	); err != nil {
		return fmt.Errorf("sqlstore: deleting grouped links of section %d: %w", sectionID, err)
	}
	if _, err := t.exec(ctx, `DELETE FROM links WHERE section_id = ?`, sectionID); err != nil {
		return fmt.Errorf("sqlstore: deleting links of section %d: %w", sectionID, err)
	}
	return nil
}

func (t *Tx) DeleteGroupChildren(ctx context.Context, groupID int64) error {
	if _, err := t.exec(ctx, `DELETE FROM links WHERE link_group_id = ?`, groupID); err != nil {
		return fmt.Errorf("sqlstore: deleting children of link %d: %w", groupID, err)
	}
	return nil
}

// MoveGroupChildren reassigns every child of groupID to sectionID.
func (t *Tx) MoveGroupChildren(ctx context.Context, groupID, sectionID int64) error {
	if _, err := t.exec(ctx,
		`UPDATE links SET section_id = ? WHERE link_group_id = ?`, sectionID, groupID,
	); err != nil {
		return fmt.Errorf("sqlstore: moving children of link %d: %w", groupID, err)
	}
	return nil
}

// CountGroupChildren counts the links whose link_group_id is groupID.
func (t *Tx) CountGroupChildren(ctx context.Context, groupID int64) (int, error) {
	var n int
	if err := t.queryRow(ctx,
		`SELECT COUNT(*) FROM links WHERE link_group_id = ?`, groupID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlstore: counting children of link %d: %w", groupID, err)
	}
	return n, nil
}

func (t *Tx) SetLinkRank(ctx context.Context, id int64, rank int) error {
	if _, err := t.exec(ctx, `UPDATE links SET rank = ? WHERE id = ?`, rank, id); err != nil {
		return fmt.Errorf("sqlstore: ranking link %d: %w", id, err)
	}
	return nil
}
