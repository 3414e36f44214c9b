package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/linkboard/internal/model"
	"github.com/sakif/linkboard/internal/repository"
)

// Messages returned to clients when a referenced id is not theirs.
const (
	MsgUnknownSection     = "Unknown section"
	MsgUnknownSectionID   = "Unknown section id"
	MsgUnknownLink        = "Unknown link"
	MsgUnknownLinkSection = "Unknown link/section"
	MsgUnknownLinkGroup   = "Unknown link group"
	MsgGroupOtherSection  = "Link group belongs to another section"
	MsgGroupHasLinks      = "Link group has links"
)

// SectionInput is the client's view of a section. There is no owner field:
// new sections always belong to the caller.
type SectionInput struct {
	ID   *int64 `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// BoardService implements the section, link and board settings rules.
type BoardService struct {
	logger *slog.Logger
}

// NewBoardService creates a BoardService.
func NewBoardService(logger *slog.Logger) *BoardService {
	return &BoardService{logger: logger}
}

// Sections lists the user's sections in rank order.
func (s *BoardService) Sections(ctx context.Context, tx repository.Tx, userID int64) ([]model.Section, error) {
	sections, err := tx.ListSections(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: listing sections: %w", err)
	}
	return sections, nil
}

// CheckSaveSection rejects updates of sections the user does not own.
// Inserts need no check.
func (s *BoardService) CheckSaveSection(ctx context.Context, tx repository.Tx, userID int64, in SectionInput) error {
	if in.ID == nil {
		return nil
	}
	return requireOwned(ctx, tx, KindSection, *in.ID, userID, MsgUnknownSection)
}

// SaveSection inserts (no id) or updates (id) a section.
//
// The owner is always userID. The input has no owner field, and an update
// never changes user_id, so a section can never be handed to another user.
func (s *BoardService) SaveSection(ctx context.Context, tx repository.Tx, userID int64, in SectionInput) error {
	section := &model.Section{
		Name:   in.Name,
		UserID: userID,
		Rank:   in.Rank,
	}

	if in.ID == nil {
		if err := tx.CreateSection(ctx, section); err != nil {
			return fmt.Errorf("service: creating section: %w", err)
		}
		s.logger.Info("section created", slog.Int64("sectionID", section.ID), slog.Int64("userID", userID))
		return nil
	}

	section.ID = *in.ID
	if err := tx.UpdateSection(ctx, section); err != nil {
		return fmt.Errorf("service: updating section %d: %w", section.ID, err)
	}
	return nil
}

// CheckDeleteSection rejects deletes of sections the user does not own.
func (s *BoardService) CheckDeleteSection(ctx context.Context, tx repository.Tx, userID, id int64) error {
	return requireOwned(ctx, tx, KindSection, id, userID, MsgUnknownSection)
}

// DeleteSection removes a section and every link in it.
//
// The links are deleted by an explicit statement first. The foreign key
// cascade would do the same, but not every backend enforces it (SQLite only
// does with foreign_keys on), and the rule should not depend on that.
func (s *BoardService) DeleteSection(ctx context.Context, tx repository.Tx, id int64) error {
	if err := tx.DeleteSectionLinks(ctx, id); err != nil {
		return fmt.Errorf("service: deleting links of section %d: %w", id, err)
	}
	if err := tx.DeleteSection(ctx, id); err != nil {
		return fmt.Errorf("service: deleting section %d: %w", id, err)
	}
	s.logger.Info("section deleted", slog.Int64("sectionID", id))
	return nil
}
