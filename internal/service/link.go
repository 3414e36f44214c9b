package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/model"
	"github.com/sakif/linkboard/internal/repository"
)

// LinkInput is the client's view of a link.
//
// The validate tags are the structural rules that need no database. The
// type-dependent ones (url for SINGLE, favicon for GROUP, no nesting of
// groups) are struct-level rules registered by the GraphQL binding layer.
// Favicon is not validated as a URL; data: URIs and relative paths pass.
//
// PARTIAL UPDATES:
// Omitted lists the optional keys (url, favicon, linkGroupId) the client
// left out. On an update those keep their stored values instead of being
// cleared. A nil Omitted means every key was sent.
type LinkInput struct {
	ID          *int64         `json:"id"`
	Title       string         `json:"title" validate:"min=2"`
	Type        model.LinkType `json:"type" validate:"oneof=SINGLE GROUP"`
	URL         *string        `json:"url" validate:"omitempty,http_url"`
	Favicon     *string        `json:"favicon"`
	SectionID   int64          `json:"sectionId"`
	Rank        int            `json:"rank"`
	LinkGroupID *int64         `json:"linkGroupId"`

	Omitted []string `json:"-"`
}

// OptionalLinkKeys are the LinkInput keys a client may leave out.
var OptionalLinkKeys = []string{"url", "favicon", "linkGroupId"}

func (in LinkInput) omitted(key string) bool {
	return slices.Contains(in.Omitted, key)
}

// mergeStored fills the omitted keys of an update from the stored row.
// A link saved as GROUP never inherits a group reference.
func (in LinkInput) mergeStored(current *model.Link) LinkInput {
	if in.omitted("url") {
		in.URL = current.URL
	}
	if in.omitted("favicon") {
		in.Favicon = current.Favicon
	}
	if in.omitted("linkGroupId") && in.Type != model.LinkTypeGroup {
		in.LinkGroupID = current.LinkGroupID
	}
	in.Omitted = nil
	return in
}

func (in LinkInput) toModel() model.Link {
	l := model.Link{
		Title:       in.Title,
		URL:         in.URL,
		Favicon:     in.Favicon,
		SectionID:   in.SectionID,
		Rank:        in.Rank,
		Type:        in.Type,
		LinkGroupID: in.LinkGroupID,
	}
	if in.ID != nil {
		l.ID = *in.ID
	}
	return l
}

// Links lists the user's links, optionally for one section only.
func (s *BoardService) Links(ctx context.Context, tx repository.Tx, userID int64, sectionID *int64) ([]model.Link, error) {
	links, err := tx.ListLinks(ctx, userID, sectionID)
	if err != nil {
		return nil, fmt.Errorf("service: listing links: %w", err)
	}
	return links, nil
}

// CheckSaveLink runs the ownership rules of a save.
//
// In order:
//  1. an existing link must be the user's (through its section)
//  2. the target section must be the user's
//  3. a group reference must name one of the user's GROUP links, in the
//     same section, and not the link itself
//  4. a GROUP that still has links cannot become a SINGLE link
//
// Omitted keys of an update are checked with their stored values.
func (s *BoardService) CheckSaveLink(ctx context.Context, tx repository.Tx, userID int64, in LinkInput) error {
	var current *model.Link
	if in.ID != nil {
		if err := requireOwned(ctx, tx, KindLink, *in.ID, userID, MsgUnknownLinkSection); err != nil {
			return err
		}

		var err error
		current, err = tx.GetLink(ctx, *in.ID)
		if err != nil {
			return fmt.Errorf("service: loading link %d: %w", *in.ID, err)
		}
		in = in.mergeStored(current)
	}

	if err := requireOwned(ctx, tx, KindSection, in.SectionID, userID, MsgUnknownSectionID); err != nil {
		return err
	}

	if in.LinkGroupID != nil {
		if err := checkGroupRef(ctx, tx, userID, in); err != nil {
			return err
		}
	}

	if current != nil && current.Type == model.LinkTypeGroup && in.Type != model.LinkTypeGroup {
		children, err := tx.CountGroupChildren(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("service: counting children of link %d: %w", current.ID, err)
		}
		if children > 0 {
			return apperror.RejectMessage(MsgGroupHasLinks)
		}
	}

	return nil
}

func checkGroupRef(ctx context.Context, tx repository.Tx, userID int64, in LinkInput) error {
	groupID := *in.LinkGroupID
	if in.ID != nil && *in.ID == groupID {
		return apperror.RejectMessage(MsgUnknownLinkGroup)
	}
	if err := requireOwned(ctx, tx, KindLink, groupID, userID, MsgUnknownLinkGroup); err != nil {
		return err
	}

	group, err := tx.GetLink(ctx, groupID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.RejectMessage(MsgUnknownLinkGroup)
		}
		return fmt.Errorf("service: loading link group %d: %w", groupID, err)
	}
	if group.Type != model.LinkTypeGroup {
		return apperror.RejectMessage(MsgUnknownLinkGroup)
	}
	if group.SectionID != in.SectionID {
		return apperror.RejectMessage(MsgGroupOtherSection)
	}
	return nil
}

// SaveLink inserts (no id) or updates (id) a link.
//
// MOVING A GROUP:
// A group and its children always share a section. When an update changes
// the section, the children are moved by a second statement. The two
// statements are issued concurrently on the same transaction and waited on
// together, then the pipeline commits them as one unit.
func (s *BoardService) SaveLink(ctx context.Context, tx repository.Tx, in LinkInput) error {
	if in.ID == nil {
		link := in.toModel()
		if err := tx.CreateLink(ctx, &link); err != nil {
			return fmt.Errorf("service: creating link: %w", err)
		}
		s.logger.Info("link created", slog.Int64("linkID", link.ID), slog.Int64("sectionID", link.SectionID))
		return nil
	}

	current, err := tx.GetLink(ctx, *in.ID)
	if err != nil {
		return fmt.Errorf("service: loading link %d: %w", *in.ID, err)
	}
	link := in.mergeStored(current).toModel()

	g, gctx := errgroup.WithContext(ctx)
	if current.SectionID != link.SectionID {
		g.Go(func() error {
			return tx.MoveGroupChildren(gctx, link.ID, link.SectionID)
		})
	}
	g.Go(func() error {
		return tx.UpdateLink(gctx, &link)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("service: updating link %d: %w", link.ID, err)
	}

	return nil
}

// CheckDeleteLink rejects deletes of links the user does not own.
func (s *BoardService) CheckDeleteLink(ctx context.Context, tx repository.Tx, userID, id int64) error {
	return requireOwned(ctx, tx, KindLink, id, userID, MsgUnknownLink)
}

// DeleteLink removes a link. A GROUP link takes its children with it; they
// are deleted explicitly before the group row.
func (s *BoardService) DeleteLink(ctx context.Context, tx repository.Tx, id int64) error {
	if err := tx.DeleteGroupChildren(ctx, id); err != nil {
		return fmt.Errorf("service: deleting children of link %d: %w", id, err)
	}
	if err := tx.DeleteLink(ctx, id); err != nil {
		return fmt.Errorf("service: deleting link %d: %w", id, err)
	}
	return nil
}
