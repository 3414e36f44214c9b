// Package repository declares the storage contracts the services depend on.
//
// SESSIONS AND TRANSACTIONS:
// Every HTTP request gets one Session. A Session hands out transactions one
// at a time: each GraphQL field resolution begins a Tx, runs its checks and
// writes on it, and commits (or rolls back) before the next field starts.
// All data access goes through a Tx, so a field either lands completely or
// not at all.
package repository

import (
	"context"

	"github.com/sakif/linkboard/internal/model"
)

// OwnershipRepository answers "does this user own these rows?".
//
// Counts are 0 or 1. A zero never tells the caller whether the row is missing
// or belongs to someone else.
type OwnershipRepository interface {
	CountOwnedSections(ctx context.Context, id, userID int64) (int, error)
	// CountOwnedLinks joins links to sections: a link is owned through its section.
	CountOwnedLinks(ctx context.Context, id, userID int64) (int, error)
	OwnedSectionIDs(ctx context.Context, ids []int64, userID int64) ([]int64, error)
	OwnedLinkIDs(ctx context.Context, ids []int64, userID int64) ([]int64, error)
}

type SectionRepository interface {
	ListSections(ctx context.Context, userID int64) ([]model.Section, error)
	CreateSection(ctx context.Context, section *model.Section) error
	UpdateSection(ctx context.Context, section *model.Section) error
	DeleteSection(ctx context.Context, id int64) error
	SetSectionRank(ctx context.Context, id int64, rank int) error
}

type LinkRepository interface {
	// ListLinks returns the user's links ordered by section rank, then link
	// rank. A non-nil sectionID narrows the list to one section.
	ListLinks(ctx context.Context, userID int64, sectionID *int64) ([]model.Link, error)
	GetLink(ctx context.Context, id int64) (*model.Link, error)
	CreateLink(ctx context.Context, link *model.Link) error
	UpdateLink(ctx context.Context, link *model.Link) error
	DeleteLink(ctx context.Context, id int64) error
	DeleteSectionLinks(ctx context.Context, sectionID int64) error
	DeleteGroupChildren(ctx context.Context, groupID int64) error
	MoveGroupChildren(ctx context.Context, groupID, sectionID int64) error
	CountGroupChildren(ctx context.Context, groupID int64) (int, error)
	SetLinkRank(ctx context.Context, id int64, rank int) error
}

type UserRepository interface {
	// UpsertUser inserts or updates by Sub and fills user.ID.
	UpsertUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id int64) (*model.User, error)
	UpdateBoardBackground(ctx context.Context, userID int64, bg model.BoardBackground) error
}

// Tx is one unit of work. It is safe for concurrent use by the goroutines of
// a single resolution.
type Tx interface {
	OwnershipRepository
	SectionRepository
	LinkRepository
	UserRepository

	Commit() error
	Rollback() error
}

// Session is a request's exclusive handle on the store.
type Session interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Store opens sessions.
type Store interface {
	NewSession() Session
	Ping(ctx context.Context) error
	Close() error
}
