// Package service holds the board's business rules.
//
// Services sit between the GraphQL field handlers and the repository:
//
//	graph field handler → service (rules, ownership) → repository.Tx (SQL)
//
// Every method takes the transaction it should run on. The caller (the field
// resolution pipeline) decides where a unit of work begins and ends; services
// never commit.
//
// CHECK / APPLY SPLIT:
// Mutations come in pairs, e.g. CheckSaveLink and SaveLink. Check* methods
// only read and return *apperror.ValidationError when the request must be
// rejected. Apply methods assume their Check passed and only write. The
// pipeline runs the Check, and only runs the apply step if it passed.
package service

import (
	"context"
	"fmt"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/repository"
)

// Kind names the ownable entities.
type Kind int

const (
	KindSection Kind = iota
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindSection:
		return "section"
	case KindLink:
		return "link"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CountOwned returns 1 if the entity exists and userID owns it, 0 otherwise.
//
// Links are owned through their section, so for KindLink the count comes
// from a links-sections join. A zero never says which of "missing" or
// "someone else's" applies.
func CountOwned(ctx context.Context, store repository.OwnershipRepository, kind Kind, id, userID int64) (int, error) {
	switch kind {
	case KindSection:
		return store.CountOwnedSections(ctx, id, userID)
	case KindLink:
		return store.CountOwnedLinks(ctx, id, userID)
	default:
		return 0, fmt.Errorf("service: unknown entity kind %s", kind)
	}
}

// IsOwned is CountOwned == 1.
func IsOwned(ctx context.Context, store repository.OwnershipRepository, kind Kind, id, userID int64) (bool, error) {
	n, err := CountOwned(ctx, store, kind, id, userID)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UnknownIDs returns the requested ids userID does not own, in request order
// and without duplicates. An empty result means every id is owned.
func UnknownIDs(ctx context.Context, store repository.OwnershipRepository, kind Kind, ids []int64, userID int64) ([]int64, error) {
	var (
		owned []int64
		err   error
	)
	switch kind {
	case KindSection:
		owned, err = store.OwnedSectionIDs(ctx, ids, userID)
	case KindLink:
		owned, err = store.OwnedLinkIDs(ctx, ids, userID)
	default:
		return nil, fmt.Errorf("service: unknown entity kind %s", kind)
	}
	if err != nil {
		return nil, err
	}

	ownedSet := make(map[int64]struct{}, len(owned))
	for _, id := range owned {
		ownedSet[id] = struct{}{}
	}

	var unknown []int64
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := ownedSet[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unknown = append(unknown, id)
	}
	return unknown, nil
}

// requireOwned rejects with msg unless userID owns the entity.
func requireOwned(ctx context.Context, store repository.OwnershipRepository, kind Kind, id, userID int64, msg string) error {
	owned, err := IsOwned(ctx, store, kind, id, userID)
	if err != nil {
		return err
	}
	if !owned {
		return apperror.RejectMessage(msg)
	}
	return nil
}
