package service

import (
	"context"
	"fmt"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/repository"
)

// CheckOrder verifies that userID owns every id of a reorder request.
//
// Any foreign or missing id rejects the whole request with
// "Unknown ids: [...]" before a single rank is written.
func CheckOrder(ctx context.Context, tx repository.Tx, kind Kind, ids []int64, userID int64) error {
	unknown, err := UnknownIDs(ctx, tx, kind, ids, userID)
	if err != nil {
		return fmt.Errorf("service: checking %s order: %w", kind, err)
	}
	if len(unknown) > 0 {
		return apperror.UnknownIDs(unknown)
	}
	return nil
}

// ApplyOrder sets rank = position for every id, 0-based.
//
// PARTIAL REORDERS:
// Only the listed ids are touched. A client that sends a subset of a list
// can end up with ranks that collide with the untouched siblings. That is
// accepted: the frontend always sends whole lists, and the list queries
// break rank ties by id.
//
// Atomicity comes from the caller's transaction: the pipeline commits all
// updates together or none.
func ApplyOrder(ctx context.Context, tx repository.Tx, kind Kind, ids []int64) error {
	for rank, id := range ids {
		var err error
		switch kind {
		case KindSection:
			err = tx.SetSectionRank(ctx, id, rank)
		case KindLink:
			err = tx.SetLinkRank(ctx, id, rank)
		default:
			err = fmt.Errorf("unknown entity kind %s", kind)
		}
		if err != nil {
			return fmt.Errorf("service: ranking %s %d: %w", kind, id, err)
		}
	}
	return nil
}
