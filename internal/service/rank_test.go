package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkboard/internal/model"
	"github.com/sakif/linkboard/internal/repository"
)

// reorder runs the check and, if it passes, the apply step in one
// transaction, the way the GraphQL pipeline does.
func reorder(t *testing.T, store repository.Store, kind Kind, ids []int64, userID int64) error {
	t.Helper()
	return inTx(t, store, func(tx repository.Tx) error {
		ctx := context.Background()
		if err := CheckOrder(ctx, tx, kind, ids, userID); err != nil {
			return err
		}
		return ApplyOrder(ctx, tx, kind, ids)
	})
}

func sectionRanks(t *testing.T, store repository.Store, userID int64) map[int64]int {
	t.Helper()
	ranks := map[int64]int{}
	mustTx(t, store, func(tx repository.Tx) error {
		sections, err := tx.ListSections(context.Background(), userID)
		for _, s := range sections {
			ranks[s.ID] = s.Rank
		}
		return err
	})
	return ranks
}

func TestReorderSections_RanksFollowPosition(t *testing.T) {
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")
	a := seedSection(t, store, alice, "A", 7)
	b := seedSection(t, store, alice, "B", 3)
	c := seedSection(t, store, alice, "C", 5)

	require.NoError(t, reorder(t, store, KindSection, []int64{a, b, c}, alice))

	assert.Equal(t, map[int64]int{a: 0, b: 1, c: 2}, sectionRanks(t, store, alice))
}

func TestReorderLinks_Permutation(t *testing.T) {
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")
	section := seedSection(t, store, alice, "S", 0)
	l1 := seedLink(t, store, model.Link{SectionID: section, Rank: 0})
	l2 := seedLink(t, store, model.Link{SectionID: section, Rank: 1})
	l3 := seedLink(t, store, model.Link{SectionID: section, Rank: 2})

	require.NoError(t, reorder(t, store, KindLink, []int64{l3, l1, l2}, alice))

	assert.Equal(t, 0, loadLink(t, store, l3).Rank)
	assert.Equal(t, 1, loadLink(t, store, l1).Rank)
	assert.Equal(t, 2, loadLink(t, store, l2).Rank)
}

func TestReorder_UnknownIDsChangeNothing(t *testing.T) {
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	a := seedSection(t, store, alice, "A", 4)
	b := seedSection(t, store, alice, "B", 9)
	foreign := seedSection(t, store, bob, "X", 0)

	err := reorder(t, store, KindSection, []int64{a, foreign, b, 777}, alice)

	want := fmt.Sprintf("Unknown ids: [%d, 777]", foreign)
	assert.Equal(t, want, rejectionMsg(t, err))
	assert.Equal(t, map[int64]int{a: 4, b: 9}, sectionRanks(t, store, alice))
	assert.Equal(t, map[int64]int{foreign: 0}, sectionRanks(t, store, bob))
}

func TestReorder_EmptyListIsNoop(t *testing.T) {
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")

	assert.NoError(t, reorder(t, store, KindLink, nil, alice))
}

func TestReorder_PartialListLeavesOthers(t *testing.T) {
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")
	a := seedSection(t, store, alice, "A", 5)
	b := seedSection(t, store, alice, "B", 6)

	require.NoError(t, reorder(t, store, KindSection, []int64{b}, alice))

	assert.Equal(t, map[int64]int{a: 5, b: 0}, sectionRanks(t, store, alice))
}
