package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/auth"
	"github.com/sakif/linkboard/internal/cache"
	"github.com/sakif/linkboard/internal/model"
	"github.com/sakif/linkboard/internal/repository"
	"github.com/sakif/linkboard/internal/repository/sqlstore"
	"github.com/sakif/linkboard/internal/service"
)

// =========================================================================
// END-TO-END HELPERS
// =========================================================================
//
// These tests send real GraphQL documents through the engine, backed by an
// in-memory SQLite store, and decode the response the way a client would.

type testEnv struct {
	store    *sqlstore.DB
	pipeline *Pipeline
	engine   *Engine
}

func newTestEnv(t *testing.T, images *fakeImages) *testEnv {
	t.Helper()
	store, err := sqlstore.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	deps := Deps{Board: service.NewBoardService(discardLogger()), Version: "1.2.3"}
	if images != nil {
		deps.Images = images
	}

	p := NewPipeline(cache.NewMemory(), discardLogger())
	engine, err := NewEngine(NewFields(deps), p, store, discardLogger())
	require.NoError(t, err)

	return &testEnv{store: store, pipeline: p, engine: engine}
}

// exec runs query and decodes its data into out. GraphQL errors fail the test.
func (env *testEnv) exec(t *testing.T, who *auth.Identity, query string, vars map[string]any, out any) {
	t.Helper()
	result, err := env.engine.Execute(context.Background(), who, Request{Query: query, Variables: vars})
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	raw, err := json.Marshal(result.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

// mutate runs a single-field mutation and returns its errors list.
func (env *testEnv) mutate(t *testing.T, who *auth.Identity, field, call string) []apperror.Error {
	t.Helper()
	var data map[string]apperror.MutationResult
	env.exec(t, who, fmt.Sprintf("mutation { %s { errors { msg type loc ctx } } }", call), nil, &data)
	result, ok := data[field]
	require.True(t, ok, "no %s in response", field)
	return result.Errors
}

func (env *testEnv) tx(t *testing.T, fn func(tx repository.Tx) error) {
	t.Helper()
	session := env.store.NewSession()
	defer session.Close()

	tx, err := session.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	require.NoError(t, fn(tx))
	require.NoError(t, tx.Commit())
}

func (env *testEnv) user(t *testing.T, sub, given, family string) *auth.Identity {
	t.Helper()
	u := &model.User{UserInfo: model.UserInfo{Sub: sub, GivenName: given, FamilyName: family}}
	env.tx(t, func(tx repository.Tx) error { return tx.UpsertUser(context.Background(), u) })
	return &auth.Identity{UserID: u.ID, Claims: u.UserInfo}
}

func (env *testEnv) section(t *testing.T, who *auth.Identity, name string, rank int) int64 {
	t.Helper()
	s := &model.Section{Name: name, UserID: who.UserID, Rank: rank}
	env.tx(t, func(tx repository.Tx) error { return tx.CreateSection(context.Background(), s) })
	return s.ID
}

func (env *testEnv) link(t *testing.T, sectionID int64, title string, rank int) int64 {
	t.Helper()
	url := "https://example.com/" + title
	l := &model.Link{Title: title, URL: &url, SectionID: sectionID, Rank: rank, Type: model.LinkTypeSingle}
	env.tx(t, func(tx repository.Tx) error { return tx.CreateLink(context.Background(), l) })
	return l.ID
}

func strPtr(s string) *string { return &s }

type linkRow struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Rank      int    `json:"rank"`
	SectionID int64  `json:"sectionId"`
}

func (env *testEnv) links(t *testing.T, who *auth.Identity) map[int64]linkRow {
	t.Helper()
	var data struct {
		Links []linkRow `json:"links"`
	}
	env.exec(t, who, `{ links { id title rank sectionId } }`, nil, &data)

	out := make(map[int64]linkRow, len(data.Links))
	for _, l := range data.Links {
		out[l.ID] = l
	}
	return out
}

type fakeImages struct {
	calls  int
	images []model.EarthPornImage
	err    error
}

func (f *fakeImages) EarthPornImages(context.Context) ([]model.EarthPornImage, error) {
	f.calls++
	return f.images, f.err
}

// =========================================================================
// QUERIES
// =========================================================================

func TestEngine_PingAndVersion(t *testing.T) {
	env := newTestEnv(t, nil)

	var data struct {
		Ping    string `json:"ping"`
		Version string `json:"version"`
	}
	env.exec(t, nil, `{ ping version }`, nil, &data)

	assert.Equal(t, "pong", data.Ping)
	assert.Equal(t, "1.2.3", data.Version)
}

func TestEngine_AnonymousQueries(t *testing.T) {
	env := newTestEnv(t, nil)

	var data map[string]any
	env.exec(t, nil, `{
		whoAmI { id }
		sections { id }
		links { id }
		boardSettings { background { type } }
	}`, nil, &data)

	assert.Nil(t, data["whoAmI"])
	assert.Equal(t, []any{}, data["sections"])
	assert.Equal(t, []any{}, data["links"])
	assert.Nil(t, data["boardSettings"])
}

func TestEngine_WhoAmI(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "google|1", "Alice", "Smith")

	var data struct {
		WhoAmI model.Profile `json:"whoAmI"`
	}
	env.exec(t, alice, `{ whoAmI { id sub name } }`, nil, &data)

	assert.Equal(t, alice.UserID, data.WhoAmI.ID)
	assert.Equal(t, "google|1", data.WhoAmI.Sub)
	assert.Equal(t, "Alice Smith", data.WhoAmI.Name)
}

func TestEngine_SectionsAreScopedToCaller(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")
	bob := env.user(t, "b", "", "")
	env.section(t, alice, "Work", 1)
	env.section(t, alice, "Home", 0)
	env.section(t, bob, "Bob's", 0)

	var data struct {
		Sections []model.Section `json:"sections"`
	}
	env.exec(t, alice, `{ sections { id name rank } }`, nil, &data)

	require.Len(t, data.Sections, 2)
	assert.Equal(t, "Home", data.Sections[0].Name)
	assert.Equal(t, "Work", data.Sections[1].Name)
}

func TestEngine_SyntaxErrorIsNotAFault(t *testing.T) {
	env := newTestEnv(t, nil)

	result, err := env.engine.Execute(context.Background(), nil, Request{Query: `{ nope }`})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Errors)
}

// =========================================================================
// MUTATIONS
// =========================================================================

func TestEngine_AnonymousMutation(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")
	s := env.section(t, alice, "Work", 0)

	tests := []struct {
		field string
		call  string
	}{
		{field: "saveSection", call: `saveSection(section: {name: "Reading", rank: 0})`},
		{field: "saveLink", call: fmt.Sprintf(
			`saveLink(link: {title: "Docs", url: "https://go.dev", sectionId: %d, rank: 0, type: SINGLE})`, s)},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			errs := env.mutate(t, nil, tt.field, tt.call)

			require.Len(t, errs, 1)
			assert.Equal(t, "Authentication needed", errs[0].Msg)
			assert.Equal(t, "", errs[0].Type)
			assert.Equal(t, []string{}, errs[0].Loc)
			assert.Equal(t, map[string]any{}, errs[0].Ctx)
		})
	}

	// Nothing was written.
	var data struct {
		Sections []model.Section `json:"sections"`
	}
	env.exec(t, alice, `{ sections { id name } }`, nil, &data)
	require.Len(t, data.Sections, 1)
	assert.Equal(t, "Work", data.Sections[0].Name)
	assert.Empty(t, env.links(t, alice))
}

func TestEngine_SaveSection(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")

	errs := env.mutate(t, alice, "saveSection", `saveSection(section: {name: "Reading", rank: 3})`)
	require.Empty(t, errs)

	var data struct {
		Sections []model.Section `json:"sections"`
	}
	env.exec(t, alice, `{ sections { id name rank } }`, nil, &data)
	require.Len(t, data.Sections, 1)
	assert.Equal(t, "Reading", data.Sections[0].Name)
	assert.Equal(t, 3, data.Sections[0].Rank)
}

func TestEngine_SaveLinkStructuralErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")
	s := env.section(t, alice, "Work", 0)

	var data struct {
		SaveLink apperror.MutationResult `json:"saveLink"`
	}
	env.exec(t, alice, `mutation($link: LinkInput!) {
		saveLink(link: $link) { errors { msg type loc ctx } }
	}`, map[string]any{
		"link": map[string]any{"title": "Docs", "sectionId": s, "rank": 0, "type": "SINGLE"},
	}, &data)

	errs := data.SaveLink.Errors
	require.Len(t, errs, 1)
	assert.Equal(t, "url is mandatory if type is SINGLE", errs[0].Msg)
	assert.Equal(t, "required_if", errs[0].Type)
	assert.Equal(t, []string{"link", "url"}, errs[0].Loc)
	assert.Equal(t, map[string]any{"param": "type SINGLE"}, errs[0].Ctx)
	assert.Empty(t, env.links(t, alice))
}

func TestEngine_SaveLinkPartialUpdate(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")
	s := env.section(t, alice, "Work", 0)

	group := &model.Link{Title: "Tools", Favicon: strPtr("tools.ico"), SectionID: s, Type: model.LinkTypeGroup}
	env.tx(t, func(tx repository.Tx) error { return tx.CreateLink(context.Background(), group) })
	child := &model.Link{Title: "Go", URL: strPtr("https://go.dev"), SectionID: s, Type: model.LinkTypeSingle, LinkGroupID: &group.ID}
	env.tx(t, func(tx repository.Tx) error { return tx.CreateLink(context.Background(), child) })

	save := func(link map[string]any) {
		t.Helper()
		var data struct {
			SaveLink apperror.MutationResult `json:"saveLink"`
		}
		env.exec(t, alice, `mutation($link: LinkInput!) {
			saveLink(link: $link) { errors { msg } }
		}`, map[string]any{"link": link}, &data)
		require.Empty(t, data.SaveLink.Errors)
	}
	stored := func() *model.Link {
		t.Helper()
		var l *model.Link
		env.tx(t, func(tx repository.Tx) error {
			var err error
			l, err = tx.GetLink(context.Background(), child.ID)
			return err
		})
		return l
	}

	// A rename without linkGroupId keeps the link in its group.
	save(map[string]any{
		"id": child.ID, "title": "Go (renamed)", "url": "https://go.dev",
		"sectionId": s, "rank": 0, "type": "SINGLE",
	})
	l := stored()
	assert.Equal(t, "Go (renamed)", l.Title)
	require.NotNil(t, l.LinkGroupID)
	assert.Equal(t, group.ID, *l.LinkGroupID)

	// An explicit null takes it out.
	save(map[string]any{
		"id": child.ID, "title": "Go (renamed)", "url": "https://go.dev",
		"sectionId": s, "rank": 0, "type": "SINGLE", "linkGroupId": nil,
	})
	assert.Nil(t, stored().LinkGroupID)
}

func TestEngine_GroupWithLinksCannotBecomeSingle(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")
	s := env.section(t, alice, "Work", 0)

	group := &model.Link{Title: "Tools", Favicon: strPtr("tools.ico"), SectionID: s, Type: model.LinkTypeGroup}
	env.tx(t, func(tx repository.Tx) error { return tx.CreateLink(context.Background(), group) })
	child := &model.Link{Title: "Go", URL: strPtr("https://go.dev"), SectionID: s, Type: model.LinkTypeSingle, LinkGroupID: &group.ID}
	env.tx(t, func(tx repository.Tx) error { return tx.CreateLink(context.Background(), child) })

	errs := env.mutate(t, alice, "saveLink", fmt.Sprintf(
		`saveLink(link: {id: %d, title: "Tools", url: "https://tools.dev", sectionId: %d, rank: 0, type: SINGLE})`,
		group.ID, s))

	require.Len(t, errs, 1)
	assert.Equal(t, service.MsgGroupHasLinks, errs[0].Msg)
}

func TestEngine_SaveLinkIntoForeignSection(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")
	bob := env.user(t, "b", "", "")
	s := env.section(t, alice, "Work", 0)

	errs := env.mutate(t, bob, "saveLink", fmt.Sprintf(
		`saveLink(link: {title: "Sneaky", url: "https://x.example", sectionId: %d, rank: 0, type: SINGLE})`, s))

	require.Len(t, errs, 1)
	assert.Equal(t, "Unknown section id", errs[0].Msg)
	assert.Empty(t, env.links(t, alice))
}

func TestEngine_DeleteForeignLink(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")
	bob := env.user(t, "b", "", "")
	l1 := env.link(t, env.section(t, alice, "Work", 0), "l1", 0)

	errs := env.mutate(t, bob, "deleteLink", fmt.Sprintf("deleteLink(id: %d)", l1))

	require.Len(t, errs, 1)
	assert.Equal(t, "Unknown link", errs[0].Msg)
	assert.Contains(t, env.links(t, alice), l1)
}

func TestEngine_DeleteSectionTakesLinks(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")
	s := env.section(t, alice, "Work", 0)
	env.link(t, s, "l1", 0)
	env.link(t, s, "l2", 1)

	errs := env.mutate(t, alice, "deleteSection", fmt.Sprintf("deleteSection(id: %d)", s))

	require.Empty(t, errs)
	assert.Empty(t, env.links(t, alice))
}

func TestEngine_SaveLinksRanks(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")
	s := env.section(t, alice, "Work", 0)
	l1 := env.link(t, s, "l1", 0)
	l2 := env.link(t, s, "l2", 1)
	l3 := env.link(t, s, "l3", 2)

	errs := env.mutate(t, alice, "saveLinksRanks",
		fmt.Sprintf("saveLinksRanks(linkIds: [%d, %d, %d])", l3, l1, l2))
	require.Empty(t, errs)

	links := env.links(t, alice)
	assert.Equal(t, 0, links[l3].Rank)
	assert.Equal(t, 1, links[l1].Rank)
	assert.Equal(t, 2, links[l2].Rank)
}

func TestEngine_SaveLinksRanksRejectsForeignIDs(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")
	bob := env.user(t, "b", "", "")
	s := env.section(t, alice, "Work", 0)
	l1 := env.link(t, s, "l1", 0)
	l2 := env.link(t, s, "l2", 1)
	foreign := env.link(t, env.section(t, bob, "Bob's", 0), "b1", 0)

	errs := env.mutate(t, alice, "saveLinksRanks",
		fmt.Sprintf("saveLinksRanks(linkIds: [%d, %d, %d])", l2, foreign, l1))

	require.Len(t, errs, 1)
	assert.Equal(t, fmt.Sprintf("Unknown ids: [%d]", foreign), errs[0].Msg)

	links := env.links(t, alice)
	assert.Equal(t, 0, links[l1].Rank)
	assert.Equal(t, 1, links[l2].Rank)
}

func TestEngine_SaveSectionsRanks(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")
	work := env.section(t, alice, "Work", 0)
	home := env.section(t, alice, "Home", 1)

	errs := env.mutate(t, alice, "saveSectionsRanks",
		fmt.Sprintf("saveSectionsRanks(sectionIds: [%d, %d])", home, work))
	require.Empty(t, errs)

	var data struct {
		Sections []model.Section `json:"sections"`
	}
	env.exec(t, alice, `{ sections { id name rank } }`, nil, &data)
	require.Len(t, data.Sections, 2)
	assert.Equal(t, home, data.Sections[0].ID)
	assert.Equal(t, work, data.Sections[1].ID)
}

func TestEngine_MutationsCommitIndependently(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")

	var data map[string]apperror.MutationResult
	env.exec(t, alice, `mutation {
		first: saveSection(section: {name: "Kept", rank: 0}) { errors { msg } }
		second: deleteSection(id: 9999) { errors { msg } }
	}`, nil, &data)

	assert.Empty(t, data["first"].Errors)
	require.Len(t, data["second"].Errors, 1)
	assert.Equal(t, "Unknown section", data["second"].Errors[0].Msg)

	var sections struct {
		Sections []model.Section `json:"sections"`
	}
	env.exec(t, alice, `{ sections { name } }`, nil, &sections)
	require.Len(t, sections.Sections, 1)
	assert.Equal(t, "Kept", sections.Sections[0].Name)
}

func TestEngine_BoardSettings(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.user(t, "a", "", "")

	errs := env.mutate(t, alice, "saveBoardSettings",
		`saveBoardSettings(boardSettings: {background: {type: COLOR, value: "#224466"}})`)
	require.Empty(t, errs)

	var data struct {
		BoardSettings model.BoardSettings `json:"boardSettings"`
	}
	env.exec(t, alice, `{ boardSettings { background { type value } } }`, nil, &data)
	assert.Equal(t, model.BackgroundColor, data.BoardSettings.Background.Type)
	assert.Equal(t, "#224466", data.BoardSettings.Background.Value)
}

// =========================================================================
// CACHED FIELDS AND FAULTS
// =========================================================================

func TestEngine_EarthPornImagesAreCached(t *testing.T) {
	width := 4000
	images := &fakeImages{images: []model.EarthPornImage{{
		ID: "abc", URL: "https://i.redd.it/abc.jpg", Title: "Coyote Buttes",
		ThumbnailURL: "https://b.thumbs.redditmedia.com/abc.jpg", Width: &width,
	}}}
	env := newTestEnv(t, images)

	query := `{ earthPornImages { id title width } }`
	for range 2 {
		var data struct {
			Images []model.EarthPornImage `json:"earthPornImages"`
		}
		env.exec(t, nil, query, nil, &data)
		env.pipeline.Wait()

		require.Len(t, data.Images, 1)
		assert.Equal(t, "Coyote Buttes", data.Images[0].Title)
		require.NotNil(t, data.Images[0].Width)
		assert.Equal(t, 4000, *data.Images[0].Width)
	}
	assert.Equal(t, 1, images.calls)

	// Another selection is another cache entry.
	var data map[string]any
	env.exec(t, nil, `{ earthPornImages { url } }`, nil, &data)
	assert.Equal(t, 2, images.calls)
}

func TestEngine_FaultFailsRequest(t *testing.T) {
	images := &fakeImages{err: errors.New("reddit: 503")}
	env := newTestEnv(t, images)

	result, err := env.engine.Execute(context.Background(), nil, Request{
		Query: `{ ping earthPornImages { id } }`,
	})

	assert.Error(t, err)
	assert.Nil(t, result)
}
