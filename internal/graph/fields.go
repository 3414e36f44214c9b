package graph

import (
	"context"
	"errors"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/feed"
	"github.com/sakif/linkboard/internal/model"
	"github.com/sakif/linkboard/internal/service"
)

// imageCacheExpiry is how long the background image feed is cached.
const imageCacheExpiry = 24 * time.Hour

// Deps are the services the fields delegate to.
type Deps struct {
	Board   *service.BoardService
	Images  feed.Source // nil when no feed is configured
	Version string
}

// NewFields registers every query and mutation of the board API.
func NewFields(d Deps) *Registry {
	reg := NewRegistry()

	// === Queries ===
	Register[noArgs, string](reg, FieldOptions{
		Name: "ping", Type: graphql.NewNonNull(graphql.String),
		Description: "Liveness check; always pong.",
	}, pingField{})
	Register[noArgs, string](reg, FieldOptions{
		Name: "version", Type: graphql.NewNonNull(graphql.String),
	}, versionField{version: d.Version})
	Register[noArgs, *model.Profile](reg, FieldOptions{
		Name: "whoAmI", Type: profileType,
		Description: "The signed-in user, null when anonymous.",
	}, whoAmIField{})
	Register[noArgs, []model.Section](reg, FieldOptions{
		Name: "sections", Type: listOf(sectionType),
	}, sectionsField{board: d.Board})
	Register[linksArgs, []model.Link](reg, FieldOptions{
		Name: "links", Type: listOf(linkType),
		Args: graphql.FieldConfigArgument{
			"sectionId": &graphql.ArgumentConfig{Type: graphql.Int},
		},
	}, linksField{board: d.Board})
	Register[noArgs, *model.BoardSettings](reg, FieldOptions{
		Name: "boardSettings", Type: boardSettingsType,
	}, boardSettingsField{board: d.Board})
	Register[noArgs, []model.EarthPornImage](reg, FieldOptions{
		Name: "earthPornImages", Type: listOf(earthPornImageType),
		CacheExpiry: imageCacheExpiry,
	}, earthPornImagesField{images: d.Images})

	// === Mutations ===
	mutation := func(name string, args graphql.FieldConfigArgument) FieldOptions {
		return FieldOptions{
			Name:        name,
			Mutation:    true,
			Type:        graphql.NewNonNull(mutationResultType),
			Args:        args,
			RequireUser: true,
		}
	}
	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
	}
	idsArg := func(name string) graphql.FieldConfigArgument {
		return graphql.FieldConfigArgument{
			name: &graphql.ArgumentConfig{Type: listOfInts()},
		}
	}

	Register[saveSectionArgs, *apperror.MutationResult](reg, mutation("saveSection", graphql.FieldConfigArgument{
		"section": &graphql.ArgumentConfig{Type: graphql.NewNonNull(sectionInputType)},
	}), saveSectionField{board: d.Board})
	Register[saveLinkArgs, *apperror.MutationResult](reg, mutation("saveLink", graphql.FieldConfigArgument{
		"link": &graphql.ArgumentConfig{Type: graphql.NewNonNull(linkInputType)},
	}), saveLinkField{board: d.Board})
	Register[idArgs, *apperror.MutationResult](reg, mutation("deleteSection", idArg), deleteSectionField{board: d.Board})
	Register[idArgs, *apperror.MutationResult](reg, mutation("deleteLink", idArg), deleteLinkField{board: d.Board})
	Register[sectionRanksArgs, *apperror.MutationResult](reg, mutation("saveSectionsRanks", idsArg("sectionIds")), sectionRanksField{})
	Register[linkRanksArgs, *apperror.MutationResult](reg, mutation("saveLinksRanks", idsArg("linkIds")), linkRanksField{})
	Register[saveBoardSettingsArgs, *apperror.MutationResult](reg, mutation("saveBoardSettings", graphql.FieldConfigArgument{
		"boardSettings": &graphql.ArgumentConfig{Type: graphql.NewNonNull(boardSettingsInputType)},
	}), saveBoardSettingsField{board: d.Board})

	return reg
}

func listOf(t graphql.Type) graphql.Output {
	return graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(t)))
}

func listOfInts() graphql.Input {
	return graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.Int)))
}

type noArgs struct{}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

type pingField struct {
	Args[noArgs]
	Public[noArgs]
}

func (pingField) Resolve(context.Context, *Scope, noArgs) (string, error) {
	return "pong", nil
}

type versionField struct {
	Args[noArgs]
	Public[noArgs]
	version string
}

func (f versionField) Resolve(context.Context, *Scope, noArgs) (string, error) {
	return f.version, nil
}

type whoAmIField struct {
	Args[noArgs]
	Public[noArgs]
}

func (whoAmIField) Resolve(_ context.Context, s *Scope, _ noArgs) (*model.Profile, error) {
	identity, ok := s.Identity()
	if !ok {
		return nil, nil
	}
	profile := model.NewProfile(identity.UserID, identity.Claims)
	return &profile, nil
}

// Anonymous callers get empty lists and null settings, not errors: the
// board renders empty until the user signs in.

type sectionsField struct {
	Args[noArgs]
	Public[noArgs]
	board *service.BoardService
}

func (f sectionsField) Resolve(ctx context.Context, s *Scope, _ noArgs) ([]model.Section, error) {
	if !s.Authenticated() {
		return []model.Section{}, nil
	}
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return f.board.Sections(ctx, tx, s.UserID())
}

type linksArgs struct {
	SectionID *int64 `json:"sectionId"`
}

type linksField struct {
	Args[linksArgs]
	Public[linksArgs]
	board *service.BoardService
}

func (f linksField) Resolve(ctx context.Context, s *Scope, args linksArgs) ([]model.Link, error) {
	if !s.Authenticated() {
		return []model.Link{}, nil
	}
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return f.board.Links(ctx, tx, s.UserID(), args.SectionID)
}

type boardSettingsField struct {
	Args[noArgs]
	Public[noArgs]
	board *service.BoardService
}

func (f boardSettingsField) Resolve(ctx context.Context, s *Scope, _ noArgs) (*model.BoardSettings, error) {
	if !s.Authenticated() {
		return nil, nil
	}
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := f.board.BoardSettings(ctx, tx, s.UserID())
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	return settings, err
}

type earthPornImagesField struct {
	Args[noArgs]
	Public[noArgs]
	images feed.Source
}

func (f earthPornImagesField) Resolve(ctx context.Context, _ *Scope, _ noArgs) ([]model.EarthPornImage, error) {
	if f.images == nil {
		return []model.EarthPornImage{}, nil
	}
	return f.images.EarthPornImages(ctx)
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------
//
// Every mutation requires a user (the pipeline answers anonymous callers),
// runs its ownership checks in Authorize and its writes in Resolve, and
// returns an empty MutationResult on success.

type saveSectionArgs struct {
	Section service.SectionInput `json:"section"`
}

type saveSectionField struct {
	Args[saveSectionArgs]
	board *service.BoardService
}

func (f saveSectionField) Authorize(ctx context.Context, s *Scope, args saveSectionArgs) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	return f.board.CheckSaveSection(ctx, tx, s.UserID(), args.Section)
}

func (f saveSectionField) Resolve(ctx context.Context, s *Scope, args saveSectionArgs) (*apperror.MutationResult, error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.board.SaveSection(ctx, tx, s.UserID(), args.Section); err != nil {
		return nil, err
	}
	return apperror.Success(), nil
}

type saveLinkArgs struct {
	Link service.LinkInput `json:"link"`
}

type saveLinkField struct {
	Args[saveLinkArgs]
	board *service.BoardService
}

// Bind also records which optional link keys the client left out, so an
// update keeps their stored values.
func (f saveLinkField) Bind(raw map[string]any) (saveLinkArgs, error) {
	args, err := f.Args.Bind(raw)
	if err != nil {
		return args, err
	}
	link, _ := raw["link"].(map[string]any)
	for _, key := range service.OptionalLinkKeys {
		if _, set := link[key]; !set {
			args.Link.Omitted = append(args.Link.Omitted, key)
		}
	}
	return args, nil
}

func (f saveLinkField) Authorize(ctx context.Context, s *Scope, args saveLinkArgs) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	return f.board.CheckSaveLink(ctx, tx, s.UserID(), args.Link)
}

func (f saveLinkField) Resolve(ctx context.Context, s *Scope, args saveLinkArgs) (*apperror.MutationResult, error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.board.SaveLink(ctx, tx, args.Link); err != nil {
		return nil, err
	}
	return apperror.Success(), nil
}

type idArgs struct {
	ID int64 `json:"id"`
}

type deleteSectionField struct {
	Args[idArgs]
	board *service.BoardService
}

func (f deleteSectionField) Authorize(ctx context.Context, s *Scope, args idArgs) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	return f.board.CheckDeleteSection(ctx, tx, s.UserID(), args.ID)
}

func (f deleteSectionField) Resolve(ctx context.Context, s *Scope, args idArgs) (*apperror.MutationResult, error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.board.DeleteSection(ctx, tx, args.ID); err != nil {
		return nil, err
	}
	return apperror.Success(), nil
}

type deleteLinkField struct {
	Args[idArgs]
	board *service.BoardService
}

func (f deleteLinkField) Authorize(ctx context.Context, s *Scope, args idArgs) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	return f.board.CheckDeleteLink(ctx, tx, s.UserID(), args.ID)
}

func (f deleteLinkField) Resolve(ctx context.Context, s *Scope, args idArgs) (*apperror.MutationResult, error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.board.DeleteLink(ctx, tx, args.ID); err != nil {
		return nil, err
	}
	return apperror.Success(), nil
}

// reorderField is shared by both rank mutations.
type reorderField struct {
	kind service.Kind
}

func (f reorderField) authorize(ctx context.Context, s *Scope, ids []int64) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	return service.CheckOrder(ctx, tx, f.kind, ids, s.UserID())
}

func (f reorderField) resolve(ctx context.Context, s *Scope, ids []int64) (*apperror.MutationResult, error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, err
	}
	if err := service.ApplyOrder(ctx, tx, f.kind, ids); err != nil {
		return nil, err
	}
	return apperror.Success(), nil
}

type sectionRanksArgs struct {
	SectionIDs []int64 `json:"sectionIds"`
}

type sectionRanksField struct {
	Args[sectionRanksArgs]
}

func (sectionRanksField) Authorize(ctx context.Context, s *Scope, args sectionRanksArgs) error {
	return reorderField{kind: service.KindSection}.authorize(ctx, s, args.SectionIDs)
}

func (sectionRanksField) Resolve(ctx context.Context, s *Scope, args sectionRanksArgs) (*apperror.MutationResult, error) {
	return reorderField{kind: service.KindSection}.resolve(ctx, s, args.SectionIDs)
}

type linkRanksArgs struct {
	LinkIDs []int64 `json:"linkIds"`
}

type linkRanksField struct {
	Args[linkRanksArgs]
}

func (linkRanksField) Authorize(ctx context.Context, s *Scope, args linkRanksArgs) error {
	return reorderField{kind: service.KindLink}.authorize(ctx, s, args.LinkIDs)
}

func (linkRanksField) Resolve(ctx context.Context, s *Scope, args linkRanksArgs) (*apperror.MutationResult, error) {
	return reorderField{kind: service.KindLink}.resolve(ctx, s, args.LinkIDs)
}

type saveBoardSettingsArgs struct {
	BoardSettings service.BoardSettingsInput `json:"boardSettings"`
}

type saveBoardSettingsField struct {
	Args[saveBoardSettingsArgs]
	Public[saveBoardSettingsArgs]
	board *service.BoardService
}

func (f saveBoardSettingsField) Resolve(ctx context.Context, s *Scope, args saveBoardSettingsArgs) (*apperror.MutationResult, error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.board.SaveBoardSettings(ctx, tx, s.UserID(), args.BoardSettings); err != nil {
		return nil, err
	}
	return apperror.Success(), nil
}
