package service

import (
	"context"
	"fmt"

	"github.com/sakif/linkboard/internal/model"
	"github.com/sakif/linkboard/internal/repository"
)

type BackgroundInput struct {
	Type  model.BoardBackgroundType `json:"type" validate:"oneof=COLOR IMAGE EARTHPORN"`
	Value string                    `json:"value"`
}

type BoardSettingsInput struct {
	Background BackgroundInput `json:"background"`
}

// BoardSettings returns the user's board settings.
func (s *BoardService) BoardSettings(ctx context.Context, tx repository.Tx, userID int64) (*model.BoardSettings, error) {
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: loading board settings: %w", err)
	}
	return &model.BoardSettings{Background: user.Background}, nil
}

// SaveBoardSettings stores the user's board settings.
func (s *BoardService) SaveBoardSettings(ctx context.Context, tx repository.Tx, userID int64, in BoardSettingsInput) error {
	bg := model.BoardBackground{Type: in.Background.Type, Value: in.Background.Value}
	if err := tx.UpdateBoardBackground(ctx, userID, bg); err != nil {
		return fmt.Errorf("service: saving board settings: %w", err)
	}
	return nil
}
