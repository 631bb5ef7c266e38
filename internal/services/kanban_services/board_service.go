package kanban_services

import (
	"context"
	"log"

	"siteboard/internal/model/auth_model"
	"siteboard/internal/model/kanban_model"
	"siteboard/internal/model/project_model"
)

type BoardService struct {
	Boards BoardStore
	Access AccessChecker
}

func NewBoardService(boards BoardStore, access AccessChecker) *BoardService {
	return &BoardService{Boards: boards, Access: access}
}

type BoardResponse struct {
	*kanban_model.BoardView
	Capabilities project_model.Capabilities `json:"capabilities"`
}

// Board returns the project's board, provisioning it with the default
// columns on first access.
func (s *BoardService) Board(ctx context.Context, actor auth_model.Actor, projectID string) (*BoardResponse, error) {
	caps, err := s.Access.Capabilities(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if !caps.CanView {
		return nil, ErrPermissionDenied
	}

	board, created, err := s.Boards.GetOrCreateBoard(ctx, projectID, actor.ID)
	if err != nil {
		return nil, err
	}
	if created {
		log.Printf("INFO: created kanban board for project %s", projectID)
	}

	view, err := s.Boards.BoardView(ctx, board)
	if err != nil {
		return nil, err
	}
	return &BoardResponse{BoardView: view, Capabilities: caps}, nil
}
