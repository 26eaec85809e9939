package services

import (
	"context"

	"github.com/yoockh/bookbot/internal/models"
	mongorepo "github.com/yoockh/bookbot/internal/repositories/mongo"
	"github.com/yoockh/bookbot/internal/utils"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

type ChatLogService interface {
	Recent(ctx context.Context, username string, limit int64) ([]models.ChatLog, error)
}

type chatLogService struct {
	logs mongorepo.ChatLogRepository
}

func NewChatLogService(logs mongorepo.ChatLogRepository) ChatLogService {
	return &chatLogService{logs: logs}
}

func (s *chatLogService) Recent(ctx context.Context, username string, limit int64) ([]models.ChatLog, error) {
	const op = "ChatLogService.Recent"

	if s.logs == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "chat history is not enabled", nil)
	}
	if username == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "username is required", nil)
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	rows, err := s.logs.RecentByUser(ctx, username, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list chat history", err)
	}
	if rows == nil {
		rows = []models.ChatLog{}
	}
	return rows, nil
}
