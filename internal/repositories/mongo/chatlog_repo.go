package mongo

import (
	"context"
	"time"

	"github.com/yoockh/bookbot/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ChatLogCollection = "chat_logs"

type ChatLogRepository interface {
	Insert(ctx context.Context, l *models.ChatLog) error
	RecentByUser(ctx context.Context, username string, limit int64) ([]models.ChatLog, error)
}

type chatLogRepo struct {
	col *mongo.Collection
}

func NewChatLogRepo(db *mongo.Database) ChatLogRepository {
	return &chatLogRepo{col: db.Collection(ChatLogCollection)}
}

func (r *chatLogRepo) Insert(ctx context.Context, l *models.ChatLog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, l)
	return err
}

func (r *chatLogRepo) RecentByUser(ctx context.Context, username string, limit int64) ([]models.ChatLog, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := r.col.Find(ctx,
		bson.M{"username": username},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ChatLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
