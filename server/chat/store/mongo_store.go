package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"chatbot_server/server/chat/domain"
	commonlog "chatbot_server/server/common/log"
)

const chatsCollection = "chats"

type turnDocument struct {
	TurnID         string    `bson:"turn_id"`
	UserID         string    `bson:"user_id"`
	ConversationID string    `bson:"conversation_id"`
	UserMessage    string    `bson:"user_message"`
	BotResponse    string    `bson:"bot_response"`
	Timestamp      time.Time `bson:"timestamp"`
}

type MongoStore struct {
	uri      string
	database string
}

func NewMongoStore(uri, database string) *MongoStore {
	if database == "" {
		database = "boarding_house_chatbot"
	}
	return &MongoStore{uri: uri, database: database}
}

func (s *MongoStore) connect(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
	if s.uri == "" {
		return nil, nil, errors.New("mongodb uri is not configured")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		s.disconnect(ctx, client)
		return nil, nil, errors.Wrap(err, "ping mongodb")
	}
	return client, client.Database(s.database), nil
}

func (s *MongoStore) disconnect(ctx context.Context, client *mongo.Client) {
	if err := client.Disconnect(context.WithoutCancel(ctx)); err != nil {
		commonlog.Warnf("event=turn_store action=disconnect driver=mongo status=failed error=%v", err)
	}
}

func (s *MongoStore) Setup(ctx context.Context) error {
	client, db, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer s.disconnect(ctx, client)

	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: chatsCollection}})
	if err != nil {
		return errors.Wrap(err, "list collections")
	}
	if len(names) == 0 {
		if err := db.CreateCollection(ctx, chatsCollection); err != nil {
			return errors.Wrap(err, "create chats collection")
		}
	}
	_, err = db.Collection(chatsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return errors.Wrap(err, "create conversation index")
}

func (s *MongoStore) SaveTurn(ctx context.Context, turn domain.Turn) error {
	if err := validateTurn(turn); err != nil {
		return err
	}
	client, db, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer s.disconnect(ctx, client)

	_, err = db.Collection(chatsCollection).InsertOne(ctx, turnDocument{
		TurnID:         turn.ID,
		UserID:         turn.UserID,
		ConversationID: turn.ConversationID,
		UserMessage:    turn.UserMessage,
		BotResponse:    turn.BotResponse,
		Timestamp:      turn.Timestamp,
	})
	return errors.Wrap(err, "insert chat turn")
}

func (s *MongoStore) History(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	return s.find(ctx, conversationID, limit, 1)
}

func (s *MongoStore) Recent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	items, err := s.find(ctx, conversationID, limit, -1)
	if err != nil {
		return nil, err
	}
	reverseTurns(items)
	return items, nil
}

// find reads turns sorted by timestamp in the given direction (1 or -1).
func (s *MongoStore) find(ctx context.Context, conversationID string, limit, direction int) ([]domain.Turn, error) {
	client, db, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.disconnect(ctx, client)

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: direction}, {Key: "_id", Value: direction}}).
		SetLimit(int64(normalizeLimit(limit))).
		SetProjection(bson.D{{Key: "_id", Value: 0}})
	cur, err := db.Collection(chatsCollection).Find(ctx, bson.D{{Key: "conversation_id", Value: conversationID}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find chat turns")
	}
	var docs []turnDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode chat turns")
	}

	items := make([]domain.Turn, 0, len(docs))
	for _, d := range docs {
		items = append(items, domain.Turn{
			ID:             d.TurnID,
			UserID:         d.UserID,
			ConversationID: d.ConversationID,
			UserMessage:    d.UserMessage,
			BotResponse:    d.BotResponse,
			Timestamp:      d.Timestamp.UTC(),
		})
	}
	return items, nil
}
