package dataaccess

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/ticketbot/pkg/dataaccess/monitoring"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStore is a Store backed by MongoDB.
type MongoStore struct {
	*guildDal
	*ticketDal

	// client is the database client. This is a connection pool.
	client *mongo.Client
}

// NewMongoStore creates the store on the given database and makes sure its indexes exist.
func NewMongoStore(ctx context.Context, l *slog.Logger, client *mongo.Client, database string) (*MongoStore, error) {
	db := client.Database(database)

	s := &MongoStore{
		guildDal:  newGuildDal(l, db),
		ticketDal: newTicketDal(l, db),
		client:    client,
	}

	if err := s.guildDal.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := s.ticketDal.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	done := monitoring.Track("health_check", "ping", BackendMongo)
	err := s.client.Ping(ctx, nil)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("error disconnecting from mongo: %w", err)
	}
	return nil
}
