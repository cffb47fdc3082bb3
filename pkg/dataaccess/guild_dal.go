package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/ticketbot/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	guildDalName = "guild_dal"

	settingsCollection = "settings"
)

type guildDal struct {
	// l is the logger.
	l *slog.Logger

	// collection is the settings collection.
	collection *mongo.Collection
}

func newGuildDal(l *slog.Logger, db *mongo.Database) *guildDal {
	return &guildDal{
		l:          l.With(slog.String(logging.KeyDal, guildDalName)),
		collection: db.Collection(settingsCollection),
	}
}

func (g *guildDal) ensureIndexes(ctx context.Context) error {
	_, err := g.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "guild_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("error creating settings index: %w", err)
	}
	return nil
}

// GetSettings gets the settings of a guild.
func (g *guildDal) GetSettings(ctx context.Context, guildID string) (settings *entities.GuildSettings, err error) {
	done := monitoring.Track(guildDalName, "get_settings", BackendMongo)
	defer func() { done(ignoreExpected(err)) }()

	settings = new(entities.GuildSettings)
	err = g.collection.FindOne(ctx, bson.M{"guild_id": guildID}).Decode(settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting settings: %w", err)
	}
	return settings, nil
}

// UpsertSettings sets the given fields of the settings of a guild.
func (g *guildDal) UpsertSettings(ctx context.Context, guildID string, update *entities.SettingsUpdate) (err error) {
	if update.IsEmpty() {
		return nil
	}

	done := monitoring.Track(guildDalName, "upsert_settings", BackendMongo)
	defer func() { done(err) }()

	set := bson.M{}
	if update.LogsChannelID != nil {
		set["logs_channel_id"] = *update.LogsChannelID
	}
	if update.SupportRoleID != nil {
		set["support_role_id"] = *update.SupportRoleID
	}
	if update.TicketCategoryID != nil {
		set["ticket_category_id"] = *update.TicketCategoryID
	}
	if update.TicketLimit != nil {
		set["ticket_limit"] = *update.TicketLimit
	}
	if update.PanelDescription != nil {
		set["panel_description"] = *update.PanelDescription
	}
	if update.TicketMessageTemplate != nil {
		set["ticket_message_template"] = *update.TicketMessageTemplate
	}

	opts := options.Update().SetUpsert(true)
	if _, err := g.collection.UpdateOne(ctx, bson.M{"guild_id": guildID}, bson.M{"$set": set}, opts); err != nil {
		return fmt.Errorf("error updating settings: %w", err)
	}
	return nil
}

// ignoreExpected keeps sentinel outcomes out of the error metrics.
func ignoreExpected(err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAlreadyOpen),
		errors.Is(err, ErrLimitReached),
		errors.Is(err, ErrNotOpen):
		return nil
	}
	return err
}
