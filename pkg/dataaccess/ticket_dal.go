package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/ticketbot/pkg/custom"
	"github.com/Jacobbrewer1/ticketbot/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/ticketbot/pkg/entities"
	"github.com/Jacobbrewer1/ticketbot/pkg/logging"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ticketDalName = "ticket_dal"

	ticketsCollection = "tickets"

	// slotsCollection holds one document per guild counting its pending and open tickets.
	slotsCollection = "ticket_slots"
)

// ticketDocument is a ticket as stored in Mongo. Active is only set while the ticket is pending or open, a
// partial unique index on it enforces one active ticket per user.
type ticketDocument struct {
	entities.Ticket `bson:",inline"`

	Active bool `bson:"active,omitempty"`
}

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// tickets is the tickets collection.
	tickets *mongo.Collection

	// slots is the per-guild open ticket counters.
	slots *mongo.Collection
}

func newTicketDal(l *slog.Logger, db *mongo.Database) *ticketDal {
	return &ticketDal{
		l:       l.With(slog.String(logging.KeyDal, ticketDalName)),
		tickets: db.Collection(ticketsCollection),
		slots:   db.Collection(slotsCollection),
	}
}

func (d *ticketDal) ensureIndexes(ctx context.Context) error {
	_, err := d.tickets.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "channel_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"channel_id": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("error creating ticket indexes: %w", err)
	}

	_, err = d.slots.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "guild_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("error creating slot index: %w", err)
	}
	return nil
}

func (d *ticketDal) GetTicket(ctx context.Context, channelID string) (t *entities.Ticket, err error) {
	done := monitoring.Track(ticketDalName, "get_ticket", BackendMongo)
	defer func() { done(ignoreExpected(err)) }()

	doc := new(ticketDocument)
	err = d.tickets.FindOne(ctx, bson.M{"channel_id": channelID}).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return &doc.Ticket, nil
}

// Reserve inserts a pending ticket, which the partial unique index rejects if the user already has an active
// one, and then claims a slot from the guild's counter.
func (d *ticketDal) Reserve(ctx context.Context, guildID, userID, username string, limit int) (res *Reservation, err error) {
	done := monitoring.Track(ticketDalName, "reserve", BackendMongo)
	defer func() { done(ignoreExpected(err)) }()

	doc := &ticketDocument{
		Ticket: entities.Ticket{
			ID:        uuid.NewString(),
			GuildID:   guildID,
			UserID:    userID,
			Username:  username,
			Status:    entities.TicketStatusPending,
			CreatedAt: custom.Now(),
		},
		Active: true,
	}

	if _, err := d.tickets.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrAlreadyOpen
		}
		return nil, fmt.Errorf("error inserting reservation: %w", err)
	}

	err = d.claimSlot(ctx, guildID, limit)
	if err != nil {
		// The slot was not claimed, drop the pending ticket again.
		if _, delErr := d.tickets.DeleteOne(ctx, bson.M{"id": doc.ID, "status": entities.TicketStatusPending}); delErr != nil {
			d.l.Error("Error removing reservation after failed slot claim",
				slog.String(logging.KeyError, delErr.Error()),
				slog.String(logging.KeyGuildID, guildID),
				slog.String(logging.KeyUserID, userID),
			)
		}
		return nil, err
	}

	return &Reservation{
		TicketID: doc.ID,
		GuildID:  guildID,
		UserID:   userID,
	}, nil
}

func (d *ticketDal) Finalize(ctx context.Context, res *Reservation, channelID string) (t *entities.Ticket, err error) {
	done := monitoring.Track(ticketDalName, "finalize", BackendMongo)
	defer func() { done(err) }()

	doc := new(ticketDocument)
	err = d.tickets.FindOneAndUpdate(ctx,
		bson.M{"id": res.TicketID, "status": entities.TicketStatusPending},
		bson.M{"$set": bson.M{"status": entities.TicketStatusOpen, "channel_id": channelID}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotPending
	} else if err != nil {
		return nil, fmt.Errorf("error finalizing ticket: %w", err)
	}
	return &doc.Ticket, nil
}

func (d *ticketDal) Release(ctx context.Context, res *Reservation) (err error) {
	done := monitoring.Track(ticketDalName, "release", BackendMongo)
	defer func() { done(err) }()

	r, err := d.tickets.DeleteOne(ctx, bson.M{"id": res.TicketID, "status": entities.TicketStatusPending})
	if err != nil {
		return fmt.Errorf("error releasing reservation: %w", err)
	}
	if r.DeletedCount == 0 {
		return nil
	}
	return d.freeSlot(ctx, res.GuildID)
}

func (d *ticketDal) TransitionToClosed(ctx context.Context, channelID, closedBy string) (t *entities.Ticket, prior entities.TicketStatus, err error) {
	done := monitoring.Track(ticketDalName, "transition_to_closed", BackendMongo)
	defer func() { done(ignoreExpected(err)) }()

	doc := new(ticketDocument)
	err = d.tickets.FindOneAndUpdate(ctx,
		bson.M{"channel_id": channelID, "status": entities.TicketStatusOpen},
		bson.M{
			"$set": bson.M{
				"status":    entities.TicketStatusClosed,
				"closed_by": closedBy,
				"closed_at": custom.Now(),
			},
			"$unset": bson.M{"active": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		existing, getErr := d.GetTicket(ctx, channelID)
		if getErr != nil {
			return nil, "", ErrNotOpen
		}
		return nil, existing.Status, ErrNotOpen
	} else if err != nil {
		return nil, "", fmt.Errorf("error closing ticket: %w", err)
	}

	if err := d.freeSlot(ctx, doc.GuildID); err != nil {
		// The ticket is closed either way, a stale counter only causes early limit hits.
		d.l.Error("Error freeing ticket slot",
			slog.String(logging.KeyError, err.Error()),
			slog.String(logging.KeyGuildID, doc.GuildID),
		)
	}
	return &doc.Ticket, entities.TicketStatusOpen, nil
}

func (d *ticketDal) ListOpenTickets(ctx context.Context, guildID string) (tickets []*entities.Ticket, err error) {
	done := monitoring.Track(ticketDalName, "list_open_tickets", BackendMongo)
	defer func() { done(err) }()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}})
	cur, err := d.tickets.Find(ctx, bson.M{"guild_id": guildID, "status": entities.TicketStatusOpen}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing tickets: %w", err)
	}

	docs := make([]*ticketDocument, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding tickets: %w", err)
	}

	tickets = make([]*entities.Ticket, len(docs))
	for i, doc := range docs {
		tickets[i] = &doc.Ticket
	}
	return tickets, nil
}

func (d *ticketDal) DeleteTicket(ctx context.Context, channelID string) (err error) {
	done := monitoring.Track(ticketDalName, "delete_ticket", BackendMongo)
	defer func() { done(ignoreExpected(err)) }()

	doc := new(ticketDocument)
	err = d.tickets.FindOneAndDelete(ctx, bson.M{"channel_id": channelID}).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	} else if err != nil {
		return fmt.Errorf("error deleting ticket: %w", err)
	}

	if doc.Status.Active() {
		return d.freeSlot(ctx, doc.GuildID)
	}
	return nil
}

func (d *ticketDal) DeleteAllTickets(ctx context.Context, guildID string) (n int64, err error) {
	done := monitoring.Track(ticketDalName, "delete_all_tickets", BackendMongo)
	defer func() { done(err) }()

	r, err := d.tickets.DeleteMany(ctx, bson.M{"guild_id": guildID})
	if err != nil {
		return 0, fmt.Errorf("error deleting tickets: %w", err)
	}

	if _, err := d.slots.DeleteOne(ctx, bson.M{"guild_id": guildID}); err != nil {
		return r.DeletedCount, fmt.Errorf("error resetting ticket slots: %w", err)
	}
	return r.DeletedCount, nil
}

// claimSlot increments the guild's counter only while it is below the limit. The counter document is created
// first with an equality-only upsert, which the server retries on a duplicate key.
func (d *ticketDal) claimSlot(ctx context.Context, guildID string, limit int) error {
	_, err := d.slots.UpdateOne(ctx,
		bson.M{"guild_id": guildID},
		bson.M{"$setOnInsert": bson.M{"open": 0}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("error creating ticket slots: %w", err)
	}

	err = d.slots.FindOneAndUpdate(ctx,
		bson.M{"guild_id": guildID, "open": bson.M{"$lt": limit}},
		bson.M{"$inc": bson.M{"open": 1}},
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrLimitReached
	} else if err != nil {
		return fmt.Errorf("error claiming ticket slot: %w", err)
	}
	return nil
}

func (d *ticketDal) freeSlot(ctx context.Context, guildID string) error {
	_, err := d.slots.UpdateOne(ctx,
		bson.M{"guild_id": guildID, "open": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"open": -1}},
	)
	if err != nil {
		return fmt.Errorf("error freeing ticket slot: %w", err)
	}
	return nil
}
