// Package triggerlog records alert trigger events to MongoDB for auditing.
// The log is optional: without a configured URI every write is a no-op.
package triggerlog

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB database and collection names
const (
	DatabaseName       = "stockwatch"
	TriggersCollection = "trigger_events"
)

// TriggerEvent is one alert trigger transition as observed by the
// evaluation loop
type TriggerEvent struct {
	AlertID  uint    `bson:"alert_id"`
	UserID   uint    `bson:"user_id"`
	Username string  `bson:"username"`
	Symbol   string  `bson:"symbol"`
	Price    float64 `bson:"price"`
	// Stored as a string so the decimal value survives the round trip exactly
	TargetPrice string    `bson:"target_price"`
	Condition   string    `bson:"condition"`
	TriggeredAt time.Time `bson:"triggered_at"`
}

// Logger writes trigger events to MongoDB
type Logger struct {
	client  *mongo.Client
	enabled bool
}

// New connects to MongoDB. An empty URI disables the log entirely.
func New(ctx context.Context, uri string) (*Logger, error) {
	if uri == "" {
		log.Println("MONGODB_URI not set, trigger log disabled")
		return &Logger{}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}

	log.Println("Trigger log connected to MongoDB")
	return &Logger{client: client, enabled: true}, nil
}

// Record writes one trigger event. Failures are logged and swallowed so the
// evaluation cycle is never affected by the audit path.
func (l *Logger) Record(ctx context.Context, event TriggerEvent) {
	if !l.enabled {
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	coll := l.client.Database(DatabaseName).Collection(TriggersCollection)
	if _, err := coll.InsertOne(writeCtx, event); err != nil {
		log.Printf("Warning: Failed to record trigger event for alert %d: %v", event.AlertID, err)
	}
}

// Close disconnects from MongoDB
func (l *Logger) Close(ctx context.Context) {
	if !l.enabled {
		return
	}
	if err := l.client.Disconnect(ctx); err != nil {
		log.Printf("Warning: MongoDB disconnect failed: %v", err)
	}
}
