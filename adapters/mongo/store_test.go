package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/lingualoop/adapters/storetest"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

// TestStore_Integration requires a running MongoDB instance (skipped if MONGODB_URI is not set)
func TestStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, Config{URI: uri, Database: "lingualoop_test"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Close(ctx)

	storetest.Run(t, func(t *testing.T) repositories.Store {
		db := client.Client.Database(fmt.Sprintf("lingualoop_test_%d", time.Now().UnixNano()))
		t.Cleanup(func() { db.Drop(context.Background()) })
		if err := ensureIndexes(ctx, db); err != nil {
			t.Fatalf("ensureIndexes: %v", err)
		}
		return NewStore(db)
	})
}

func TestConfig_Validate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Error("Expected error for empty config")
	}
	if err := (Config{URI: "mongodb://localhost", Database: "x"}).Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}
