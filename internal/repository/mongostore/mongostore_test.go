package mongostore_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/repository/mongostore"
	"github.com/iliyamo/service-marketplace/internal/repository/storetest"
)

// Runs against a live server only when TEST_MONGO_URI is set.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := mongostore.Connect(ctx, uri, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	storetest.Run(t, func(t *testing.T) repository.Store {
		name := "marketplace_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
		db := client.Database(name)
		require.NoError(t, mongostore.EnsureIndexes(ctx, db))
		t.Cleanup(func() { _ = db.Drop(context.Background()) })
		return mongostore.New(client, db)
	})
}
