package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tomatotech/respcache/test"
)

const testURI = "mongodb://localhost:27017"

func setupMongo(t *testing.T) *KV {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(testURI))
	if err != nil {
		t.Skipf("skipping test; cannot connect to mongodb at %s", testURI)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("skipping test; no mongodb server running at %s", testURI)
	}
	t.Cleanup(func() {
		_ = client.Database("respcache_test").Drop(context.Background()) //nolint:errcheck // test cleanup
		_ = client.Disconnect(context.Background())                      //nolint:errcheck // test cleanup
	})

	kv, err := New(client, Config{Database: "respcache_test"})
	require.NoError(t, err)
	return kv
}

func TestMongoKV(t *testing.T) {
	test.KV(t, setupMongo(t))
}

func TestMongoRequiresClient(t *testing.T) {
	_, err := New(nil, Config{})
	assert.Error(t, err)
}
