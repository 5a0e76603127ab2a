package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"luxegen-backend/internal/config"
	"luxegen-backend/internal/storage"
)

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/products/product_1_abc.jpg",
		storage.PublicURL("https://cdn.example.com/", "products", "product_1_abc.jpg"))
	assert.Equal(t, "https://cdn.example.com/products/a%20b.jpg",
		storage.PublicURL("https://cdn.example.com", "products", "a b.jpg"))
}

func TestMinIOStore_KeyFromPublicURL(t *testing.T) {
	store, err := storage.NewMinIOStore(&config.Config{
		MinIOEndpoint:  "localhost:9000",
		MinIOBucket:    "products",
		MinIOPublicURL: "https://cdn.example.com",
	})
	require.NoError(t, err)

	key, ok := store.KeyFromPublicURL("https://cdn.example.com/products/a%20b.jpg")
	assert.True(t, ok)
	assert.Equal(t, "a b.jpg", key)

	_, ok = store.KeyFromPublicURL("https://elsewhere.example.com/products/a.jpg")
	assert.False(t, ok)
}
