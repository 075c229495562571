package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chicogong/pattern-planner/pkg/config"
	"github.com/chicogong/pattern-planner/pkg/logging"
	"github.com/chicogong/pattern-planner/pkg/storage"
	"github.com/chicogong/pattern-planner/pkg/store"
)

func TestNewAuth(t *testing.T) {
	logger := logging.Discard()

	m, err := newAuth(&config.Config{}, logger)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = newAuth(&config.Config{JWTSecret: "secret", APIKeys: []string{"ci:key-1"}}, logger)
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = newAuth(&config.Config{APIKeys: []string{"ci:"}}, logger)
	assert.ErrorContains(t, err, "API_KEYS")
}

func TestNewStorageRouter_Minio(t *testing.T) {
	router, err := newStorageRouter(context.Background(), config.ArtifactConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	}, logging.Discard())
	require.NoError(t, err)

	backend, err := router.Backend("s3://artifacts/jobs/1/code.txt")
	require.NoError(t, err)
	assert.IsType(t, &storage.MinioStorage{}, backend)

	backend, err = router.Backend("file:///tmp/code.txt")
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, backend)
}

func TestOpenStore_Memory(t *testing.T) {
	s, err := openStore(context.Background(), &config.Config{}, logging.Discard())
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &store.MemoryStore{}, s)
}
