package blob_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/blob"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	minioImage  = "minio/minio:RELEASE.2024-10-13T13-34-11Z"
	minioUser   = "sharebox"
	minioSecret = "sharebox-secret"
)

// startMinIO runs a throwaway MinIO server and returns its host:port.
func startMinIO(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        minioImage,
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioSecret,
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").
			WithPort("9000/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestS3(t *testing.T) {
	endpoint := startMinIO(t)
	ctx := context.Background()

	s, err := blob.NewS3(ctx, blob.S3Config{
		Endpoint:  endpoint,
		Bucket:    "uploads",
		AccessKey: minioUser,
		SecretKey: minioSecret,
		Prefix:    "/sharebox/",
	})
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	key := blob.ObjectPath("p1", "f1", "hello.txt")
	require.NoError(t, s.Put(ctx, key, strings.NewReader("hello"), 5, "text/plain"))

	size, err := s.Stat(ctx, key)
	require.NoError(t, err)
	require.EqualValues(t, 5, size)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "deleting a missing key succeeds")

	_, err = s.Stat(ctx, key)
	require.ErrorIs(t, err, blob.ErrNotFound)

	require.ErrorIs(t, s.Put(ctx, "../x", strings.NewReader("x"), 1, ""), blob.ErrInvalidKey)
}
