package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MinioConfig holds the MinIO test container configuration.
type MinioConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	ContainerImage  string
}

func (cfg *MinioConfig) Validate() error {
	if cfg.AccessKeyID == "" {
		cfg.AccessKeyID = "test-access-key"
	}
	if cfg.SecretAccessKey == "" {
		cfg.SecretAccessKey = "test-secret-key"
	}
	if cfg.ContainerImage == "" {
		cfg.ContainerImage = "minio/minio:latest"
	}
	return nil
}

// MinioServer represents a MinIO test container serving an S3-compatible API.
type MinioServer struct {
	log       *slog.Logger
	cfg       *MinioConfig
	endpoint  string
	container testcontainers.Container
}

// Endpoint returns the HTTP endpoint of the S3 API.
func (s *MinioServer) Endpoint() string {
	return s.endpoint
}

// AccessKeyID returns the root access key of the server.
func (s *MinioServer) AccessKeyID() string {
	return s.cfg.AccessKeyID
}

// SecretAccessKey returns the root secret key of the server.
func (s *MinioServer) SecretAccessKey() string {
	return s.cfg.SecretAccessKey
}

// Close terminates the MinIO container.
func (s *MinioServer) Close() {
	terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.container.Terminate(terminateCtx); err != nil {
		s.log.Error("failed to terminate MinIO container", "error", err)
	}
}

// NewMinioServer creates a new MinIO testcontainer.
func NewMinioServer(ctx context.Context, log *slog.Logger, cfg *MinioConfig) (*MinioServer, error) {
	if cfg == nil {
		cfg = &MinioConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate minio config: %w", err)
	}

	apiPort := nat.Port("9000/tcp")
	req := testcontainers.ContainerRequest{
		Image:        cfg.ContainerImage,
		Cmd:          []string{"server", "/data"},
		ExposedPorts: []string{string(apiPort)},
		Env: map[string]string{
			"MINIO_ROOT_USER":     cfg.AccessKeyID,
			"MINIO_ROOT_PASSWORD": cfg.SecretAccessKey,
		},
		WaitingFor: wait.ForListeningPort(apiPort).WithStartupTimeout(60 * time.Second),
	}

	// Retry container start a few times for transient docker errors.
	var container testcontainers.Container
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		var err error
		container, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			lastErr = err
			if isRetryableContainerStartErr(err) && attempt < 3 {
				time.Sleep(time.Duration(attempt) * 750 * time.Millisecond)
				continue
			}
			return nil, fmt.Errorf("failed to start MinIO container after retries: %w", lastErr)
		}
		break
	}
	if container == nil {
		return nil, fmt.Errorf("failed to start MinIO container after retries: %w", lastErr)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get MinIO container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, apiPort)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get MinIO mapped port: %w", err)
	}

	return &MinioServer{
		log:       log,
		cfg:       cfg,
		endpoint:  fmt.Sprintf("http://%s:%s", host, mappedPort.Port()),
		container: container,
	}, nil
}
