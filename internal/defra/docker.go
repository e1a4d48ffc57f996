package defra

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const (
	// DefaultImage is the DefraDB Docker image.
	DefaultImage = "sourcenetwork/defradb:latest"

	// DefaultContainerName is the container name for the managed instance.
	DefaultContainerName = "cedesk-defra"

	// ContainerPort is the DefraDB API port inside the container.
	ContainerPort = "9181/tcp"

	// DefaultHostPort is the host port to bind.
	DefaultHostPort = "9181"

	// DataDir is the data directory inside the container.
	DataDir = "/data"
)

// DockerConfig configures the DefraDB container.
type DockerConfig struct {
	Image         string
	ContainerName string
	HostPort      string
	DataVolume    string
	Logger        *slog.Logger
}

// DefaultDockerConfig returns the default container configuration.
func DefaultDockerConfig() DockerConfig {
	return DockerConfig{
		Image:         DefaultImage,
		ContainerName: DefaultContainerName,
		HostPort:      DefaultHostPort,
		DataVolume:    "cedesk-defra-data",
	}
}

// DockerManager manages the DefraDB container lifecycle.
type DockerManager struct {
	cfg    DockerConfig
	cli    *client.Client
	logger *slog.Logger
}

// NewDockerManager creates a Docker manager for DefraDB.
func NewDockerManager(cfg DockerConfig) (*DockerManager, error) {
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}
	if cfg.ContainerName == "" {
		cfg.ContainerName = DefaultContainerName
	}
	if cfg.HostPort == "" {
		cfg.HostPort = DefaultHostPort
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &DockerManager{cfg: cfg, cli: cli, logger: logger}, nil
}

// Close releases the underlying Docker client.
func (m *DockerManager) Close() error {
	return m.cli.Close()
}

// URL returns the DefraDB API URL for the managed container.
func (m *DockerManager) URL() string {
	return fmt.Sprintf("http://localhost:%s", m.cfg.HostPort)
}

// Status returns the container status string, or "not found".
func (m *DockerManager) Status(ctx context.Context) (string, error) {
	c, err := m.findContainer(ctx)
	if err != nil {
		return "", err
	}
	if c == nil {
		return "not found", nil
	}
	return c.State, nil
}

// Start ensures the DefraDB container exists and is running, then waits
// until it responds on its health endpoint.
func (m *DockerManager) Start(ctx context.Context) error {
	c, err := m.findContainer(ctx)
	if err != nil {
		return err
	}

	if c == nil {
		if err := m.createAndStart(ctx); err != nil {
			return err
		}
	} else if c.State != "running" {
		m.logger.Info("starting existing defra container", "container", m.cfg.ContainerName)
		if err := m.cli.ContainerStart(ctx, c.ID, container.StartOptions{}); err != nil {
			return fmt.Errorf("failed to start container: %w", err)
		}
	}

	return m.waitForReady(ctx)
}

// Stop stops the container if it is running.
func (m *DockerManager) Stop(ctx context.Context) error {
	c, err := m.findContainer(ctx)
	if err != nil {
		return err
	}
	if c == nil || c.State != "running" {
		return nil
	}

	timeout := 10
	if err := m.cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	m.logger.Info("stopped defra container", "container", m.cfg.ContainerName)
	return nil
}

// Remove stops and removes the container. Data persists in the volume.
func (m *DockerManager) Remove(ctx context.Context) error {
	c, err := m.findContainer(ctx)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	if err := m.cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	m.logger.Info("removed defra container", "container", m.cfg.ContainerName)
	return nil
}

// Logs returns a reader over the container logs.
func (m *DockerManager) Logs(ctx context.Context, tail string) (io.ReadCloser, error) {
	c, err := m.findContainer(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("container %s not found", m.cfg.ContainerName)
	}

	return m.cli.ContainerLogs(ctx, c.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       tail,
	})
}

// ValidateExisting checks whether an already-running container is usable:
// it must exist, be running, and respond on the health endpoint.
func (m *DockerManager) ValidateExisting(ctx context.Context) error {
	c, err := m.findContainer(ctx)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("container %s does not exist", m.cfg.ContainerName)
	}
	if c.State != "running" {
		return fmt.Errorf("container %s is not running (state: %s)", m.cfg.ContainerName, c.State)
	}

	defraClient := NewClient(m.URL())
	if err := defraClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("container running but not healthy: %w", err)
	}
	return nil
}

func (m *DockerManager) findContainer(ctx context.Context) (*container.Summary, error) {
	filterArgs := filters.NewArgs()
	filterArgs.Add("name", m.cfg.ContainerName)

	containers, err := m.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	if len(containers) == 0 {
		return nil, nil
	}
	return &containers[0], nil
}

func (m *DockerManager) createAndStart(ctx context.Context) error {
	if err := m.ensureImage(ctx); err != nil {
		return err
	}

	port := nat.Port(ContainerPort)
	containerCfg := &container.Config{
		Image: m.cfg.Image,
		Cmd: []string{
			"start",
			"--store", "badger",
			"--rootdir", DataDir,
			"--url", "0.0.0.0:9181",
		},
		ExposedPorts: nat.PortSet{port: struct{}{}},
		Labels: map[string]string{
			"app": "cedesk",
		},
	}

	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: m.cfg.HostPort}},
		},
		Binds: []string{
			fmt.Sprintf("%s:%s", m.cfg.DataVolume, DataDir),
		},
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}

	m.logger.Info("creating defra container",
		"container", m.cfg.ContainerName,
		"image", m.cfg.Image,
		"port", m.cfg.HostPort)

	resp, err := m.cli.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, m.cfg.ContainerName)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = m.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return fmt.Errorf("failed to start container: %w", err)
	}
	return nil
}

func (m *DockerManager) ensureImage(ctx context.Context) error {
	if _, err := m.cli.ImageInspect(ctx, m.cfg.Image); err == nil {
		return nil
	}

	m.logger.Info("pulling defra image", "image", m.cfg.Image)
	reader, err := m.cli.ImagePull(ctx, m.cfg.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	// Drain the pull stream so the pull completes before returning.
	_, err = io.Copy(io.Discard, reader)
	return err
}

func (m *DockerManager) waitForReady(ctx context.Context) error {
	defraClient := NewClient(m.URL())

	err := retry.Do(
		func() error {
			return defraClient.HealthCheck(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(30),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("defra did not become ready: %w", err)
	}

	m.logger.Info("defra ready", "url", m.URL())
	return nil
}
