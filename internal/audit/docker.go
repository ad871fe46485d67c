package audit

import (
	"bytes"
	"context"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/shyim/lighthouse-compare/internal/models"
)

const DefaultDockerImage = "femtopixel/google-lighthouse:latest"

// containerAPI is the part of the docker client the engine uses.
type containerAPI interface {
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// DockerEngine runs every audit in a throwaway container that bundles
// Chrome and lighthouse.
type DockerEngine struct {
	api    containerAPI
	image  string
	pulled bool
	logger *logrus.Logger
}

func NewDockerEngine(img string, logger *logrus.Logger) (*DockerEngine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create docker client")
	}
	return newDockerEngine(cli, img, logger), nil
}

func newDockerEngine(api containerAPI, img string, logger *logrus.Logger) *DockerEngine {
	if img == "" {
		img = DefaultDockerImage
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DockerEngine{api: api, image: img, logger: logger}
}

func (e *DockerEngine) Audit(ctx context.Context, url string, p Profile) (*models.LighthouseReport, error) {
	if err := e.ensureImage(ctx); err != nil {
		return nil, err
	}

	created, err := e.api.ContainerCreate(ctx, e.containerConfig(url, p), &container.HostConfig{
		ShmSize: 1 << 30,
	}, nil, nil, "")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create lighthouse container")
	}
	defer func() {
		// The caller's context may already be done; removal must still run.
		if err := e.api.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{Force: true}); err != nil {
			e.logger.WithError(err).WithField("container", created.ID).Warn("Failed to remove lighthouse container")
		}
	}()

	if err := e.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, errors.Wrap(err, "failed to start lighthouse container")
	}

	statusCh, errCh := e.api.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	var exitCode int64
	select {
	case err := <-errCh:
		if err != nil {
			return nil, errors.Wrap(err, "failed waiting for lighthouse container")
		}
	case status := <-statusCh:
		exitCode = status.StatusCode
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	logs, err := e.api.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read lighthouse output")
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return nil, errors.Wrap(err, "failed to demultiplex lighthouse output")
	}

	if exitCode != 0 {
		return nil, errors.Errorf("lighthouse exited with status %d: %s", exitCode, tail(stderr.String(), 2048))
	}

	return parseReport(stdout.Bytes())
}

func (e *DockerEngine) containerConfig(url string, p Profile) *container.Config {
	cmd := []string{url}
	cmd = append(cmd, lighthouseFlags(p)...)
	cmd = append(cmd, "--chrome-flags=--headless --no-sandbox --disable-gpu --disable-dev-shm-usage")

	return &container.Config{
		Image:      e.image,
		Entrypoint: []string{"lighthouse"},
		Cmd:        cmd,
		Labels: map[string]string{
			"lighthouse-compare.device": string(p.Device),
		},
	}
}

func (e *DockerEngine) ensureImage(ctx context.Context) error {
	if e.pulled {
		return nil
	}

	e.logger.WithField("image", e.image).Info("Pulling lighthouse image")
	rc, err := e.api.ImagePull(ctx, e.image, image.PullOptions{})
	if err != nil {
		return errors.Wrapf(err, "failed to pull %s", e.image)
	}
	defer rc.Close()

	if _, err := io.Copy(io.Discard, rc); err != nil {
		return errors.Wrapf(err, "failed to pull %s", e.image)
	}
	e.pulled = true
	return nil
}
