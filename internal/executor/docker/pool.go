package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"golang.org/x/sync/errgroup"
)

// Pool keeps a number of idle containers running so a test can start with a
// plain `docker exec` instead of a container boot.
type Pool struct {
	cli        apiClient
	config     Config
	logger     *slog.Logger
	containers chan string
	done       chan struct{}
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once

	mu        sync.Mutex
	createErr error // last container creation failure; nil after a success
}

// NewPool initializes a new container pool wrapper.
func NewPool(cli apiClient, cfg Config, logger *slog.Logger) *Pool {
	return &Pool{
		cli:        cli,
		config:     cfg,
		logger:     logger,
		containers: make(chan string, cfg.PoolSize),
		done:       make(chan struct{}),
	}
}

// Start begins filling the pool with fresh containers in the background.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting container pool",
			slog.Int("poolSize", p.config.PoolSize),
			slog.String("image", p.config.Image),
		)
		p.wg.Add(1)
		go p.manager()
	})
}

// Stop shuts down the manager and removes all idle containers.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("shutting down container pool")
		close(p.done)
		p.wg.Wait()

		var g errgroup.Group
		g.SetLimit(4)
		for {
			select {
			case id := <-p.containers:
				g.Go(func() error { return p.remove(id) })
			default:
				if err := g.Wait(); err != nil {
					p.logger.Warn("idle containers left behind", slog.String("error", err.Error()))
				}
				return
			}
		}
	})
}

// Acquire hands out an idle container. The container belongs to the caller
// from then on and must be given back with Release.
//
// It waits at most AcquireTimeout, and fails at once while the pool is
// empty and the daemon is refusing to create containers.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.AcquireTimeout)
	defer cancel()

	health := time.NewTicker(50 * time.Millisecond)
	defer health.Stop()

	for {
		select {
		case id := <-p.containers:
			return id, nil
		case <-p.done:
			return "", fmt.Errorf("docker: pool is stopped")
		case <-ctx.Done():
			return "", fmt.Errorf("docker: no idle container: %w", ctx.Err())
		case <-health.C:
			if err := p.lastCreateErr(); err != nil {
				return "", fmt.Errorf("docker: pool cannot create containers: %w", err)
			}
		}
	}
}

func (p *Pool) lastCreateErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createErr
}

func (p *Pool) setCreateErr(err error) {
	p.mu.Lock()
	p.createErr = err
	p.mu.Unlock()
}

// Release force removes a container that has served one test.
func (p *Pool) Release(id string) {
	if err := p.remove(id); err != nil {
		p.logger.Error("failed to remove container", slog.String("id", id), slog.String("error", err.Error()))
	}
}

func (p *Pool) remove(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("docker: removing container %s: %w", id, err)
	}
	return nil
}

// manager keeps the pool at capacity until Stop.
func (p *Pool) manager() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		if len(p.containers) >= cap(p.containers) {
			select {
			case <-p.done:
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		id, err := p.createContainer()
		p.setCreateErr(err)
		if err != nil {
			p.logger.Error("failed to create idle container", slog.String("error", err.Error()))
			select {
			case <-p.done:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case p.containers <- id:
		case <-p.done:
			p.Release(id)
			return
		}
	}
}

// createContainer starts a container that only sleeps; tests are exec'd into it.
func (p *Pool) createContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hostConfig := &container.HostConfig{
		// MPI ranks talk over loopback only.
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   p.config.MemoryLimit,
			NanoCPUs: int64(p.config.CPULimit * 1e9),
		},
		Binds: []string{p.config.MountDir + ":" + p.config.MountDir},
		// MPI needs a writable /dev/shm and /tmp.
		ShmSize: 512 * 1024 * 1024,
	}

	resp, err := p.cli.ContainerCreate(ctx, &container.Config{
		Image:      p.config.Image,
		Cmd:        []string{"sleep", "infinity"},
		User:       p.config.User,
		WorkingDir: p.config.MountDir,
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("ContainerCreate failed: %w", err)
	}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.Release(resp.ID)
		return "", fmt.Errorf("ContainerStart failed: %w", err)
	}

	return resp.ID, nil
}
