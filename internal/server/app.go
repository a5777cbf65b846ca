// Package server initializes and runs the filevault server.
// It opens the relational and blob stores, wires the services, handles
// graceful shutdown and starts the gRPC server.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/services"

	gs "github.com/dmitrijs2005/filevault/internal/server/grpc"
)

// grpcOverhead leaves room for the JSON envelope around an upload body.
// Base64 grows data by a third.
const grpcOverhead = 1 << 20

type App struct {
	config  *config.Config
	logger  logging.Logger
	closers []func() error
	server  *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {

	logger := logging.New(w, c.LogFormat, c.LogLevel)

	st, err := OpenStorage(ctx, c, true)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, closeBlobs, err := blobstore.Open(ctx, c)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	us, err := NewUserService(c, st, logger)
	if err != nil {
		_ = closeBlobs()
		_ = st.Close()
		return nil, err
	}
	fs := services.NewFileService(st.DB, st.Repos, blobs, c, logger)
	ss := services.NewSharingService(st.DB, st.Repos, logger)

	maxMsg := int((c.MaxUploadSize+2)/3*4) + grpcOverhead
	srv := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, us, fs, ss, maxMsg)

	return &App{
		config:  c,
		logger:  logger,
		closers: []func() error{closeBlobs, st.Close},
		server:  srv,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Close releases the stores.
func (app *App) Close() error {
	var errs []error
	for _, c := range app.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "blob_backend", app.config.BlobBackend)

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "error closing stores", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
