package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/helixchain/realtime/internal/chain"
	"github.com/helixchain/realtime/internal/emitter"
	"github.com/helixchain/realtime/internal/proofqueue"
	"github.com/helixchain/realtime/internal/router"
	"github.com/helixchain/realtime/internal/server/middleware"
	"github.com/helixchain/realtime/pkg/auth"
	"github.com/helixchain/realtime/pkg/config"
	"github.com/helixchain/realtime/pkg/state"
	"github.com/helixchain/realtime/pkg/transport"
)

// ShutdownNotice is the payload of server:shutdown.
type ShutdownNotice struct {
	Message string `json:"message"`
}

// ConnectedNotice is pushed to a client right after a successful handshake.
type ConnectedNotice struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Options are the collaborators the App is composed from. Everything is
// constructed by the caller and injected; the App owns no global state.
type Options struct {
	Logger            *slog.Logger
	Config            *config.Config
	Registry          state.Manager
	Emitter           *emitter.Emitter
	Router            *router.Router
	TokenVerifier     auth.TokenVerifier
	SignatureVerifier auth.SignatureVerifier // nil disables wallet binding
	Queue             *proofqueue.Queue
	ChainSink         *chain.ChannelSource
}

type App struct {
	logger    *slog.Logger
	registry  state.Manager
	emitter   *emitter.Emitter
	router    *router.Router
	queue     *proofqueue.Queue
	chainSink *chain.ChannelSource
	wg        sync.WaitGroup
	http      *http.Server
	config    *config.Config

	ctx context.Context
}

func NewApp(rootCtx context.Context, opts Options) *App {
	app := &App{
		logger:    opts.Logger,
		registry:  opts.Registry,
		emitter:   opts.Emitter,
		router:    opts.Router,
		queue:     opts.Queue,
		chainSink: opts.ChainSink,
		config:    opts.Config,
		ctx:       rootCtx,
	}

	mux := http.NewServeMux()
	upgradeHandler := http.HandlerFunc(app.upgradeHandler)
	connCounter := opts.Registry.ConnectionCount
	// Cycler closes the user's oldest connection to make room for a new one.
	connCycler := func(userID string) {
		oldest, found := opts.Registry.OldestUserConnection(userID)
		if found {
			opts.Logger.Info("Cycling connection: closing oldest", slog.String("userID", userID), slog.String("connID", oldest.ID.String()))
			oldest.Transport.Close(errors.New("connection cycled by new connection"))
		}
	}

	mux.Handle("/ws",
		middleware.Chain(upgradeHandler,
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(app.logger),
			middleware.NewAuthMiddleware(app.logger, opts.TokenVerifier, opts.SignatureVerifier),
			middleware.NewConnectionLimiter(
				app.logger,
				connCounter,
				connCycler,
				app.config.Server.ConnectionLimit,
			),
		),
	)

	if app.queue != nil {
		mux.HandleFunc("POST /internal/proofs", app.handleEnqueueProof)
		mux.HandleFunc("GET /internal/proofs/failed", app.handleFailedJobs)
		mux.HandleFunc("GET /internal/proofs/{id}", app.handleGetJob)
	}
	if app.chainSink != nil {
		mux.HandleFunc("POST /internal/chain-events", app.handleChainEvent)
	}
	mux.HandleFunc("GET /internal/presence", app.handlePresence)

	app.http = &http.Server{Addr: app.config.Server.Address, Handler: mux, BaseContext: func(l net.Listener) context.Context {
		return app.ctx
	}}

	return app
}

// Handler exposes the composed HTTP handler, mainly so tests can mount the
// app on their own listener.
func (a *App) Handler() http.Handler {
	return a.http.Handler
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		// The listener never came up (or died); surface it to the caller
		// instead of idling until a signal.
		a.logger.Error("HTTP server failed", slog.Any("error", err))
		return err
	case <-a.ctx.Done():
		return a.Shutdown()
	}
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, ok := middleware.ReqMetadataFrom(r.Context())
	if !ok || reqMeta.Identity == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	identity := *reqMeta.Identity
	connLogger := a.logger.With(
		slog.String("remoteAddr", reqMeta.IP),
		slog.String("userID", identity.UserID),
	)

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig(a.config.Transport),
		nil,
		nil,
		a.logger,
	)
	if _, err := a.registry.Register(conn, identity, reqMeta.IP); err != nil {
		connLogger.Error("Failed to register connection state", slog.Any("error", err))
		conn.Close(err)
		return
	}
	conn.SetOnMessageHandler(a.router.HandleMessage)
	conn.SetOnCloseHandler(func(id uuid.UUID, err error) {
		connLogger.Info("Deregistering connection due to closure", slog.String("connID", id.String()))
		if dErr := a.registry.Deregister(id); dErr != nil {
			connLogger.Error("Failed to deregister connection from state", slog.Any("error", dErr))
		}
	})

	connLogger.Info("User connection fully established", slog.String("role", string(identity.Role)))
	conn.Run()
	a.emitter.ToConnection(conn, emitter.EventConnected, ConnectedNotice{
		UserID: identity.UserID,
		Role:   string(identity.Role),
	})
	<-conn.Done()
}

// Shutdown runs the graceful shutdown sequence: notify every client, stop
// accepting new connections, then force-disconnect what is left.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")

	// Clients hear about the shutdown before any socket is torn down.
	a.emitter.Broadcast(emitter.EventServerShutdown, ShutdownNotice{Message: "server shutting down"})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil && err != context.DeadlineExceeded {
		return err
	}

	// Close all active WebSocket connections.
	a.logger.Info("Closing all active connections...")
	for _, conn := range a.registry.AllConnections() {
		conn.Close(errors.New("graceful shutdown"))
	}

	// Wait for all connection goroutines to finish their cleanup.
	a.wg.Wait()
	a.logger.Info("Server shut down gracefully.")
	return nil
}
