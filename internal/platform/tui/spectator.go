package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/antcraft/internal/multiplayer"
)

// SpectatorConfig holds configuration for the SSH spectator server.
type SpectatorConfig struct {
	// Address is the host:port to listen on (e.g., ":23235").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.antcraft/host_key.
	HostKeyPath string

	// MatchID selects the watched match. Empty watches the first running one.
	MatchID multiplayer.MatchID

	// TickRate is used for the HUD clock.
	TickRate int

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration
}

// DefaultSpectatorConfig returns a config with sensible defaults.
func DefaultSpectatorConfig() SpectatorConfig {
	return SpectatorConfig{
		Address:     ":23235",
		TickRate:    10,
		IdleTimeout: 30 * time.Minute,
	}
}

// SpectatorServer streams read-only match views to ssh clients.
type SpectatorServer struct {
	config SpectatorConfig
	server *ssh.Server
	coord  *multiplayer.Coordinator
	logger *log.Logger
}

// NewSpectatorServer creates a Wish server whose sessions watch matches run
// by coord.
func NewSpectatorServer(cfg SpectatorConfig, coord *multiplayer.Coordinator, logger *log.Logger) (*SpectatorServer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	srv := &SpectatorServer{
		config: cfg,
		coord:  coord,
		logger: logger.WithPrefix("spectate"),
	}

	// Resolve host key path
	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".antcraft", "host_key")
	}

	// Ensure host key directory exists
	if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", err)
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}
	srv.server = server
	return srv, nil
}

// watchTarget picks the match a new spectator attaches to.
func (s *SpectatorServer) watchTarget() multiplayer.MatchID {
	if s.config.MatchID != "" {
		return s.config.MatchID
	}
	if matches := s.coord.Matches(); len(matches) > 0 {
		return matches[0].ID
	}
	return ""
}

// teaHandler creates a read-only match view for each SSH session.
func (s *SpectatorServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	id := multiplayer.SessionID(fmt.Sprintf("%s-%d", sshSession.User(), time.Now().UnixNano()))
	session := multiplayer.NewChannelSession(id, 16)
	s.coord.Sessions().Register(session)

	matchID := s.watchTarget()
	s.coord.Send(multiplayer.WatchMatchMsg{SessionID: id, MatchID: matchID})

	go func() {
		<-sshSession.Context().Done()
		s.coord.Send(multiplayer.SessionDisconnectedMsg{SessionID: id})
		session.Close()
	}()

	model := NewMatchModel(MatchModelConfig{
		SessionID: id,
		MatchID:   matchID,
		Events:    session.Events(),
		ReadOnly:  true,
		TickRate:  s.config.TickRate,
		Width:     pty.Window.Width,
		Height:    pty.Window.Height,
	})
	return model, []tea.ProgramOption{tea.WithAltScreen()}
}

// loggingMiddleware logs SSH session events.
func (s *SpectatorServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("spectator connected",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("spectator left",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *SpectatorServer) ListenAndServe(ctx context.Context) error {
	s.logger.Info("starting SSH spectator server", "address", s.config.Address)

	errc := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("shutting down spectator server")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SpectatorServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SpectatorServer) Addr() string {
	return s.config.Address
}
