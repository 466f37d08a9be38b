package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gostpanel/console/internal/cli/client"
	"github.com/gostpanel/console/internal/cli/config"
	"github.com/gostpanel/console/internal/cli/panelselect"
	"github.com/gostpanel/console/internal/console/reload"
	"github.com/gostpanel/console/internal/console/router"
	"github.com/gostpanel/console/internal/console/session"
	"github.com/gostpanel/console/internal/console/store"
	"github.com/gostpanel/console/internal/console/views"
	"github.com/gostpanel/console/internal/logger"
)

// Command annotations read by the root's pre-run hook.
const (
	// AnnotationRoute names the route a command navigates to before it runs.
	AnnotationRoute = "route"
	// AnnotationSession asks for a rehydrated session without navigating.
	AnnotationSession = "session"
)

// ErrNotLoggedIn is returned when the guard sends a command to the login
// route.
var ErrNotLoggedIn = errors.New("not logged in, run 'gostctl login'")

// Env is what every command runs against. The root command fills it in
// before the command's RunE.
type Env struct {
	Version string

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Flags and environment.
	ConfigPath   string
	PanelName    string
	PanelURL     string
	StoreBackend string
	Page         client.PageParams

	Logger   zerolog.Logger
	Config   *config.Config
	Panel    *config.Panel
	Session  *session.Manager
	Client   *client.Client
	Router   *router.Router
	Recovery *router.Recovery
	Watcher  *reload.Watcher

	// Nav is the navigation performed for the running command.
	Nav router.Navigation

	Prompter Prompter
	// OpenStore is swapped out by tests.
	OpenStore func(backend, panel string) (store.Store, error)
	// ResolvePanel is swapped out by tests.
	ResolvePanel func(cfg *config.Config, name, rawURL string) (*config.Panel, error)
	// Reexec replaces the process image. Nil means the running executable.
	Reexec func() error
}

// NewEnv returns an Env wired to the process's stdio.
func NewEnv(version string) *Env {
	return &Env{
		Version:      version,
		In:           os.Stdin,
		Out:          os.Stdout,
		Err:          os.Stderr,
		Logger:       zerolog.Nop(),
		Prompter:     TerminalPrompter{},
		OpenStore:    store.Open,
		ResolvePanel: panelselect.Resolve,
	}
}

// LoadConfig reads console.yaml, applies the environment, and sets up
// logging. Flags already bound on the Env win over the environment.
func (e *Env) LoadConfig() error {
	config.LoadDotEnv()

	path := e.ConfigPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
		e.ConfigPath = path
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	e.Config = cfg

	if e.StoreBackend == "" {
		e.StoreBackend = cfg.Store
	}
	if e.PanelURL == "" {
		e.PanelURL = os.Getenv(config.EnvPanelURL)
	}
	if e.PanelName == "" {
		e.PanelName = os.Getenv(config.EnvPanel)
	}

	e.Logger = logger.New(e.Err, cfg.LogLevel, cfg.LogFormat)
	return nil
}

// Connect resolves the panel, opens its session store, and wires the
// session, API client and router. The session is rehydrated exactly once.
func (e *Env) Connect() error {
	if e.Session != nil {
		return nil
	}

	panel, err := e.ResolvePanel(e.Config, e.PanelName, e.PanelURL)
	if err != nil {
		return err
	}
	e.Panel = panel

	st, err := e.OpenStore(e.StoreBackend, panel.Name)
	if err != nil {
		return err
	}

	// The client reads the token from the manager on every request; the
	// manager talks to the panel through the client.
	var manager *session.Manager
	opts := []client.Option{
		client.WithTokenSource(func() string { return manager.Token() }),
	}
	if panel.Insecure {
		opts = append(opts, client.WithInsecureTLS())
	}
	if e.Config.Timeout > 0 {
		opts = append(opts, client.WithTimeout(e.Config.Timeout))
	}
	e.Client = client.New(panel.URL, opts...)

	manager = session.New(st, e.Client, e.Logger.With().Str("panel", panel.Name).Logger())
	manager.Rehydrate()
	e.Session = manager

	if e.Watcher == nil {
		if exe, err := os.Executable(); err == nil {
			if w, err := reload.NewWatcher(exe); err == nil {
				e.Watcher = w
			}
		}
	}

	e.Router = router.New(views.Routes(views.Deps{
		API:     e.Client,
		Session: manager,
		Watcher: e.Watcher,
		Page:    e.Page,
	}))
	e.Router.BeforeEach(router.Guard(views.PublicRoutes, views.Login, manager.Token))

	if e.Recovery == nil {
		e.Recovery = &router.Recovery{Reloader: router.ReloaderFunc(e.restart), Logger: e.Logger}
	}
	e.Recovery.Install(e.Router)

	e.Logger.Debug().
		Str("panel", panel.Name).
		Str("url", panel.URL).
		Bool("authenticated", manager.Authenticated()).
		Msg("Console ready")
	return nil
}

func (e *Env) restart() error {
	if e.Reexec != nil {
		return e.Reexec()
	}
	exec, err := reload.NewExec(e.Logger)
	if err != nil {
		return err
	}
	return exec.Reload()
}

// Navigate runs a navigation through the guard and records it on the Env.
// A redirect to the login route becomes ErrNotLoggedIn.
func (e *Env) Navigate(ctx context.Context, name string) error {
	nav, err := e.Router.Navigate(ctx, name)
	if err != nil {
		return err
	}
	e.Nav = nav

	if nav.Redirected && nav.Route.Name == views.Login && name != views.Login {
		return ErrNotLoggedIn
	}
	return nil
}

// PreRun is the root command's PersistentPreRunE.
func (e *Env) PreRun(cmd *cobra.Command, args []string) error {
	if err := e.LoadConfig(); err != nil {
		return err
	}

	route, hasRoute := cmd.Annotations[AnnotationRoute]
	_, wantsSession := cmd.Annotations[AnnotationSession]
	if !hasRoute && !wantsSession {
		return nil
	}

	if err := e.Connect(); err != nil {
		return err
	}
	if !hasRoute {
		return nil
	}
	return e.Navigate(cmd.Context(), route)
}

// printPage writes the page of the last navigation.
func (e *Env) printPage() {
	if e.Nav.Recovered {
		return
	}
	if e.Nav.Page.Title != "" {
		fmt.Fprintf(e.Out, "%s\n\n", e.Nav.Page.Title)
	}
	fmt.Fprint(e.Out, e.Nav.Page.Body)
}
