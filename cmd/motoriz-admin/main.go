// Command motoriz-admin is an interactive console for the Motoriz back office.
// With --server it edits a running motoriz-server over its REST API;
// otherwise it works on local storage.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"motoriz/internal/config"
	"motoriz/internal/console"
	"motoriz/internal/core"
	"motoriz/internal/logging"
	"motoriz/internal/seed"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "motoriz-admin:", err)
		os.Exit(1)
	}
}

type flags struct {
	config    string
	server    string
	email     string
	password  string
	session   string
	history   string
	exportDir string
	logLevel  string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet("motoriz-admin", pflag.ContinueOnError)
	fs.StringVarP(&f.config, "config", "c", "", "YAML config file for local storage")
	fs.StringVarP(&f.server, "server", "s", "", "motoriz-server base URL, e.g. http://localhost:8080")
	fs.StringVarP(&f.email, "email", "e", "", "login email (remote mode)")
	fs.StringVar(&f.password, "password", "", "login password (remote mode; prompted when empty)")
	fs.StringVar(&f.session, "session", console.DefaultSessionPath(), "session file")
	fs.StringVar(&f.history, "history", defaultHistoryPath(), "command history file, empty disables")
	fs.StringVar(&f.exportDir, "export-dir", ".", "directory for CSV exports")
	fs.StringVar(&f.logLevel, "log-level", "warn", "debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	return f, nil
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".motoriz", "history")
}

func run(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	zl, closeLog, err := logging.New(logging.Options{Level: f.logLevel, Format: "console"})
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	logger := logging.NewAdapter(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	line := liner.NewLiner()
	defer func() { _ = line.Close() }()
	line.SetCtrlCAborts(true)

	sessions := &console.SessionFile{Path: f.session}
	state, err := sessions.Load()
	if err != nil {
		logger.Warn("ignoring unreadable session", "path", f.session, "error", err)
		state = console.SessionState{}
	}

	svc, state, err := openService(ctx, f, line, state, logger)
	if err != nil {
		return err
	}
	if err := sessions.Save(state); err != nil {
		logger.Warn("session not saved", "path", f.session, "error", err)
	}

	c := console.New(svc, console.Options{
		Prompter:  historyPrompter{line},
		Out:       os.Stdout,
		Session:   sessions,
		State:     state,
		ExportDir: f.exportDir,
		Logger:    logger,
	})
	line.SetCompleter(c.Completions)

	loadHistory(line, f.history)
	defer saveHistory(line, f.history)
	return c.Run(ctx)
}

// openService connects to the server named by --server, reusing the saved
// token when it belongs to the same server, or opens local storage.
func openService(ctx context.Context, f flags, line *liner.State, state console.SessionState, logger core.Logger) (*core.Service, console.SessionState, error) {
	opts := []core.Option{core.WithLogger(logger)}
	if f.server == "" {
		if f.config != "" {
			if err := os.Setenv(config.EnvConfigPath, f.config); err != nil {
				return nil, state, err
			}
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, state, err
		}
		if cfg.Storage.Driver == string(core.StorageRemote) {
			f.server = cfg.Storage.RemoteURL
		} else {
			return openLocal(ctx, cfg, state, opts)
		}
	}

	opened, err := core.OpenBackends(ctx, core.StorageOptions{Driver: core.StorageRemote, RemoteURL: f.server})
	if err != nil {
		return nil, state, err
	}
	if state.Server == f.server && state.Token != "" && f.email == "" {
		opened.Client.SetToken(state.Token)
	} else {
		email := f.email
		if email == "" {
			if email, err = line.Prompt("email: "); err != nil {
				return nil, state, err
			}
		}
		password := f.password
		if password == "" {
			if password, err = line.PasswordPrompt("password: "); err != nil {
				return nil, state, err
			}
		}
		session, err := opened.Client.Login(ctx, strings.TrimSpace(email), password)
		if err != nil {
			return nil, state, fmt.Errorf("login: %w", err)
		}
		user := session.User
		state = console.SessionState{Server: f.server, Token: session.Token, User: &user}
	}
	svc, err := core.NewService(opened.Backends, opts...)
	if err != nil {
		return nil, state, err
	}
	if err := svc.Open(ctx); err != nil {
		return nil, state, fmt.Errorf("load collections from %s: %w", f.server, err)
	}
	stats := svc.Dashboard()
	state.Dashboard = &stats
	state.UpdatedAt = time.Now().UTC()
	return svc, state, nil
}

func openLocal(ctx context.Context, cfg config.Config, state console.SessionState, opts []core.Option) (*core.Service, console.SessionState, error) {
	opened, err := core.OpenBackends(ctx, core.StorageOptions{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return nil, state, err
	}
	opts = append(opts,
		core.WithIDStrategy(core.IDStrategy(cfg.Store.IDStrategy)),
		core.WithLowStockThreshold(cfg.Store.LowStockThreshold))
	if cfg.Store.Seed {
		data, err := seed.Default()
		if err != nil {
			return nil, state, err
		}
		opts = append(opts, core.WithSeed(data))
	}
	svc, err := core.NewService(opened.Backends, opts...)
	if err != nil {
		return nil, state, err
	}
	if err := svc.Open(ctx); err != nil {
		return nil, state, err
	}
	state.Server = ""
	state.Token = ""
	stats := svc.Dashboard()
	state.Dashboard = &stats
	state.UpdatedAt = time.Now().UTC()
	return svc, state, nil
}

// historyPrompter records entered lines and treats Ctrl-C as end of input.
type historyPrompter struct {
	*liner.State
}

func (p historyPrompter) Prompt(prompt string) (string, error) {
	line, err := p.State.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		p.AppendHistory(line)
	}
	return line, nil
}

func loadHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	if fh, err := os.Open(path); err == nil {
		_, _ = line.ReadHistory(fh)
		_ = fh.Close()
	}
}

func saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	if fh, err := os.Create(path); err == nil {
		_, _ = line.WriteHistory(fh)
		_ = fh.Close()
	}
}
