package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"lensfrens/go-backend/internal/composition/lensfrens"
	"lensfrens/go-backend/internal/config"
	"lensfrens/go-backend/internal/platform/privacylog"
	"lensfrens/go-backend/internal/workflow"
	"lensfrens/go-backend/pkg/models"
)

const (
	exitOK           = 0
	exitInvalidInput = 10
	exitAPIFailed    = 20
	exitWalletFailed = 30
	exitStorage      = 40
	exitChainFailed  = 50
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type cli struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitInvalidInput
	}
	c := &cli{
		stdout: stdout,
		stderr: stderr,
		logger: privacylog.NewJSONLogger(stderr, slog.LevelWarn),
	}
	switch args[0] {
	case "version":
		_, _ = fmt.Fprintf(stdout, "lensfrens version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return exitOK
	case "wallet":
		return c.runWallet(ctx, args[1:])
	case "connect", "profile":
		return c.runConnect(ctx, args[0], args[1:])
	case "login":
		return c.runLogin(ctx, args[1:])
	case "dispatcher":
		return c.runDispatcher(ctx, args[1:])
	case "post":
		return c.runPost(ctx, args[1:])
	default:
		printUsage(stderr)
		return exitInvalidInput
	}
}

type commonFlags struct {
	configPath *string
	dataDir    *string
	verbose    *bool
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs, commonFlags{
		configPath: fs.String("config", "", "Path to config.yaml (optional)"),
		dataDir:    fs.String("data-dir", "", "Directory for wallet and session data (optional)"),
		verbose:    fs.Bool("verbose", false, "log at debug level"),
	}
}

func (c *cli) loadConfig(flags commonFlags) (config.Config, error) {
	if *flags.verbose {
		c.logger = privacylog.NewJSONLogger(c.stderr, slog.LevelDebug)
	}
	cfg, err := config.Load(*flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if dir := strings.TrimSpace(*flags.dataDir); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

func (c *cli) build(ctx context.Context, flags commonFlags, dryRun bool) (*lensfrens.Runtime, int) {
	cfg, err := c.loadConfig(flags)
	if err != nil {
		return nil, c.fail(err, exitInvalidInput)
	}
	rt, err := lensfrens.Build(ctx, cfg, lensfrens.BuildOptions{Logger: c.logger, DryRun: dryRun})
	if err != nil {
		return nil, c.fail(err, exitInvalidInput)
	}
	return rt, exitOK
}

func (c *cli) runWallet(ctx context.Context, args []string) int {
	if len(args) < 1 {
		printUsage(c.stderr)
		return exitInvalidInput
	}
	fs, flags := newFlagSet("wallet "+args[0], c.stderr)
	mnemonicFile := fs.String("mnemonic-file", "", "file holding the mnemonic to import")
	if err := fs.Parse(args[1:]); err != nil {
		return exitInvalidInput
	}
	cfg, err := c.loadConfig(flags)
	if err != nil {
		return c.fail(err, exitInvalidInput)
	}
	w := lensfrens.NewWallet(cfg)
	passphrase := cfg.Wallet.Passphrase

	switch args[0] {
	case "create":
		mnemonic, account, err := w.Create(passphrase)
		if err != nil {
			return c.fail(err, exitWalletFailed)
		}
		return c.print(map[string]any{"mnemonic": mnemonic, "account": account})
	case "import":
		if strings.TrimSpace(*mnemonicFile) == "" {
			return c.fail(errors.New("--mnemonic-file is required"), exitInvalidInput)
		}
		raw, err := os.ReadFile(*mnemonicFile)
		if err != nil {
			return c.fail(err, exitInvalidInput)
		}
		account, err := w.Import(string(raw), passphrase)
		if err != nil {
			return c.fail(err, exitWalletFailed)
		}
		return c.print(map[string]any{"account": account})
	case "address":
		if _, err := w.RequestAccounts(ctx); err != nil {
			return c.fail(err, exitWalletFailed)
		}
		return c.print(map[string]any{"account": w.Account()})
	default:
		printUsage(c.stderr)
		return exitInvalidInput
	}
}

func (c *cli) runConnect(ctx context.Context, name string, args []string) int {
	fs, flags := newFlagSet(name, c.stderr)
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	rt, code := c.build(ctx, flags, false)
	if rt == nil {
		return code
	}
	defer rt.Close()

	state, err := rt.Controller.RequestConnection(ctx)
	if err != nil {
		return c.failWorkflow(err)
	}
	if name == "profile" {
		if state.Profile == nil {
			return c.fail(workflow.ErrNoProfile, exitAPIFailed)
		}
		return c.print(state.Profile)
	}
	return c.print(state)
}

func (c *cli) runLogin(ctx context.Context, args []string) int {
	fs, flags := newFlagSet("login", c.stderr)
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	rt, code := c.build(ctx, flags, false)
	if rt == nil {
		return code
	}
	defer rt.Close()

	if _, err := rt.Controller.RequestConnection(ctx); err != nil {
		return c.failWorkflow(err)
	}
	state, err := rt.Controller.Login(ctx)
	if err != nil {
		return c.failWorkflow(err)
	}
	return c.print(state)
}

func (c *cli) runDispatcher(ctx context.Context, args []string) int {
	if len(args) < 1 || (args[0] != "check" && args[0] != "set") {
		printUsage(c.stderr)
		return exitInvalidInput
	}
	fs, flags := newFlagSet("dispatcher "+args[0], c.stderr)
	if err := fs.Parse(args[1:]); err != nil {
		return exitInvalidInput
	}
	rt, code := c.build(ctx, flags, false)
	if rt == nil {
		return code
	}
	defer rt.Close()

	if _, err := rt.Controller.RequestConnection(ctx); err != nil {
		return c.failWorkflow(err)
	}
	if args[0] == "check" {
		enabled, err := rt.Controller.CheckDispatcher(ctx)
		if err != nil {
			return c.failWorkflow(err)
		}
		return c.print(map[string]bool{"dispatcher": enabled})
	}
	if err := ensureSession(ctx, rt.Controller); err != nil {
		return c.failWorkflow(err)
	}
	hash, err := rt.Controller.SetDispatcher(ctx)
	if err != nil {
		return c.failWorkflow(err)
	}
	return c.print(map[string]string{"tx_hash": hash.Hex()})
}

func (c *cli) runPost(ctx context.Context, args []string) int {
	fs, flags := newFlagSet("post", c.stderr)
	text := fs.String("text", "", "post text")
	mediaPath := fs.String("media", "", "media file to attach (optional)")
	contentType := fs.String("content-type", "", "media content type (defaults from the file extension)")
	dryRun := fs.Bool("dry-run", false, "keep uploads in memory and sign transactions without sending them")
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}

	if strings.TrimSpace(*text) == "" {
		return c.fail(workflow.ErrEmptyDraft, exitInvalidInput)
	}
	draft := models.DraftPost{Text: *text}
	if path := strings.TrimSpace(*mediaPath); path != "" {
		media, err := readMedia(path, *contentType)
		if err != nil {
			return c.fail(err, exitInvalidInput)
		}
		draft.Media = media
	}

	rt, code := c.build(ctx, flags, *dryRun)
	if rt == nil {
		return code
	}
	defer rt.Close()

	if _, err := rt.Controller.RequestConnection(ctx); err != nil {
		return c.failWorkflow(err)
	}
	if err := ensureSession(ctx, rt.Controller); err != nil {
		return c.failWorkflow(err)
	}
	result, err := rt.Controller.Publish(ctx, draft)
	if err != nil {
		if result.MetadataPath != "" || result.MediaPath != "" {
			_ = printJSON(c.stdout, result)
		}
		return c.failWorkflow(err)
	}
	return c.print(result)
}

// ensureSession reuses a persisted session, logging in when none is usable.
func ensureSession(ctx context.Context, ctrl *workflow.Controller) error {
	restored, err := ctrl.RestoreSession(ctx)
	if err != nil {
		return err
	}
	if restored {
		return nil
	}
	_, err = ctrl.Login(ctx)
	return err
}

func readMedia(path, contentType string) (*models.MediaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		if i := strings.IndexByte(contentType, ';'); i >= 0 {
			contentType = strings.TrimSpace(contentType[:i])
		}
	}
	return &models.MediaFile{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func exitCodeFor(err error) int {
	switch workflow.ErrorCategory(err) {
	case workflow.ErrorCategoryWallet:
		return exitWalletFailed
	case workflow.ErrorCategoryStorage:
		return exitStorage
	case workflow.ErrorCategoryChain:
		return exitChainFailed
	case workflow.ErrorCategoryValidation:
		return exitInvalidInput
	default:
		return exitAPIFailed
	}
}

func (c *cli) failWorkflow(err error) int {
	return c.fail(err, exitCodeFor(err))
}

func (c *cli) fail(err error, code int) int {
	_, _ = fmt.Fprintln(c.stderr, err.Error())
	return code
}

func (c *cli) print(v any) int {
	if err := printJSON(c.stdout, v); err != nil {
		return c.fail(err, exitStorage)
	}
	return exitOK
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage(w io.Writer) {
	lines := []string{
		"lensfrens <command> [flags]",
		"commands:",
		"  wallet create|import|address [--config path] [--data-dir path] [--mnemonic-file path]",
		"  connect     [--config path] [--data-dir path]",
		"  profile     [--config path] [--data-dir path]",
		"  login       [--config path] [--data-dir path]",
		"  dispatcher check|set [--config path] [--data-dir path]",
		"  post        --text <text> [--media path] [--content-type type] [--dry-run]",
		"  version",
		"the wallet passphrase is read from " + config.EnvWalletPassphrase + " or the config file",
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(w, line)
	}
}
