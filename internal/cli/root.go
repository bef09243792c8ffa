// Package cli implements the fridge command line client.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"save-the-fridge/internal/app"
	"save-the-fridge/internal/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X save-the-fridge/internal/cli.Version=v1.0.0".
var Version = "dev"

// env is the state shared by every command of one invocation.
type env struct {
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	app     *app.App

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

// Execute runs the fridge command line with args and releases everything the
// command opened, whether or not it failed.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	root, e := newRootCommand(in, out, errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if e.app != nil {
		if closeErr := e.app.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

func newRootCommand(in io.Reader, out, errOut io.Writer) (*cobra.Command, *env) {
	e := &env{in: bufio.NewReader(in), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "fridge",
		Short:         "Track what is in the fridge and when it expires",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if e.cfgFile != "" {
				if err := os.Setenv("CONFIG_FILE", e.cfgFile); err != nil {
					return fmt.Errorf("set config file: %w", err)
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			e.cfg = cfg
			e.logger = config.NewLoggerTo(cfg.Logger, errOut)
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&e.cfgFile, "config", "", "Path to config file (yaml/json/toml)")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Config operations",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Print the current loaded configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(redacted(*e.cfg), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Fprintln(e.out, string(data))
			return nil
		},
	})

	root.AddCommand(
		newListCommand(e),
		newLookupCommand(e),
		newAddCommand(e),
		newRemoveCommand(e),
		newUpdateCommand(e),
		newNotificationsCommand(e),
		newScanCommand(e),
		configCmd,
		&cobra.Command{
			Use:   "version",
			Short: "Print the version of fridge",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(e.out, Version)
			},
		},
	)

	return root, e
}

// application builds the components on first use.
func (e *env) application(ctx context.Context) (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	a, err := app.New(ctx, e.cfg, e.logger)
	if err != nil {
		return nil, err
	}
	e.app = a
	return a, nil
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func (e *env) confirm(question string) (bool, error) {
	answer, err := e.prompt(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// prompt prints question and reads one trimmed line.
func (e *env) prompt(question string) (string, error) {
	fmt.Fprint(e.out, question)
	line, err := e.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

const mask = "********"

func redacted(cfg config.Config) config.Config {
	for _, secret := range []*string{
		&cfg.Auth.APIKey,
		&cfg.Database.Password,
		&cfg.Redis.Password,
		&cfg.Notify.SMTP.Password,
	} {
		if *secret != "" {
			*secret = mask
		}
	}
	return cfg
}
