package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"vire/internal/prof"
	"vire/internal/version"
)

// app is the state shared by every subcommand of one invocation. It is filled
// in by the root command's PersistentPreRunE.
type app struct {
	manifest *manifest
	log      *zap.Logger
	color    bool
	timings  bool
	profile  *prof.Session
}

// execute runs one CLI invocation.
func execute(args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	return errors.Join(err, a.close())
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "vire",
		Short:         "Encode Rust-like types as heap predicates",
		Long:          `vire derives field declarations and access predicates for a set of types`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().String("config", "", "path to vire.toml (default: search from the working directory up)")
	root.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	root.PersistentFlags().String("log-format", "", "log format (console|json)")
	root.PersistentFlags().Bool("timings", false, "show timing information")
	root.PersistentFlags().String("cpu-profile", "", "write a CPU profile to the file")
	root.PersistentFlags().String("mem-profile", "", "write a heap profile to the file on exit")
	root.PersistentFlags().String("runtime-trace", "", "write a runtime trace to the file")

	root.AddCommand(newEncodeCmd(a))
	root.AddCommand(newInspectCmd(a))
	root.AddCommand(newVersionCmd())
	return root, a
}

// close stops profiling and flushes the logger. It runs whether or not the
// command succeeded.
func (a *app) close() error {
	err := a.profile.Stop()
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}

func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return err
	}
	switch colorFlag {
	case "on":
		a.color = true
	case "off":
		a.color = false
	case "auto":
		a.color = isTerminal(os.Stdout)
	default:
		return fmt.Errorf("unsupported color mode %q (must be auto, on or off)", colorFlag)
	}
	color.NoColor = !a.color

	if a.timings, err = flags.GetBool("timings"); err != nil {
		return err
	}

	configPath, err := flags.GetString("config")
	if err != nil {
		return err
	}
	if a.manifest, err = loadManifest(configPath); err != nil {
		return err
	}

	level, err := flags.GetString("log-level")
	if err != nil {
		return err
	}
	format, err := flags.GetString("log-format")
	if err != nil {
		return err
	}
	if a.manifest != nil {
		if level == "" {
			level = a.manifest.Config.Log.Level
		}
		if format == "" {
			format = a.manifest.Config.Log.Format
		}
	}
	if a.log, err = newLogger(cmd.ErrOrStderr(), level, format, a.color); err != nil {
		return err
	}

	var opts prof.Options
	if opts.CPU, err = flags.GetString("cpu-profile"); err != nil {
		return err
	}
	if opts.Mem, err = flags.GetString("mem-profile"); err != nil {
		return err
	}
	if opts.Trace, err = flags.GetString("runtime-trace"); err != nil {
		return err
	}
	if opts.Enabled() {
		if a.profile, err = prof.Start(opts); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
