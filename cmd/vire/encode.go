package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vire/internal/cache"
	"vire/internal/encoder"
	"vire/internal/layout"
	"vire/internal/observ"
	"vire/internal/program"
	"vire/internal/types"
	"vire/internal/universe"
	"vire/internal/version"
)

type encodeOptions struct {
	universe  string
	roots     []string
	output    string
	jobs      int
	useCache  bool
	cacheDir  string
	dropCache bool
}

func newEncodeCmd(a *app) *cobra.Command {
	var opts encodeOptions
	cmd := &cobra.Command{
		Use:   "encode [universe.yaml]",
		Short: "Print the fields and predicates needed by the root types",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.universe = args[0]
			}
			opts = a.withManifest(cmd, opts)
			return a.runEncode(cmd, opts)
		},
	}
	cmd.Flags().StringArrayVar(&opts.roots, "root", nil, "root type expression (repeatable; default: roots of the universe)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the program to a file instead of stdout")
	cmd.Flags().IntVar(&opts.jobs, "jobs", 0, "max parallel encoders (0=auto)")
	cmd.Flags().BoolVar(&opts.useCache, "cache", false, "reuse and store results in the disk cache")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "cache directory (default: $XDG_CACHE_HOME/vire)")
	cmd.Flags().BoolVar(&opts.dropCache, "drop-cache", false, "clear the disk cache before encoding")
	return cmd
}

// withManifest fills options the user did not set from vire.toml.
func (a *app) withManifest(cmd *cobra.Command, opts encodeOptions) encodeOptions {
	m := a.manifest
	if m == nil {
		return opts
	}
	cfg := m.Config.Encode
	flags := cmd.Flags()
	if opts.universe == "" {
		opts.universe = m.resolve(cfg.Universe)
	}
	if !flags.Changed("root") && len(cfg.Roots) > 0 {
		opts.roots = append([]string(nil), cfg.Roots...)
	}
	if !flags.Changed("output") && cfg.Output != "" {
		opts.output = m.resolve(cfg.Output)
	}
	if !flags.Changed("jobs") {
		opts.jobs = cfg.Jobs
	}
	if !flags.Changed("cache") {
		opts.useCache = cfg.Cache
	}
	if !flags.Changed("cache-dir") && cfg.CacheDir != "" {
		opts.cacheDir = m.resolve(cfg.CacheDir)
	}
	return opts
}

func (a *app) runEncode(cmd *cobra.Command, opts encodeOptions) error {
	if opts.universe == "" {
		return errors.New("no universe given\nplease pass one, e.g.:\n  vire encode types.yaml\nor set [encode].universe in " + manifestName)
	}
	if opts.jobs < 0 {
		return fmt.Errorf("--jobs must not be negative")
	}
	log := a.log.With(zap.String("universe", opts.universe))

	var tm *observ.Timer
	if a.timings {
		tm = observ.NewTimer()
	}

	var (
		data []byte
		u    *universe.Universe
	)
	err := tm.Track("load", func() (string, error) {
		var err error
		if data, err = os.ReadFile(opts.universe); err != nil {
			return "", fmt.Errorf("reading universe: %w", err)
		}
		if u, err = universe.Parse(opts.universe, data); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d types", len(u.Decls)), nil
	})
	if err != nil {
		return err
	}

	roots, names, err := resolveRoots(u, opts.roots)
	if err != nil {
		return err
	}

	var dc *cache.Cache
	var key cache.Digest
	if opts.useCache {
		if dc, err = cache.Open(opts.cacheDir); err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		if opts.dropCache {
			if err := dc.DropAll(); err != nil {
				return fmt.Errorf("dropping cache: %w", err)
			}
		}
		key = cache.Key(data, names, version.Build())
		payload, hit, err := dc.Get(key)
		if err != nil {
			log.Warn("ignoring unreadable cache entry", zap.Stringer("key", key), zap.Error(err))
		}
		if hit {
			log.Info("cache hit", zap.Stringer("key", key))
			if err := writeOutput(cmd.OutOrStdout(), opts.output, payload.Program); err != nil {
				return err
			}
			a.reportTimings(cmd.ErrOrStderr(), tm, log)
			return nil
		}
	}

	le := layout.New(u.Types)
	ec := encoder.NewContext(u.Types, encoder.WithLogger(log), encoder.WithLayoutEngine(le))

	err = tm.Track("check", func() (string, error) {
		for i, r := range roots {
			if err := ec.Encoder(r).CheckLayout(); err != nil {
				return "", fmt.Errorf("root %s: %w", names[i], err)
			}
		}
		return fmt.Sprintf("%d roots", len(roots)), nil
	})
	if err != nil {
		return err
	}

	prog, err := program.Assemble(cmd.Context(), ec, roots, program.Options{Jobs: opts.jobs, Timer: tm})
	if err != nil {
		return err
	}

	text := prog.String()
	err = tm.Track("print", func() (string, error) {
		return "", writeOutput(cmd.OutOrStdout(), opts.output, text)
	})
	if err != nil {
		return err
	}

	if dc != nil {
		err := dc.Put(key, &cache.Payload{
			Roots:      prog.Roots,
			Program:    text,
			Fields:     len(prog.Fields),
			Predicates: len(prog.Predicates),
		})
		if err != nil {
			log.Warn("failed to store cache entry", zap.Error(err))
		}
	}
	a.reportTimings(cmd.ErrOrStderr(), tm, log)
	return nil
}

// resolveRoots interns the requested root expressions, defaulting to the
// roots declared in the universe itself.
func resolveRoots(u *universe.Universe, exprs []string) ([]types.TypeID, []string, error) {
	if len(exprs) == 0 {
		if len(u.Roots) == 0 {
			return nil, nil, fmt.Errorf("%s declares no roots; pass --root", u.File)
		}
		names := make([]string, len(u.Roots))
		for i, r := range u.Roots {
			names[i] = u.Types.Describe(r)
		}
		return u.Roots, names, nil
	}
	roots := make([]types.TypeID, len(exprs))
	names := make([]string, len(exprs))
	for i, e := range exprs {
		id, err := u.Resolve(e)
		if err != nil {
			return nil, nil, err
		}
		roots[i] = id
		names[i] = strings.TrimSpace(e)
	}
	return roots, names, nil
}

func writeOutput(stdout io.Writer, path, text string) error {
	if path == "" {
		_, err := io.WriteString(stdout, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
