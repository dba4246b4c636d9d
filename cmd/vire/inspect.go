package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vire/internal/encoder"
	"vire/internal/types"
	"vire/internal/universe"
)

type inspectOptions struct {
	universe string
	bodies   bool
}

func newInspectCmd(a *app) *cobra.Command {
	var opts inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect <type-expr>...",
		Short: "Show how individual types are encoded",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.universe == "" && a.manifest != nil {
				opts.universe = a.manifest.resolve(a.manifest.Config.Encode.Universe)
			}
			return a.runInspect(cmd.OutOrStdout(), opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.universe, "universe", "u", "", "universe declaring the nominal types (default: from "+manifestName+")")
	cmd.Flags().BoolVar(&opts.bodies, "bodies", false, "also print each predicate definition")
	return cmd
}

func (a *app) runInspect(out io.Writer, opts inspectOptions, exprs []string) error {
	var (
		u   *universe.Universe
		err error
	)
	if opts.universe != "" {
		u, err = universe.Load(opts.universe)
	} else {
		u, err = universe.Build("", &universe.File{})
	}
	if err != nil {
		return err
	}

	ids := make([]types.TypeID, len(exprs))
	for i, e := range exprs {
		if ids[i], err = u.Resolve(e); err != nil {
			return err
		}
	}

	ec := encoder.NewContext(u.Types, encoder.WithLogger(a.log))
	reg := ec.Registry()
	tbl := newTable("TYPE", "PREDICATE", "VALUE FIELD", "FIELDS", "SLOTS")
	for _, id := range ids {
		name, err := reg.PredicateName(id)
		if err != nil {
			return err
		}
		value := "-"
		if vf, err := reg.ValueFieldName(id); err == nil {
			value = vf
		}
		fields, err := reg.Fields(id)
		if err != nil {
			return err
		}
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.Name
		}
		slots := "-"
		if n, err := ec.Layout().SlotCount(id); err == nil {
			slots = strconv.Itoa(n)
		}
		tbl.add(u.Types.Describe(id), name, value, strings.Join(names, ", "), slots)
	}
	if err := tbl.render(out); err != nil {
		return err
	}

	if !opts.bodies {
		return nil
	}
	for _, id := range ids {
		pred, err := reg.PredicateDef(id)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "\n%s", pred); err != nil {
			return err
		}
	}
	return nil
}
