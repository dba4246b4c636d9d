// Package program collects the closed set of heap fields and access
// predicates needed by a list of root types.
package program

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vire/internal/encoder"
	"vire/internal/observ"
	"vire/internal/types"
	"vire/internal/vir"
)

// Program is the encoded output for a set of roots. Fields and Predicates are
// sorted by name and free of duplicates.
type Program struct {
	Roots      []string
	Fields     []vir.Field
	Predicates []vir.Predicate
}

// Options tunes Assemble.
type Options struct {
	// Jobs bounds the number of concurrently encoded types; <= 0 means
	// GOMAXPROCS.
	Jobs  int
	Timer *observ.Timer
}

// unit is what a single worker produces for one type.
type unit struct {
	pred   vir.Predicate
	fields []vir.Field
	deps   []types.TypeID
}

// Assemble encodes roots and everything their predicates refer to. Types are
// processed in waves: each wave is encoded in parallel, then the not yet seen
// dependencies of the wave form the next one.
func Assemble(ctx context.Context, ec *encoder.Context, roots []types.TypeID, opts Options) (*Program, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	log := ec.Logger()
	phase := opts.Timer.Begin("assemble")

	reg := ec.Registry()
	rootNames := make([]string, 0, len(roots))
	seen := make(map[types.TypeID]struct{}, len(roots))
	named := make(map[string]struct{}, len(roots))
	var frontier []types.TypeID
	for _, r := range roots {
		name, err := reg.PredicateName(r)
		if err != nil {
			opts.Timer.End(phase, "failed")
			return nil, err
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		frontier = append(frontier, r)
		// `u8` and `usize` are distinct roots with one predicate
		if _, dup := named[name]; !dup {
			named[name] = struct{}{}
			rootNames = append(rootNames, name)
		}
	}

	var units []unit
	for wave := 0; len(frontier) > 0; wave++ {
		results, err := encodeWave(ctx, ec, frontier, jobs)
		if err != nil {
			opts.Timer.End(phase, "failed")
			return nil, err
		}
		if ce := log.Check(zap.DebugLevel, "encoded wave"); ce != nil {
			ce.Write(zap.Int("wave", wave), zap.Int("types", len(frontier)))
		}
		var next []types.TypeID
		for _, u := range results {
			for _, d := range u.deps {
				if _, ok := seen[d]; ok {
					continue
				}
				seen[d] = struct{}{}
				next = append(next, d)
			}
		}
		units = append(units, results...)
		frontier = next
	}

	prog, err := merge(rootNames, units)
	if err != nil {
		opts.Timer.End(phase, "failed")
		return nil, err
	}
	opts.Timer.End(phase, fmt.Sprintf("%d predicates", len(prog.Predicates)))
	log.Info("assembled program",
		zap.Int("roots", len(prog.Roots)),
		zap.Int("fields", len(prog.Fields)),
		zap.Int("predicates", len(prog.Predicates)),
	)
	return prog, nil
}

func encodeWave(ctx context.Context, ec *encoder.Context, ids []types.TypeID, jobs int) ([]unit, error) {
	reg := ec.Registry()
	results := make([]unit, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(ids)))
	for i, id := range ids {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			pred, err := reg.PredicateDef(id)
			if err != nil {
				return err
			}
			fields, err := reg.Fields(id)
			if err != nil {
				return err
			}
			deps, err := ec.Encoder(id).Dependencies()
			if err != nil {
				return err
			}
			results[i] = unit{pred: pred, fields: fields, deps: deps}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// merge deduplicates fields and predicates by name. Two declarations sharing
// a name must be identical.
func merge(roots []string, units []unit) (*Program, error) {
	fields := make(map[string]vir.Field)
	preds := make(map[string]vir.Predicate, len(units))
	for _, u := range units {
		for _, f := range u.fields {
			if prev, ok := fields[f.Name]; ok && prev.Type != f.Type {
				return nil, conflict("field %q declared as %s and %s", f.Name, prev.Type, f.Type)
			}
			fields[f.Name] = f
		}
		if prev, ok := preds[u.pred.Name]; ok && prev.String() != u.pred.String() {
			return nil, conflict("predicate %q has two different definitions", u.pred.Name)
		}
		preds[u.pred.Name] = u.pred
	}

	prog := &Program{
		Roots:      roots,
		Fields:     make([]vir.Field, 0, len(fields)),
		Predicates: make([]vir.Predicate, 0, len(preds)),
	}
	for _, f := range fields {
		prog.Fields = append(prog.Fields, f)
	}
	for _, p := range preds {
		prog.Predicates = append(prog.Predicates, p)
	}
	sort.Slice(prog.Fields, func(i, j int) bool { return prog.Fields[i].Name < prog.Fields[j].Name })
	sort.Slice(prog.Predicates, func(i, j int) bool { return prog.Predicates[i].Name < prog.Predicates[j].Name })
	return prog, nil
}

func conflict(format string, args ...any) error {
	return &encoder.Error{
		Kind:   encoder.KindInternalConsistency,
		Op:     "assemble",
		Detail: fmt.Sprintf(format, args...),
	}
}

// Predicate returns the definition called name.
func (p *Program) Predicate(name string) (vir.Predicate, bool) {
	i := sort.Search(len(p.Predicates), func(i int) bool { return p.Predicates[i].Name >= name })
	if i < len(p.Predicates) && p.Predicates[i].Name == name {
		return p.Predicates[i], true
	}
	return vir.Predicate{}, false
}

// WriteTo prints every field, then every predicate, separated by blank lines.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	pr := vir.NewPrinter(w)
	var total int64
	add := func(n int, err error) error {
		total += int64(n)
		return err
	}
	for _, f := range p.Fields {
		if err := add(pr.Field(f)); err != nil {
			return total, err
		}
	}
	for i, pred := range p.Predicates {
		if i > 0 || len(p.Fields) > 0 {
			if err := add(io.WriteString(w, "\n")); err != nil {
				return total, err
			}
		}
		if err := add(pr.Predicate(pred)); err != nil {
			return total, err
		}
	}
	return total, nil
}

func (p *Program) String() string {
	var b strings.Builder
	_, _ = p.WriteTo(&b)
	return b.String()
}
