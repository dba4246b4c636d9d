package encoder

import (
	"go.uber.org/zap"

	"vire/internal/layout"
	"vire/internal/types"
)

// Context is the long-lived encoding state for one verification run. It owns
// the Registry; nothing in this package keeps global state.
type Context struct {
	types  *types.Interner
	log    *zap.Logger
	layout *layout.LayoutEngine
	reg    *Registry
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for per-operation debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// WithLayoutEngine shares a layout engine built over the same interner.
func WithLayoutEngine(le *layout.LayoutEngine) Option {
	return func(c *Context) {
		if le != nil {
			c.layout = le
		}
	}
}

// NewContext creates an encoding context over a fully built interner.
func NewContext(in *types.Interner, opts ...Option) *Context {
	c := &Context{
		types: in,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.layout == nil {
		c.layout = layout.New(in)
	}
	c.reg = newRegistry(c)
	return c
}

// Types returns the interner the context encodes from.
func (c *Context) Types() *types.Interner { return c.types }

// Registry returns the memoizing name/field registry.
func (c *Context) Registry() *Registry { return c.reg }

// Logger returns the context's logger.
func (c *Context) Logger() *zap.Logger { return c.log }

// Layout returns the layout engine used for well-formedness checks.
func (c *Context) Layout() *layout.LayoutEngine { return c.layout }

// Encoder pairs the context with one type.
func (c *Context) Encoder(id types.TypeID) *TypeEncoder {
	return NewTypeEncoder(c, id)
}
