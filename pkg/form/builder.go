package form

import (
	"github.com/goliatone/go-formengine/pkg/builder"
	"github.com/goliatone/go-formengine/pkg/schema"
)

// Builder returns a structural editor seeded with a copy of the form's
// schema. Every change it makes, undo and redo included, is pushed back
// through SetSchema so the form's value paths, logic results and wizard
// pages follow the edited tree. The undo cap comes from Config.HistoryLimit.
// Options passed here are applied last.
func (f *Form) Builder(opts ...builder.Option) *builder.Builder {
	f.mu.Lock()
	base := []builder.Option{
		builder.WithNodes(f.nodes),
		builder.WithHistoryLimit(f.cfg.HistoryLimit),
		builder.WithRegistry(f.registry),
		builder.WithLogger(f.logger),
		builder.WithChangeHook(func(nodes []*schema.Node, version uint64) {
			f.logger.Debug().Uint64("version", version).Msg("schema edited")
			f.SetSchema(nodes)
		}),
	}
	f.mu.Unlock()
	return builder.New(append(base, opts...)...)
}
