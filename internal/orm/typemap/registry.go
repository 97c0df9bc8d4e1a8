package typemap

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
)

// Registry maps field kinds to resolvers. It is written during start-up
// (Register, Alias) and read concurrently afterwards.
type Registry struct {
	resolvers map[source.Kind]Resolver
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		resolvers: make(map[source.Kind]Resolver),
	}
}

// Register sets the resolver for a kind, replacing any previous entry
func (r *Registry) Register(kind source.Kind, resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resolvers[kind] = resolver
}

// Alias makes newKind resolve exactly like existing
func (r *Registry) Alias(newKind, existing source.Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	resolver, ok := r.resolvers[existing]
	if !ok {
		return fmt.Errorf("cannot alias %s: %w: %s", newKind, ErrUnmappedFieldKind, existing)
	}
	r.resolvers[newKind] = resolver
	return nil
}

// AliasPair makes Kind resolve like As
type AliasPair struct {
	Kind source.Kind
	As   source.Kind
}

// AliasAll registers every pair. A pair whose target is itself an alias
// applies once that alias exists, whatever the listing order. Passes repeat
// until one makes no progress; the pairs still unresolved are reported
// together and the others stay registered.
func (r *Registry) AliasAll(aliases []AliasPair) error {
	pending := aliases
	for len(pending) > 0 {
		var next []AliasPair
		for _, a := range pending {
			if _, ok := r.Lookup(a.As); !ok {
				next = append(next, a)
				continue
			}
			if err := r.Alias(a.Kind, a.As); err != nil {
				return err
			}
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}

	var errs error
	for _, a := range pending {
		errs = multierr.Append(errs, r.Alias(a.Kind, a.As))
	}
	return errs
}

// Lookup returns the resolver registered for a kind
func (r *Registry) Lookup(kind source.Kind) (Resolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resolver, ok := r.resolvers[kind]
	return resolver, ok
}

// Kinds returns the registered kinds in sorted order
func (r *Registry) Kinds() []source.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]source.Kind, 0, len(r.resolvers))
	for k := range r.resolvers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Derive resolves the full fragment of a field using its own kind
func (r *Registry) Derive(f *source.Field) (Fragment, error) {
	if f == nil {
		return Fragment{}, fmt.Errorf("field cannot be nil")
	}
	return r.DeriveAs(f.Kind, f)
}

// DeriveAs resolves the fragment of a field as if it had the given kind
func (r *Registry) DeriveAs(kind source.Kind, f *source.Field) (Fragment, error) {
	resolver, ok := r.Lookup(kind)
	if !ok {
		return Fragment{}, fmt.Errorf("%w: %s", ErrUnmappedFieldKind, kind)
	}

	var acc Fragment
	for step := 0; step < MaxDeriveSteps; step++ {
		res, err := resolver.Resolve(f)
		if err != nil {
			return Fragment{}, fmt.Errorf("resolving %s: %w", kind, err)
		}

		switch v := res.(type) {
		case Resolved:
			acc.merge(v.Fragment)
			return acc, nil
		case Deferred:
			acc.merge(v.Fragment)
			if v.Field != nil {
				f = v.Field
			}
			resolver = v.Next
			if resolver == nil {
				if f == nil {
					return Fragment{}, fmt.Errorf("resolving %s: deferred without a field", kind)
				}
				if resolver, ok = r.Lookup(f.Kind); !ok {
					return Fragment{}, fmt.Errorf("%w: %s", ErrUnmappedFieldKind, f.Kind)
				}
			}
		default:
			return Fragment{}, fmt.Errorf("resolving %s: unexpected resolution %T", kind, res)
		}
	}

	return Fragment{}, fmt.Errorf("%w: %s after %d steps", ErrDeriveLoop, kind, MaxDeriveSteps)
}

// Resolve derives the field as kind and selects the constructor for the
// dialect, falling back to the default entry
func (r *Registry) Resolve(kind source.Kind, d mapper.Dialect, f *source.Field) (TypeConstructor, Options, error) {
	fragment, err := r.DeriveAs(kind, f)
	if err != nil {
		return nil, Options{}, err
	}

	ctor, opts, ok := fragment.For(d)
	if !ok {
		return nil, Options{}, fmt.Errorf("%w: %s for dialect %s", ErrUnmappedFieldKind, kind, d)
	}
	return ctor, opts, nil
}
