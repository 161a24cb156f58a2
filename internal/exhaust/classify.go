package exhaust

import "itercheck/internal/pyast"

var (
	// DefaultProducers are builtins returning a fresh single-pass
	// iterator.
	DefaultProducers = []string{"map", "filter", "zip", "iter", "reversed"}
	// DefaultConsumers are builtins that drain their argument and return
	// a reusable value.
	DefaultConsumers = []string{
		"list", "tuple", "set", "frozenset", "dict", "sorted",
		"sum", "min", "max", "all", "any",
	}
)

// Classifier decides whether an expression constructs a single-pass
// iterator. It is purely syntactic apart from callee resolution.
type Classifier struct {
	producers map[string]bool
	consumers map[string]bool
	resolver  Resolver
}

// NewClassifier builds a Classifier over the given canonical callee
// names. A nil resolver means LexicalResolver.
func NewClassifier(producers, consumers []string, r Resolver) *Classifier {
	if r == nil {
		r = LexicalResolver{}
	}
	c := &Classifier{
		producers: make(map[string]bool, len(producers)),
		consumers: make(map[string]bool, len(consumers)),
		resolver:  r,
	}
	for _, p := range producers {
		c.producers[p] = true
	}
	for _, name := range consumers {
		c.consumers[name] = true
	}
	return c
}

// IsProducerCall reports whether call invokes a known producer.
func (c *Classifier) IsProducerCall(call *pyast.Call) bool {
	name, ok := c.resolver.ResolveCallee(call.Func)
	return ok && c.producers[name]
}

// IsConsumerCall reports whether call invokes a known consumer.
func (c *Classifier) IsConsumerCall(call *pyast.Call) bool {
	name, ok := c.resolver.ResolveCallee(call.Func)
	return ok && c.consumers[name]
}

// Classify reports whether expr yields a tracked iterator. For an alias
// it also returns the binding being copied. Consumer calls and any other
// expression are untracked.
func (c *Classifier) Classify(expr pyast.Node, table *ScopeTable) (OriginKind, *Binding, bool) {
	switch e := expr.(type) {
	case *pyast.Comprehension:
		if e.Kind == pyast.GeneratorExp {
			return GeneratorForm, nil, true
		}
	case *pyast.Call:
		if c.IsProducerCall(e) {
			return DirectProducer, nil, true
		}
	case *pyast.Name:
		if b, ok := table.Lookup(e.ID, e.Scope()); ok {
			return Alias, b, true
		}
	case *pyast.NamedExpr:
		// "a = (b := value)": a and b share the object; b was bound when
		// the walker left the assignment expression.
		if e.Target != nil {
			if b, ok := table.Lookup(e.Target.ID, e.Target.Scope()); ok && b.Def == pyast.Node(e) {
				return Alias, b, true
			}
		}
		return c.Classify(e.Value, table)
	}
	return 0, nil, false
}
