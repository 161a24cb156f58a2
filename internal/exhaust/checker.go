package exhaust

import (
	"fmt"
	"sort"

	"itercheck/internal/pyast"
)

const (
	MessageID     = "W4802"
	Symbol        = "reused-iterator"
	MessageFormat = "Iterator '%s' is re-used in a loop. It will likely be exhausted after the first iteration."
)

// Confidence mirrors the confidence levels of pylint diagnostics.
type Confidence string

const (
	ConfidenceHigh      Confidence = "HIGH"
	ConfidenceInference Confidence = "INFERENCE"
)

// Diagnostic is one reused-iterator finding.
type Diagnostic struct {
	Pos        pyast.Position
	End        pyast.Position
	MessageID  string
	Symbol     string
	Name       string
	Confidence Confidence
	Origin     OriginKind
	// DefPos is where the iterator was created.
	DefPos pyast.Position
	// Ref is the reported reference and Loop the loop that repeats it.
	Ref  *pyast.Name
	Loop pyast.Node
}

func (d Diagnostic) Message() string {
	return fmt.Sprintf(MessageFormat, d.Name)
}

// Emitter receives diagnostics as they are found.
type Emitter func(Diagnostic)

// Config selects which callees count as producers and consumers and which
// use sites are checked.
type Config struct {
	Producers []string
	Consumers []string
	// Resolver defaults to LexicalResolver.
	Resolver Resolver
	// CheckConsumerCalls treats arguments of consumer calls as use sites.
	CheckConsumerCalls bool
	// CheckComprehensions treats comprehension iterables as use sites.
	CheckComprehensions bool
}

func DefaultConfig() Config {
	return Config{
		Producers:           DefaultProducers,
		Consumers:           DefaultConsumers,
		CheckConsumerCalls:  true,
		CheckComprehensions: true,
	}
}

// Checker holds the immutable parts of the analysis. It is safe to share
// between goroutines; all per-module state lives in a Session.
type Checker struct {
	cfg        Config
	classifier *Classifier
	unwinder   *Unwinder
}

func NewChecker(cfg Config) *Checker {
	classifier := NewClassifier(cfg.Producers, cfg.Consumers, cfg.Resolver)
	return &Checker{
		cfg:        cfg,
		classifier: classifier,
		unwinder:   NewUnwinder(classifier),
	}
}

// Run analyses mod in a fresh session, passing findings to emit.
func (c *Checker) Run(mod *pyast.Module, emit Emitter) {
	pyast.Walk(c.NewSession(emit), mod)
}

// Check analyses mod and returns its diagnostics ordered by position.
func (c *Checker) Check(mod *pyast.Module) []Diagnostic {
	var diags []Diagnostic
	c.Run(mod, func(d Diagnostic) { diags = append(diags, d) })
	sort.SliceStable(diags, func(i, j int) bool {
		return diags[i].Pos.Offset < diags[j].Pos.Offset
	})
	return diags
}

// checkUse is the core decision for one use site: the loop iterable or
// consumer argument expr.
func (s *Session) checkUse(expr pyast.Node) {
	if expr == nil || len(s.loops) == 0 {
		return
	}
	reported := make(map[string]bool)
	for _, ref := range s.checker.unwinder.Unwind(expr) {
		if reported[ref.ID] || BoundByComprehension(ref) {
			continue
		}
		b, ok := s.table.Lookup(ref.ID, ref.Scope())
		if !ok {
			continue
		}
		loop, ok := NearestEnclosingLoop(ref)
		if !ok {
			continue
		}
		root := b.Root()
		if IsAncestorOrSelf(loop, root.Def) {
			// Recreated on every pass of the loop.
			continue
		}
		frame := s.frame(loop)
		if frame.flagged[ref.ID] {
			continue
		}
		frame.flagged[ref.ID] = true
		reported[ref.ID] = true

		confidence := ConfidenceHigh
		if b.Kind == Alias {
			confidence = ConfidenceInference
		}
		s.emit(Diagnostic{
			Pos:        ref.Pos(),
			End:        ref.End(),
			MessageID:  MessageID,
			Symbol:     Symbol,
			Name:       ref.ID,
			Confidence: confidence,
			Origin:     root.Kind,
			DefPos:     root.Def.Pos(),
			Ref:        ref,
			Loop:       loop,
		})
	}
}
