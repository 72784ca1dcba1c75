// Package classifier describes the pretrained models the service
// dispatches to. A model is an opaque external collaborator mapping one
// fixed-shape input to a score vector over a fixed, ordered label set.
package classifier

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks failures reaching the model backend. Handlers map
// it to 503.
var ErrUnavailable = errors.New("model unavailable")

// InputKind selects the decode path for a descriptor.
type InputKind string

const (
	KindImage InputKind = "image"
	KindAudio InputKind = "audio"
)

// Model is a pretrained classifier: one single-item batch in, one score
// vector out. Implementations are read-only after startup and safe for
// concurrent use.
type Model interface {
	Predict(ctx context.Context, instance any) ([]float64, error)
}

// Descriptor tags a model with its fixed ordered label list and input
// requirements, so dispatch is explicit data rather than globals keyed
// by route.
type Descriptor struct {
	Name     string
	Category string
	Labels   []string
	Kind     InputKind
	Width    int
	Height   int
	Model    Model
}

// Interpret takes argmax over the score vector as the label index and
// the maximum score as confidence.
func Interpret(scores []float64, labels []string) (string, float64, error) {
	if len(scores) == 0 {
		return "", 0, fmt.Errorf("empty score vector")
	}
	if len(scores) != len(labels) {
		return "", 0, fmt.Errorf("score vector length %d does not match %d labels", len(scores), len(labels))
	}
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return labels[best], scores[best], nil
}

// Registry holds the loaded descriptors, keyed by name. It is populated
// once at startup and read-only afterwards, so it is shared between
// requests without locking.
type Registry struct {
	byName map[string]*Descriptor
}

// NewRegistry builds a registry from descriptors. Duplicate names are an
// error: every route must resolve to exactly one model.
func NewRegistry(descs ...*Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Descriptor, len(descs))}
	for _, d := range descs {
		if d.Name == "" {
			return nil, fmt.Errorf("descriptor without a name")
		}
		if _, ok := r.byName[d.Name]; ok {
			return nil, fmt.Errorf("duplicate descriptor %q", d.Name)
		}
		if len(d.Labels) == 0 {
			return nil, fmt.Errorf("descriptor %q has no labels", d.Name)
		}
		r.byName[d.Name] = d
	}
	return r, nil
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("no classifier registered as %q", name)
	}
	return d, nil
}
