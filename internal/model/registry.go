package model

import (
	"fmt"
	"sort"
	"sync"
)

// Model type tags accepted on the command line.
const (
	TypeDefault = "default"
	TypeViTH    = "vit_h"
	TypeViTL    = "vit_l"
	TypeViTB    = "vit_b"
)

// SAM image encoder constants. All three backbones share them.
const (
	EncoderInputSize = 1024
	EmbeddingDim     = 256
	EmbeddingGrid    = 64
)

var (
	samPixelMean = [3]float32{123.675, 116.28, 103.53}
	samPixelStd  = [3]float32{58.395, 57.12, 57.375}
)

func samSpec(typ, name string) Spec {
	return Spec{
		Type:           typ,
		Name:           name,
		InputName:      "image",
		OutputName:     "image_embeddings",
		InputSize:      EncoderInputSize,
		PixelMean:      samPixelMean,
		PixelStd:       samPixelStd,
		EmbeddingShape: []int64{1, EmbeddingDim, EmbeddingGrid, EmbeddingGrid},
	}
}

// Registry maps model type tags to encoder specs.
type Registry struct {
	mu      sync.RWMutex
	specs   map[string]Spec
	aliases map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs:   make(map[string]Spec),
		aliases: make(map[string]string),
	}
}

// Register adds spec under spec.Type.
func (r *Registry) Register(spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Type] = spec
}

// Alias makes tag resolve to the spec registered as target.
func (r *Registry) Alias(tag, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[tag] = target
}

// Lookup returns the spec for tag. Unknown tags are configuration errors.
func (r *Registry) Lookup(tag string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[tag]; ok {
		tag = target
	}
	spec, ok := r.specs[tag]
	if !ok {
		return Spec{}, ConfigurationError("lookup model type",
			fmt.Errorf("unknown model type %q, want one of %v", tag, r.tagsLocked()))
	}
	spec.EmbeddingShape = append([]int64(nil), spec.EmbeddingShape...)
	return spec, nil
}

// Tags lists every accepted tag, aliases included, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tagsLocked()
}

func (r *Registry) tagsLocked() []string {
	tags := make([]string, 0, len(r.specs)+len(r.aliases))
	for tag := range r.specs {
		tags = append(tags, tag)
	}
	for tag := range r.aliases {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// DefaultRegistry holds the SAM backbones.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(samSpec(TypeViTH, "sam_vit_h"))
	DefaultRegistry.Register(samSpec(TypeViTL, "sam_vit_l"))
	DefaultRegistry.Register(samSpec(TypeViTB, "sam_vit_b"))
	DefaultRegistry.Alias(TypeDefault, TypeViTH)
}

// Lookup resolves tag against the default registry.
func Lookup(tag string) (Spec, error) {
	return DefaultRegistry.Lookup(tag)
}

// Types lists the tags accepted by the default registry.
func Types() []string {
	return DefaultRegistry.Tags()
}
