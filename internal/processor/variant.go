package processor

import (
	"fmt"
	"strings"
)

// Variant is the closed set of processor implementations.
type Variant int

const (
	VariantDefault Variant = iota
	VariantVideo
	VariantAudio
	VariantImage
	VariantPNG
	VariantJPEG
	VariantSVG
	VariantXCF
)

var variantNames = [...]string{
	VariantDefault: "default",
	VariantVideo:   "video",
	VariantAudio:   "audio",
	VariantImage:   "image",
	VariantPNG:     "png",
	VariantJPEG:    "jpeg",
	VariantSVG:     "svg",
	VariantXCF:     "xcf",
}

// Variants lists every variant in declaration order.
func Variants() []Variant {
	out := make([]Variant, 0, len(variantNames))
	for v := range variantNames {
		out = append(out, Variant(v))
	}
	return out
}

func (v Variant) String() string {
	if v < 0 || int(v) >= len(variantNames) {
		return fmt.Sprintf("variant(%d)", int(v))
	}
	return variantNames[v]
}

// ParseVariant resolves a variant name as produced by String.
func ParseVariant(name string) (Variant, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for v, candidate := range variantNames {
		if candidate == name {
			return Variant(v), nil
		}
	}
	return VariantDefault, fmt.Errorf("unknown processor variant %q", name)
}
