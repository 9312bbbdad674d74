package processor

import (
	"slices"
	"time"
)

// Descriptor is the static contract of a variant.
type Descriptor struct {
	// Time is the budget for the async phase; callers enforce it.
	Time time.Duration
	// Outputs are the format tags present once both phases succeed.
	Outputs []string
	// Extras are side-effect artifacts such as the video thumbnail.
	Extras []string
	// KeepsOriginal reports whether sync copies the input to <stem>.<ext>.
	KeepsOriginal bool
	// InPlace marks Outputs as nominal format tags: the derivative is written
	// under the input's own extension, so a .jpeg upload yields <stem>.jpeg.
	InPlace bool
}

var descriptors = map[Variant]Descriptor{
	VariantVideo:   {Time: 300 * time.Second, Outputs: []string{"mp4", "webm", "ogv"}, Extras: []string{"png"}, KeepsOriginal: true},
	VariantAudio:   {Time: 300 * time.Second, Outputs: []string{"mp3", "ogg"}, KeepsOriginal: true},
	VariantImage:   {Time: 60 * time.Second, Outputs: []string{"png"}, KeepsOriginal: true},
	VariantPNG:     {Time: 120 * time.Second, Outputs: []string{"png"}, KeepsOriginal: true},
	VariantJPEG:    {Time: 5 * time.Second, Outputs: []string{"jpg"}, InPlace: true},
	VariantSVG:     {Time: 5 * time.Second, KeepsOriginal: true},
	VariantXCF:     {Time: 5 * time.Second, Outputs: []string{"png"}, KeepsOriginal: true},
	VariantDefault: {Time: 5 * time.Second},
}

// DescriptorFor returns a copy of the variant's descriptor.
func DescriptorFor(v Variant) Descriptor {
	d, ok := descriptors[v]
	if !ok {
		d = descriptors[VariantDefault]
	}
	d.Outputs = slices.Clone(d.Outputs)
	d.Extras = slices.Clone(d.Extras)
	return d
}

// Entry describes one variant for listings.
type Entry struct {
	Variant    Variant
	Keys       []string
	Descriptor Descriptor
}

// Descriptors lists every variant with the dispatch keys that select it.
func Descriptors() []Entry {
	entries := make([]Entry, 0, len(variantNames))
	for _, v := range Variants() {
		entries = append(entries, Entry{Variant: v, Keys: KeysFor(v), Descriptor: DescriptorFor(v)})
	}
	return entries
}
