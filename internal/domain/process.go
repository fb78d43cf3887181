package domain

import (
	"encoding/json"
	"strings"
)

// ProcessTag names a preparation step.
type ProcessTag string

const (
	ProcessDefrosting ProcessTag = "defrosting"
	ProcessCleaning   ProcessTag = "cleaning"
	ProcessCooking    ProcessTag = "cooking"
	ProcessPortioning ProcessTag = "portioning"
	ProcessAssembly   ProcessTag = "assembly"
)

var processTagLabels = map[ProcessTag]string{
	ProcessDefrosting: "Defrosting",
	ProcessCleaning:   "Cleaning",
	ProcessCooking:    "Cooking",
	ProcessPortioning: "Portioning",
	ProcessAssembly:   "Assembly",
}

// Aliases seen in imported data (Portuguese form labels included).
var processTagCodes = map[string]ProcessTag{
	"defrosting":      ProcessDefrosting,
	"thawing":         ProcessDefrosting,
	"descongelamento": ProcessDefrosting,
	"cleaning":        ProcessCleaning,
	"limpeza":         ProcessCleaning,
	"cooking":         ProcessCooking,
	"coccao":          ProcessCooking,
	"cocção":          ProcessCooking,
	"portioning":      ProcessPortioning,
	"porcionamento":   ProcessPortioning,
	"assembly":        ProcessAssembly,
	"montagem":        ProcessAssembly,
}

// Label returns a human-readable label for the tag.
func (p ProcessTag) Label() string {
	if label, ok := processTagLabels[p]; ok {
		return label
	}

	return "Unknown"
}

// IsLossStage reports whether the tag measures weight loss between two weights.
func (p ProcessTag) IsLossStage() bool {
	return p == ProcessDefrosting || p == ProcessCleaning || p == ProcessCooking
}

// ParseProcessTag returns the tag for a given label (case-insensitive).
func ParseProcessTag(label string) (ProcessTag, bool) {
	tag, ok := processTagCodes[strings.ToLower(strings.TrimSpace(label))]

	return tag, ok
}

// UnmarshalJSON folds known aliases onto the canonical tag. Unknown labels are
// kept lower-cased so the calculators can ignore them.
func (p *ProcessTag) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if tag, ok := ParseProcessTag(raw); ok {
		*p = tag
		return nil
	}
	*p = ProcessTag(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}
