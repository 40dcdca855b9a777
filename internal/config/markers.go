package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ornithopter83/selftrack/internal/pose"
)

// MarkerFile is the YAML layout of a marker configuration file.
//
//	confidence: 0.5
//	radius: 10
//	markers:
//	  - index: 0
//	    name: head
//	    label: Head
//	    color: "#ef4444"
type MarkerFile struct {
	Confidence *float64      `yaml:"confidence"`
	Radius     *float64      `yaml:"radius"`
	Markers    []MarkerEntry `yaml:"markers"`
}

// MarkerEntry describes one marker in a MarkerFile
type MarkerEntry struct {
	Index int    `yaml:"index"`
	Name  string `yaml:"name"`
	Label string `yaml:"label"`
	Color string `yaml:"color"`
}

// LoadMarkers reads a marker set from a YAML file. Omitted thresholds
// fall back to the defaults.
func LoadMarkers(path string) (pose.MarkerSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pose.MarkerSet{}, fmt.Errorf("error reading marker file: %w", err)
	}

	var file MarkerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return pose.MarkerSet{}, fmt.Errorf("error parsing marker file: %w", err)
	}

	set := pose.MarkerSet{
		Confidence: pose.DefaultConfidence,
		Radius:     pose.DefaultRadius,
	}
	if file.Confidence != nil {
		set.Confidence = *file.Confidence
	}
	if file.Radius != nil {
		set.Radius = *file.Radius
	}

	for i, entry := range file.Markers {
		c, err := pose.ParseColor(entry.Color)
		if err != nil {
			return pose.MarkerSet{}, fmt.Errorf("marker %d: %w", i, err)
		}
		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("landmark_%d", entry.Index)
		}
		set.Markers = append(set.Markers, pose.Marker{
			Index: entry.Index,
			Name:  name,
			Label: entry.Label,
			Color: c,
		})
	}

	if err := set.Validate(); err != nil {
		return pose.MarkerSet{}, fmt.Errorf("marker file %s: %w", path, err)
	}
	return set, nil
}
