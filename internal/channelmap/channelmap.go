// Package channelmap models the static measurement → channel → field
// configuration consumed by an analysis run. Maps are built either from a
// line-oriented file or directly from store discovery, and are treated as
// immutable once a run starts.
package channelmap

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
)

// DefaultChannel groups fields of measurements that carry no explicit
// channel information, such as maps loaded from a field file or built from
// store discovery.
const DefaultChannel = "CAN_ID_1"

// Channels maps a channel identifier (typically a CAN id) to the ordered
// list of field names it carries.
type Channels map[string][]string

// Map maps measurement names to their channel groupings.
type Map map[string]Channels

// Measurements returns the measurement names in sorted order, for
// deterministic iteration and output.
func (m Map) Measurements() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChannelIDs returns the channel ids of a measurement in sorted order.
func (m Map) ChannelIDs(measurement string) []string {
	ids := make([]string, 0, len(m[measurement]))
	for id := range m[measurement] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fields returns every field of a measurement across all of its channels,
// in channel-sorted then declaration order.
func (m Map) Fields(measurement string) []string {
	var fields []string
	for _, id := range m.ChannelIDs(measurement) {
		fields = append(fields, m[measurement][id]...)
	}
	return fields
}

// FromDiscovery builds a map from store discovery output, placing each
// measurement's fields under the default channel.
func FromDiscovery(fieldsByMeasurement map[string][]string) Map {
	cm := make(Map, len(fieldsByMeasurement))
	for measurement, fields := range fieldsByMeasurement {
		ordered := append([]string(nil), fields...)
		sort.Strings(ordered)
		cm[measurement] = Channels{DefaultChannel: ordered}
	}
	return cm
}

// Load parses the line-oriented channel map format:
//
//	measurement<TAB>first_field
//	<indent>second_field
//	<indent>third_field
//
// An unindented line opens a new measurement block; indented lines append
// fields to the open block; blank lines close it. A measurement line with no
// tab-separated field opens an empty block.
func Load(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpeningMapFile, err)
	}
	defer f.Close()

	cm := make(Map)
	var current string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		stripped := strings.TrimSpace(line)

		if stripped == "" {
			current = ""
			continue
		}

		if startsIndented(line) && current != "" {
			cm[current][DefaultChannel] = append(cm[current][DefaultChannel], stripped)
			continue
		}

		parts := strings.Split(stripped, "\t")
		current = parts[0]
		if current == "" {
			return nil, fmt.Errorf("%w: line %q", ErrMalformedMapLine, line)
		}
		ch := Channels{DefaultChannel: nil}
		if len(parts) >= 2 && parts[1] != "" {
			ch[DefaultChannel] = []string{parts[1]}
		}
		cm[current] = ch
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadingMapFile, err)
	}

	return cm, nil
}

func startsIndented(line string) bool {
	return len(line) > 0 && unicode.IsSpace(rune(line[0]))
}
