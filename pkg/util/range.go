package util

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ExpandRange expands a range specification into individual values
// Supports formats like:
//   - "1-5" -> [1, 2, 3, 4, 5]
//   - "1,3,5" -> [1, 3, 5]
//   - "1-3,5,7-9" -> [1, 2, 3, 5, 7, 8, 9]
func ExpandRange(spec string) ([]int, error) {
	if spec == "" {
		return nil, nil
	}

	var result []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "-") {
			rangeParts := strings.SplitN(part, "-", 2)
			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid start value in range %s: %v", part, err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid end value in range %s: %v", part, err)
			}
			if start > end {
				return nil, fmt.Errorf("start value %d greater than end value %d in range %s", start, end, part)
			}
			for i := start; i <= end; i++ {
				result = append(result, i)
			}
			continue
		}

		val, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %s", part)
		}
		result = append(result, val)
	}

	sort.Ints(result)
	return dedupInts(result), nil
}

// CompactRange compacts a list of integers into range notation
// [1, 2, 3, 5, 7, 8, 9] -> "1-3,5,7-9"
func CompactRange(values []int) string {
	if len(values) == 0 {
		return ""
	}

	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	sorted = dedupInts(sorted)

	var parts []string
	start, end := sorted[0], sorted[0]
	for _, v := range sorted[1:] {
		if v == end+1 {
			end = v
			continue
		}
		parts = append(parts, formatRange(start, end))
		start, end = v, v
	}
	parts = append(parts, formatRange(start, end))

	return strings.Join(parts, ",")
}

func formatRange(start, end int) string {
	if start == end {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

func dedupInts(sorted []int) []int {
	if len(sorted) == 0 {
		return sorted
	}
	result := []int{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			result = append(result, sorted[i])
		}
	}
	return result
}

// ValidateVLANID checks the 802.1Q usable range.
func ValidateVLANID(id int) error {
	if id < 1 || id > 4094 {
		return fmt.Errorf("VLAN ID must be between 1 and 4094, got %d", id)
	}
	return nil
}

// ExpandVLANRange expands VLAN range notation
// "100-105,200" -> [100, 101, 102, 103, 104, 105, 200]
func ExpandVLANRange(spec string) ([]int, error) {
	vlans, err := ExpandRange(spec)
	if err != nil {
		return nil, err
	}
	for _, vlan := range vlans {
		if err := ValidateVLANID(vlan); err != nil {
			return nil, err
		}
	}
	return vlans, nil
}

// ParseVLANList accepts the argument words of a VLAN list in either vendor
// form and returns the sorted, deduplicated IDs:
//
//	["10", "20", "to", "25"]  (VRP "vlan batch" / "allow-pass")
//	["10,20-25"]              (IOS "allowed vlan")
func ParseVLANList(words []string) ([]int, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("VLAN list is empty")
	}
	var specs []string
	for i := 0; i < len(words); i++ {
		w := strings.ToLower(words[i])
		if w == "to" {
			if len(specs) == 0 || i+1 >= len(words) {
				return nil, fmt.Errorf("incomplete VLAN range near 'to'")
			}
			specs[len(specs)-1] += "-" + words[i+1]
			i++
			continue
		}
		specs = append(specs, w)
	}
	return ExpandVLANRange(strings.Join(specs, ","))
}
