package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// UnseenCategory is the id assigned to a value the encoder was not fitted on.
const UnseenCategory = -1

// CategoryEncoder maps grade strings to integer ids. Classes are kept sorted,
// so the id of a class is its position in the sorted list.
type CategoryEncoder struct {
	classes []string
	index   map[string]int
}

// FitCategories builds an encoder from the distinct values in values.
func FitCategories(values []string) *CategoryEncoder {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return newEncoder(classes)
}

func newEncoder(classes []string) *CategoryEncoder {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &CategoryEncoder{classes: classes, index: index}
}

// Encode returns the id of v, or UnseenCategory.
func (e *CategoryEncoder) Encode(v string) int {
	if id, ok := e.index[v]; ok {
		return id
	}
	return UnseenCategory
}

// Decode returns the class for id.
func (e *CategoryEncoder) Decode(id int) (string, bool) {
	if id < 0 || id >= len(e.classes) {
		return "", false
	}
	return e.classes[id], true
}

// Classes returns a copy of the known classes in id order.
func (e *CategoryEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

type encoderJSON struct {
	Classes []string `json:"classes"`
}

// MarshalJSON encodes the classes as {"classes": [...]}.
func (e *CategoryEncoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(encoderJSON{Classes: e.classes})
}

// UnmarshalJSON restores an encoder written by MarshalJSON. Classes must be
// sorted.
func (e *CategoryEncoder) UnmarshalJSON(data []byte) error {
	var raw encoderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode category encoder: %w", err)
	}
	if !sort.StringsAreSorted(raw.Classes) {
		return fmt.Errorf("decode category encoder: classes are not sorted")
	}
	*e = *newEncoder(raw.Classes)
	return nil
}

// Factorize assigns ids in order of first appearance. It stands in for a
// fitted encoder when none was persisted.
func Factorize(values []string) []int {
	ids := make(map[string]int)
	out := make([]int, len(values))
	for i, v := range values {
		id, ok := ids[v]
		if !ok {
			id = len(ids)
			ids[v] = id
		}
		out[i] = id
	}
	return out
}
