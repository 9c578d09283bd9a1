package payload

import (
	"encoding/json"
	"fmt"
)

// Document is the subset of an apidatos response used by the loader.
type Document struct {
	Included *[]Item `json:"included"`
}

// Item is one element of the included array.
type Item struct {
	Type       *string     `json:"type"`
	ID         string      `json:"id"`
	GroupID    string      `json:"groupId,omitempty"`
	Attributes *Attributes `json:"attributes"`
}

// Attributes holds the measurement series of an included element.
type Attributes struct {
	Title      string   `json:"title"`
	Color      string   `json:"color"`
	LastUpdate string   `json:"last-update"`
	Values     *[]Value `json:"values"`

	seen keySet
}

var attributeKeys = []string{"color", "title", "last-update"}

// UnmarshalJSON decodes the attributes and records which metadata keys were present.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	type plain Attributes
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	seen, err := presentKeys(data, attributeKeys)
	if err != nil {
		return err
	}
	*a = Attributes(p)
	a.seen = seen
	return nil
}

// Value is a single data point as delivered by the API. A nil Value or
// Percentage was null or absent in the source and is not a zero reading.
type Value struct {
	Value      *float64 `json:"value"`
	Percentage *float64 `json:"percentage"`
	Datetime   string   `json:"datetime"`

	seen keySet
}

var valueKeys = []string{"value", "percentage", "datetime"}

// UnmarshalJSON decodes the value and records which keys were present.
func (v *Value) UnmarshalJSON(data []byte) error {
	type plain Value
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	seen, err := presentKeys(data, valueKeys)
	if err != nil {
		return err
	}
	*v = Value(p)
	v.seen = seen
	return nil
}

// keySet is a bitmask over a fixed key list.
type keySet uint8

func presentKeys(data []byte, keys []string) (keySet, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, err
	}
	var s keySet
	for i, k := range keys {
		if _, ok := raw[k]; ok {
			s |= 1 << i
		}
	}
	return s, nil
}

// absent returns the first key of keys not recorded in s.
func (s keySet) absent(keys []string) (string, bool) {
	for i, k := range keys {
		if s&(1<<i) == 0 {
			return k, true
		}
	}
	return "", false
}

// Decode parses a response body.
func Decode(body []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &doc, nil
}

// FirstValues returns included[0].attributes.values.
func (d *Document) FirstValues() ([]Value, error) {
	if d.Included == nil {
		return nil, missing("included")
	}
	items := *d.Included
	if len(items) == 0 {
		return nil, missing("included[0]")
	}
	return items[0].values(0)
}

// Categorize groups every included element by its type tag. Groups keep the
// order in which their type was first seen; entries keep source order.
func (d *Document) Categorize() (*Categories, error) {
	if d.Included == nil {
		return nil, missing("included")
	}

	cats := NewCategories()
	for i, item := range *d.Included {
		if item.Type == nil {
			return nil, missing("included[%d].type", i)
		}
		values, err := item.values(i)
		if err != nil {
			return nil, err
		}

		if key, ok := item.Attributes.seen.absent(attributeKeys); ok {
			return nil, missing("included[%d].attributes.%s", i, key)
		}
		for j, v := range values {
			if key, ok := v.seen.absent(valueKeys); ok {
				return nil, missing("included[%d].attributes.values[%d].%s", i, j, key)
			}
		}

		// Groups are created even when an element has no values.
		cats.ensure(*item.Type)
		for _, v := range values {
			cats.Add(*item.Type, Entry{
				Valor:      v.Value,
				Porcentaje: v.Percentage,
				Fecha:      v.Datetime,
				Color:      item.Attributes.Color,
				Title:      item.Attributes.Title,
				LastUpdate: item.Attributes.LastUpdate,
			})
		}
	}
	return cats, nil
}

func (it Item) values(idx int) ([]Value, error) {
	if it.Attributes == nil {
		return nil, missing("included[%d].attributes", idx)
	}
	if it.Attributes.Values == nil {
		return nil, missing("included[%d].attributes.values", idx)
	}
	return *it.Attributes.Values, nil
}
