package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is one value of a categorized series, carrying the metadata of the
// element it came from.
type Entry struct {
	Valor      *float64 `json:"valor"`
	Porcentaje *float64 `json:"porcentaje"`
	Fecha      string   `json:"fecha"`
	Color      string   `json:"color"`
	Title      string   `json:"title"`
	LastUpdate string   `json:"last-update"`
}

// Categories maps a type tag to its entries and remembers insertion order.
// The zero value is not usable; call NewCategories.
type Categories struct {
	order  []string
	groups map[string][]Entry
}

// NewCategories returns an empty mapping.
func NewCategories() *Categories {
	return &Categories{groups: make(map[string][]Entry)}
}

// Add appends e to the group for typ, creating the group if needed.
func (c *Categories) Add(typ string, e Entry) {
	c.ensure(typ)
	c.groups[typ] = append(c.groups[typ], e)
}

func (c *Categories) ensure(typ string) {
	if _, ok := c.groups[typ]; !ok {
		c.order = append(c.order, typ)
		c.groups[typ] = []Entry{}
	}
}

// Types returns the type tags in first-seen order.
func (c *Categories) Types() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Get returns the entries recorded for typ.
func (c *Categories) Get(typ string) ([]Entry, bool) {
	e, ok := c.groups[typ]
	return e, ok
}

// Len returns the number of groups.
func (c *Categories) Len() int {
	return len(c.order)
}

// MarshalJSON encodes the groups as an object whose keys follow first-seen order.
func (c *Categories) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, typ := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(typ)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.groups[typ])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of groups, keeping key order.
func (c *Categories) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("categories: expected object, got %v", tok)
	}

	c.order = nil
	c.groups = make(map[string][]Entry)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		typ, ok := tok.(string)
		if !ok {
			return fmt.Errorf("categories: expected key, got %v", tok)
		}
		var entries []Entry
		if err := dec.Decode(&entries); err != nil {
			return fmt.Errorf("categories: group %q: %w", typ, err)
		}
		c.ensure(typ)
		c.groups[typ] = append(c.groups[typ], entries...)
	}
	_, err = dec.Token()
	return err
}
