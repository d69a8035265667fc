package abc

import "strings"

// Field is one information field such as "K:G" or "T:Title".
type Field struct {
	ID   byte
	Text string
}

func (f Field) String() string { return string(f.ID) + ":" + f.Text }

// ParseField reads a "<letter>:<text>" line. It reports false for anything
// else, including lines that only look like notation.
func ParseField(line string) (Field, bool) {
	line = strings.TrimSpace(line)
	if len(line) < 2 || !isLetter(line[0]) || line[1] != ':' {
		return Field{}, false
	}
	return Field{ID: line[0], Text: strings.TrimSpace(line[2:])}, true
}

// Header keeps every field value per identifier in arrival order.
type Header struct {
	order  []byte
	values map[byte][]string
}

func (h *Header) Add(f Field) {
	if h.values == nil {
		h.values = make(map[byte][]string)
	}
	if _, ok := h.values[f.ID]; !ok {
		h.order = append(h.order, f.ID)
	}
	h.values[f.ID] = append(h.values[f.ID], f.Text)
}

func (h Header) Values(id byte) []string { return h.values[id] }

func (h Header) Has(id byte) bool {
	_, ok := h.values[id]
	return ok
}

// First returns the earliest value for id; titles use this.
func (h Header) First(id byte) (string, bool) {
	v := h.values[id]
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Last returns the most recent value for id; key, meter, length and tempo use this.
func (h Header) Last(id byte) (string, bool) {
	v := h.values[id]
	if len(v) == 0 {
		return "", false
	}
	return v[len(v)-1], true
}

// Len is the number of distinct identifiers present.
func (h Header) Len() int { return len(h.order) }

// IDs lists the identifiers in first-seen order.
func (h Header) IDs() []byte { return append([]byte(nil), h.order...) }
