package diag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DocumentSection is one assembled section of a Document.
type DocumentSection struct {
	Name   string
	Fields []NamedStat
}

// Document is the assembled diagnostics output: an append-only, ordered
// section -> field -> value structure. Sections appear in the order they
// were appended and fields in registry declaration order, so repeated calls
// with identical input produce byte-identical encodings.
type Document struct {
	sections []DocumentSection
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{}
}

// Len returns the number of assembled sections.
func (d *Document) Len() int {
	return len(d.sections)
}

// Sections returns a copy of the assembled sections in order.
func (d *Document) Sections() []DocumentSection {
	out := make([]DocumentSection, len(d.sections))
	copy(out, d.sections)
	for i := range out {
		fields := make([]NamedStat, len(out[i].Fields))
		copy(fields, out[i].Fields)
		out[i].Fields = fields
	}
	return out
}

// Section returns the named section, if present.
func (d *Document) Section(name string) (DocumentSection, bool) {
	for _, s := range d.sections {
		if s.Name == name {
			return s, true
		}
	}
	return DocumentSection{}, false
}

// appendSection adds a fully assembled section. Prior content is never
// removed or reordered.
func (d *Document) appendSection(name string, fields []NamedStat) {
	d.sections = append(d.sections, DocumentSection{Name: name, Fields: fields})
}

// MarshalJSON encodes the document as a nested object, preserving section
// and field order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range d.sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteString(":{")
		for j, f := range s.Fields {
			if j > 0 {
				buf.WriteByte(',')
			}
			fieldName, err := json.Marshal(f.Name)
			if err != nil {
				return nil, err
			}
			buf.Write(fieldName)
			buf.WriteByte(':')
			fmt.Fprintf(&buf, "%d", f.Value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a document, preserving the encoded order.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	var sections []DocumentSection
	for dec.More() {
		name, err := expectString(dec)
		if err != nil {
			return err
		}
		fields, err := decodeFields(dec)
		if err != nil {
			return fmt.Errorf("section %q: %w", name, err)
		}
		sections = append(sections, DocumentSection{Name: name, Fields: fields})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	d.sections = sections
	return nil
}

func decodeFields(dec *json.Decoder) ([]NamedStat, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var fields []NamedStat
	for dec.More() {
		name, err := expectString(dec)
		if err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		num, ok := tok.(json.Number)
		if !ok {
			return nil, fmt.Errorf("field %q: expected integer value, got %v", name, tok)
		}
		value, err := parseUint(num)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields = append(fields, NamedStat{Name: name, Value: value})
	}
	return fields, expectDelim(dec, '}')
}

func parseUint(num json.Number) (uint64, error) {
	v, err := strconv.ParseUint(num.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value %s is not an unsigned integer", num)
	}
	return v, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func expectString(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %v", tok)
	}
	return s, nil
}
