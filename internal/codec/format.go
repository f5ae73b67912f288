package codec

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

// Format is a wire format the codec can produce. Every record is wrapped in
// an envelope carrying its registered type name so it can be decoded
// without knowing the type up front.
type Format interface {
	// Name identifies the format in configuration ("xml", "json").
	Name() string
	// Extension is appended to storage keys, without the dot.
	Extension() string
	// ContentType is recorded alongside stored blobs.
	ContentType() string

	wrap(typeName string, v any) ([]byte, error)
	unwrap(b []byte) (typeName string, body []byte, err error)
	unmarshal(body []byte, v any) error
}

var (
	// XML encodes records as <record type="Name">...</record> documents.
	XML Format = xmlFormat{}
	// JSON encodes records as {"type":"Name","data":{...}} documents.
	JSON Format = jsonFormat{}
)

// FormatByName resolves a configured format name. The empty name selects XML.
func FormatByName(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "xml":
		return XML, nil
	case "json":
		return JSON, nil
	default:
		return nil, &ConfigError{Op: "select format", Err: fmt.Errorf("unknown format %q", name)}
	}
}

type xmlRecord struct {
	XMLName xml.Name `xml:"record"`
	Type    string   `xml:"type,attr"`
	Body    []byte   `xml:",innerxml"`
}

type xmlFormat struct{}

func (xmlFormat) Name() string        { return "xml" }
func (xmlFormat) Extension() string   { return "xml" }
func (xmlFormat) ContentType() string { return "application/xml" }

func (xmlFormat) wrap(typeName string, v any) ([]byte, error) {
	if err := xmlText.check(v); err != nil {
		return nil, err
	}
	inner, err := xml.MarshalIndent(v, "  ", "  ")
	if err != nil {
		return nil, err
	}
	body := make([]byte, 0, len(inner)+2)
	body = append(body, '\n')
	body = append(body, inner...)
	body = append(body, '\n')
	out, err := xml.Marshal(xmlRecord{Type: typeName, Body: body})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(xml.Header) + len(out) + 1)
	buf.WriteString(xml.Header)
	buf.Write(out)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (xmlFormat) unwrap(b []byte) (string, []byte, error) {
	var rec xmlRecord
	if err := xml.Unmarshal(b, &rec); err != nil {
		return "", nil, err
	}
	if rec.Type == "" {
		return "", nil, fmt.Errorf("record has no type attribute")
	}
	return rec.Type, rec.Body, nil
}

func (xmlFormat) unmarshal(body []byte, v any) error {
	return xml.Unmarshal(body, v)
}

type jsonRecord struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type jsonFormat struct{}

func (jsonFormat) Name() string        { return "json" }
func (jsonFormat) Extension() string   { return "json" }
func (jsonFormat) ContentType() string { return "application/json" }

func (jsonFormat) wrap(typeName string, v any) ([]byte, error) {
	if err := jsonText.check(v); err != nil {
		return nil, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(jsonRecord{Type: typeName, Data: data}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func (jsonFormat) unwrap(b []byte) (string, []byte, error) {
	var rec jsonRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return "", nil, err
	}
	if rec.Type == "" {
		return "", nil, fmt.Errorf("record has no type field")
	}
	if len(rec.Data) == 0 {
		return "", nil, fmt.Errorf("record %s has no data", rec.Type)
	}
	return rec.Type, rec.Data, nil
}

func (jsonFormat) unmarshal(body []byte, v any) error {
	return json.Unmarshal(body, v)
}
