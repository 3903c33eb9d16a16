package param

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Wire is a parameter value in its wire representation: for binary kinds
// this is a {"id","mimeType"} reference into the object store; for every
// other kind it is the value's own JSON encoding.
type Wire = json.RawMessage

// BinaryWire is the wire-format reference carried by binary-kind
// parameters: the payload itself never travels inline.
type BinaryWire struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType"`
}

// BinaryData is the runtime payload of a binary-kind parameter, resolved
// from the object store.
type BinaryData struct {
	Data     []byte
	MimeType string
}

// Runtime is a parameter value in its runtime representation: the form a
// node's execute implementation actually reads.
type Runtime struct {
	Kind   Kind
	Scalar any
	Binary *BinaryData
}

// Fetcher resolves a binary kind's object-store reference into its bytes.
type Fetcher func(id string) (data []byte, mimeType string, err error)

// Storer persists binary payload bytes to the object store and returns the
// id future wire references should use.
type Storer func(data []byte, mimeType string) (id string, err error)

// Validate checks a wire-format value against its declaration: MIME
// allowlist for binary kinds, ISO-8601 parseability for date values, and
// minimal structural checks for json/geojson so a malformed payload is
// rejected before a node ever sees it.
func Validate(d Declaration, w Wire) error {
	if len(w) == 0 {
		if d.Required {
			return fmt.Errorf("parameter %q: required value missing", d.Name)
		}
		return nil
	}

	if IsBinary(d.Kind) {
		var ref BinaryWire
		if err := json.Unmarshal(w, &ref); err != nil {
			return fmt.Errorf("parameter %q: malformed binary reference: %w", d.Name, err)
		}
		if ref.ID == "" {
			return fmt.Errorf("parameter %q: binary reference missing id", d.Name)
		}
		if !d.mimeAllowed(ref.MimeType) {
			return fmt.Errorf("parameter %q: mime type %q not allowed", d.Name, ref.MimeType)
		}
		return nil
	}

	switch d.Kind {
	case KindString, KindSecret:
		var s string
		if err := json.Unmarshal(w, &s); err != nil {
			return fmt.Errorf("parameter %q: expected string: %w", d.Name, err)
		}
	case KindNumber:
		var n float64
		if err := json.Unmarshal(w, &n); err != nil {
			return fmt.Errorf("parameter %q: expected number: %w", d.Name, err)
		}
	case KindBoolean:
		var b bool
		if err := json.Unmarshal(w, &b); err != nil {
			return fmt.Errorf("parameter %q: expected boolean: %w", d.Name, err)
		}
	case KindDate:
		var s string
		if err := json.Unmarshal(w, &s); err != nil {
			return fmt.Errorf("parameter %q: expected ISO-8601 string: %w", d.Name, err)
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("parameter %q: not ISO-8601: %w", d.Name, err)
		}
	case KindJSON:
		if !gjson.ValidBytes(w) {
			return fmt.Errorf("parameter %q: malformed json", d.Name)
		}
	case KindGeoJSON:
		if !gjson.ValidBytes(w) {
			return fmt.Errorf("parameter %q: malformed json", d.Name)
		}
		result := gjson.ParseBytes(w)
		if !result.Get("type").Exists() {
			return fmt.Errorf("parameter %q: geojson missing \"type\"", d.Name)
		}
		geomType := result.Get("type").String()
		if geomType != "Feature" && geomType != "FeatureCollection" && !result.Get("coordinates").Exists() {
			return fmt.Errorf("parameter %q: geojson missing \"coordinates\"", d.Name)
		}
	case KindAny:
		if !gjson.ValidBytes(w) {
			return fmt.Errorf("parameter %q: malformed json", d.Name)
		}
	default:
		return fmt.Errorf("parameter %q: unknown kind %q", d.Name, d.Kind)
	}
	return nil
}

// ToRuntime converts a wire value into the form a node's execute
// implementation consumes, fetching binary payloads from the object store
// as needed.
func ToRuntime(d Declaration, w Wire, fetch Fetcher) (Runtime, error) {
	if len(w) == 0 {
		return Runtime{Kind: d.Kind}, nil
	}

	if IsBinary(d.Kind) {
		var ref BinaryWire
		if err := json.Unmarshal(w, &ref); err != nil {
			return Runtime{}, fmt.Errorf("parameter %q: %w", d.Name, err)
		}
		data, mimeType, err := fetch(ref.ID)
		if err != nil {
			return Runtime{}, fmt.Errorf("parameter %q: fetch %s: %w", d.Name, ref.ID, err)
		}
		if mimeType == "" {
			mimeType = ref.MimeType
		}
		return Runtime{Kind: d.Kind, Binary: &BinaryData{Data: data, MimeType: mimeType}}, nil
	}

	switch d.Kind {
	case KindDate:
		var s string
		if err := json.Unmarshal(w, &s); err != nil {
			return Runtime{}, err
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Runtime{}, err
		}
		return Runtime{Kind: d.Kind, Scalar: t}, nil
	default:
		var v any
		if err := json.Unmarshal(w, &v); err != nil {
			return Runtime{}, fmt.Errorf("parameter %q: %w", d.Name, err)
		}
		return Runtime{Kind: d.Kind, Scalar: v}, nil
	}
}

// ToWire converts a node's runtime output back into its wire
// representation, storing binary payloads in the object store and wiring
// in the resulting reference.
func ToWire(d Declaration, rt Runtime, store Storer) (Wire, error) {
	if IsBinary(d.Kind) {
		if rt.Binary == nil {
			return nil, fmt.Errorf("parameter %q: expected binary output", d.Name)
		}
		id, err := store(rt.Binary.Data, rt.Binary.MimeType)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: store: %w", d.Name, err)
		}
		return json.Marshal(BinaryWire{ID: id, MimeType: rt.Binary.MimeType})
	}

	if d.Kind == KindDate {
		t, ok := rt.Scalar.(time.Time)
		if !ok {
			return nil, fmt.Errorf("parameter %q: expected time.Time output", d.Name)
		}
		return json.Marshal(t.Format(time.RFC3339))
	}

	return json.Marshal(rt.Scalar)
}
