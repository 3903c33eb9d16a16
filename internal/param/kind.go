// Package param implements the parameter kind system: the tagged variant
// over scalar and binary value kinds, its wire/runtime representations, and
// the validation and assignability rules nodes and edges are checked
// against.
package param

// Kind is the tag of the parameter kind variant.
type Kind string

const (
	KindString         Kind = "string"
	KindNumber         Kind = "number"
	KindBoolean        Kind = "boolean"
	KindDate           Kind = "date"
	KindJSON           Kind = "json"
	KindGeoJSON        Kind = "geojson"
	KindImage          Kind = "image"
	KindAudio          Kind = "audio"
	KindDocument       Kind = "document"
	KindBlob           Kind = "blob"
	KindGLTF           Kind = "gltf"
	KindBufferGeometry Kind = "buffergeometry"
	KindSecret         Kind = "secret"
	KindAny            Kind = "any"
)

// binaryKinds carries its payload through the object store rather than
// inline in the wire message.
var binaryKinds = map[Kind]bool{
	KindImage:          true,
	KindAudio:          true,
	KindDocument:       true,
	KindBlob:           true,
	KindGLTF:           true,
	KindBufferGeometry: true,
}

// IsBinary reports whether values of this kind are stored as object
// references on the wire rather than inline.
func IsBinary(k Kind) bool {
	return binaryKinds[k]
}

// defaultMimeAllowlist is the set of MIME types a binary kind accepts when a
// node declaration does not narrow it further. Declarations may supply their
// own AllowedMimeTypes to restrict beyond this default.
var defaultMimeAllowlist = map[Kind][]string{
	KindImage: {"image/png", "image/jpeg", "image/webp", "image/gif"},
	KindAudio: {"audio/mpeg", "audio/webm"},
	KindDocument: {
		"application/pdf",
		"text/plain", "text/markdown",
		"text/csv", "application/vnd.ms-excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"text/html",
		"application/xml", "text/xml",
		"image/svg+xml",
	},
	KindBlob: nil, // blob accepts any MIME type
	KindGLTF: {"model/gltf+json", "model/gltf-binary"},
	// bufferGeometry has no standard MIME registration; accept the vendor
	// type the node registry's 3D nodes agree on.
	KindBufferGeometry: {"application/x-buffergeometry+json"},
}

// DefaultMimeAllowlist returns the built-in MIME allowlist for a binary
// kind. A nil, non-error return means "any MIME type accepted".
func DefaultMimeAllowlist(k Kind) []string {
	return defaultMimeAllowlist[k]
}

// Assignable reports whether a value declared as kind `from` may flow into
// a parameter declared as kind `to`, per the type-assignability rules:
//   - any is assignable to/from everything
//   - a binary kind is assignable only to the same binary kind or to any
//   - string is assignable to date only under a runtime ISO-8601 check
//     (Validate enforces that; Assignable allows the static edge to exist)
//   - otherwise kinds must match exactly
func Assignable(from, to Kind) bool {
	if from == KindAny || to == KindAny {
		return true
	}
	if IsBinary(from) || IsBinary(to) {
		return from == to
	}
	if from == KindString && to == KindDate {
		return true
	}
	return from == to
}
