// Package enums provides type-safe enumeration types shared by the pipeline and the web interface.
//
// The enum types are defined as unexported integer types in this file, and the go:generate
// directives invoke github.com/go-pkgz/enum to create the exported types in *_enum.go files.
//
// For each enum type the generated code provides:
//   - an exported struct type (e.g. TextSource) with name and value fields
//   - String() for display
//   - Parse functions (e.g. ParseTextSource) for string-to-enum conversion
//   - Scan/Value for SQL storage as strings
//   - MarshalText/UnmarshalText for JSON
//
// Usage:
//
//	src := enums.TextSourceFallback
//	fmt.Println(src.String()) // "fallback"
//
//	parsed, err := enums.ParseTheme("dark")
//
// To regenerate the enum types after modifications:
//
//	go generate ./app/web/enums
package enums

//go:generate go run github.com/go-pkgz/enum@latest -type theme -lower
//go:generate go run github.com/go-pkgz/enum@latest -type textSource -lower

// theme represents UI themes.
// This is an unexported type used only as input for the code generator.
type theme int

const (
	themeLight theme = iota
	themeDark
	themeAuto
)

// textSource tells where the extracted document text came from.
// This is an unexported type used only as input for the code generator.
type textSource int

const (
	textSourceNone     textSource = iota // nothing uploaded
	textSourceOcr                        // image recognized by an OCR engine
	textSourceDocument                   // text layer of a PDF/DOCX document
	textSourceFallback                   // OCR unavailable or failed, demo text substituted
)
