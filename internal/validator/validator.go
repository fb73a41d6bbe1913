// Package validator compiles a JSON Schema document once and checks decoded
// NDJSON rows against it.
//
// Compilation uses github.com/santhosh-tekuri/jsonschema/v6. Documents without
// a $schema keyword are compiled as draft 2020-12 unless WithDraft says
// otherwise. Remote references are not fetched: the only resource known to
// the compiler is the document itself, so an external $ref is a compile error.
//
// A failing row reports exactly one violation. The library returns a tree of
// causes in no stable order; Check descends to the smallest cause at every
// level (by instance location, then schema location) and reports that leaf.
package validator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fastjsonl/internal/rowerr"
)

// schemaURL is the resource name of the compiled document. The scheme has no
// loader, so relative references cannot escape to the filesystem.
const schemaURL = "mem://fastjsonl/schema.json"

type settings struct {
	draft        *jsonschema.Draft
	assertFormat bool
	lang         language.Tag
}

// Option customizes Compile.
type Option func(*settings)

// WithDraft sets the draft used for documents that do not declare $schema.
func WithDraft(d *jsonschema.Draft) Option {
	return func(s *settings) {
		if d != nil {
			s.draft = d
		}
	}
}

// WithAssertFormat makes the "format" keyword an assertion instead of an
// annotation.
func WithAssertFormat() Option {
	return func(s *settings) { s.assertFormat = true }
}

// WithLanguage selects the language of violation messages.
func WithLanguage(tag language.Tag) Option {
	return func(s *settings) { s.lang = tag }
}

// legacyDrafts are metaschemas the library does not implement. Without this
// list a document naming one fails with a loader error about its URL.
var legacyDrafts = []string{"draft-00", "draft-01", "draft-02", "draft-03"}

// legacyDraft returns the legacy draft named by a $schema value, or "".
func legacyDraft(doc any) string {
	m, ok := doc.(map[string]any)
	if !ok {
		return ""
	}
	uri, _ := m["$schema"].(string)
	uri = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(uri), "https://"), "http://")
	for _, d := range legacyDrafts {
		if strings.HasPrefix(uri, "json-schema.org/"+d+"/") {
			return d
		}
	}
	return ""
}

// DraftByName maps "4", "6", "7", "2019-09" and "2020-12" to a draft. The
// empty name selects 2020-12.
func DraftByName(name string) (*jsonschema.Draft, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "draft") {
	case "", "2020-12", "2020":
		return jsonschema.Draft2020, nil
	case "2019-09", "2019":
		return jsonschema.Draft2019, nil
	case "7", "-07":
		return jsonschema.Draft7, nil
	case "6", "-06":
		return jsonschema.Draft6, nil
	case "4", "-04":
		return jsonschema.Draft4, nil
	}
	return nil, fmt.Errorf("unknown JSON Schema draft %q", name)
}

// Validator is a compiled schema. It is immutable and safe for concurrent use.
type Validator struct {
	schema  *jsonschema.Schema
	printer *message.Printer
}

// Compile parses schemaText and compiles it. Every failure is a compile error
// whose message says why: the text is not JSON, the document violates its
// metaschema, the draft is unsupported, or a keyword is malformed.
func Compile(schemaText string, opts ...Option) (*Validator, error) {
	s := settings{draft: jsonschema.Draft2020, lang: language.English}
	for _, o := range opts {
		o(&s)
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaText))
	if err != nil {
		return nil, &rowerr.Error{
			Kind:    rowerr.KindCompile,
			Row:     rowerr.NoRow,
			Message: "schema is not valid JSON: " + err.Error(),
			Err:     err,
		}
	}

	if d := legacyDraft(doc); d != "" {
		return nil, &rowerr.Error{
			Kind:    rowerr.KindCompile,
			Row:     rowerr.NoRow,
			Message: fmt.Sprintf("unsupported draft: %s; use draft 4, 6, 7, 2019-09 or 2020-12", d),
		}
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(s.draft)
	if s.assertFormat {
		c.AssertFormat()
	}
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, compileError(err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, compileError(err)
	}
	return &Validator{schema: sch, printer: message.NewPrinter(s.lang)}, nil
}

func compileError(err error) error {
	msg := err.Error()
	var sve *jsonschema.SchemaValidationError
	var ude *jsonschema.UnsupportedDraftError
	switch {
	case errors.As(err, &sve):
		msg = "schema violates its metaschema: " + sve.Err.Error()
	case errors.As(err, &ude):
		msg = "unsupported draft: " + ude.Error()
	}
	return &rowerr.Error{Kind: rowerr.KindCompile, Row: rowerr.NoRow, Message: msg, Err: err}
}

// Check validates one decoded row. v must use the decoded representation of
// the row decoder (json.Number for numbers). On failure the error is a
// validation error anchored at row.
func (v *Validator) Check(row int, doc any) error {
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return rowerr.Wrap(rowerr.KindValidation, row, err)
	}

	leaf := FirstLeaf(ve)
	return &rowerr.Error{
		Kind:    rowerr.KindValidation,
		Row:     row,
		Pointer: Pointer(leaf.InstanceLocation),
		Keyword: strings.Join(leaf.ErrorKind.KeywordPath(), "/"),
		Message: leaf.ErrorKind.LocalizedString(v.printer),
		Err:     err,
	}
}

// FirstLeaf follows the smallest cause at every level of the error tree, so a
// given row always reports the same violation.
func FirstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = slices.MinFunc(ve.Causes, compareCauses)
	}
	return ve
}

func compareCauses(a, b *jsonschema.ValidationError) int {
	if c := slices.Compare(a.InstanceLocation, b.InstanceLocation); c != 0 {
		return c
	}
	if c := strings.Compare(a.SchemaURL, b.SchemaURL); c != 0 {
		return c
	}
	return slices.Compare(a.ErrorKind.KeywordPath(), b.ErrorKind.KeywordPath())
}

// Pointer renders an instance location as an RFC 6901 JSON pointer.
func Pointer(loc []string) string {
	if len(loc) == 0 {
		return ""
	}
	var b strings.Builder
	for _, tok := range loc {
		b.WriteByte('/')
		tok = strings.ReplaceAll(tok, "~", "~0")
		b.WriteString(strings.ReplaceAll(tok, "/", "~1"))
	}
	return b.String()
}
