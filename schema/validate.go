package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/graphrag/errors"
)

//go:embed document.schema.json
var documentSchema string

var compiledDocumentSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
})

// ValidateDocument checks the JSON form of a schema document against the document
// JSON Schema. Every violation is listed in the returned error.
func ValidateDocument(raw []byte) error {
	s, err := compiledDocumentSchema()
	if err != nil {
		return errors.WrapFatal(err, "schema", "ValidateDocument", "compile document schema")
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"schema", "ValidateDocument", "validate document")
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidData, strings.Join(violations, "; ")),
		"schema", "ValidateDocument", "validate document")
}
