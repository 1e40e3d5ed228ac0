package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/graphrag/errors"
)

// Document is the exported schema format.
type Document struct {
	EntityTypes       []EntityType       `json:"entity_types" yaml:"entity_types"`
	RelationshipTypes []RelationshipType `json:"relationship_types" yaml:"relationship_types"`
	Metadata          Metadata           `json:"metadata" yaml:"metadata"`
}

// Metadata describes the registry state at export time.
type Metadata struct {
	Version       int           `json:"version" yaml:"version"`
	Timestamp     string        `json:"timestamp" yaml:"timestamp"`
	QualityScores QualityScores `json:"quality_scores" yaml:"quality_scores"`
}

// Export returns the current schema. Version is the number of recorded versions.
func (r *Registry) Export() Document {
	doc := Document{
		EntityTypes:       make([]EntityType, 0, len(r.entityOrder)),
		RelationshipTypes: r.RelationshipTypes(),
		Metadata: Metadata{
			Version:       len(r.versions),
			Timestamp:     r.now().UTC().Format(time.RFC3339),
			QualityScores: r.quality,
		},
	}
	for _, name := range r.entityOrder {
		doc.EntityTypes = append(doc.EntityTypes, r.entities[name].clone())
	}
	return doc
}

// ExportFile writes the schema to path, as YAML for .yaml/.yml and indented JSON otherwise.
func (r *Registry) ExportFile(path string) error {
	doc := r.Export()

	var (
		raw []byte
		err error
	)
	if isYAML(path) {
		raw, err = yaml.Marshal(doc)
	} else {
		raw, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "schema", "ExportFile", "encode schema")
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.WrapTransient(err, "schema", "ExportFile", "write schema file")
	}
	r.logger.Info("exported schema", "path", path,
		"entity_types", len(doc.EntityTypes), "relationship_types", len(doc.RelationshipTypes))
	return nil
}

// Import adds the entity and relationship types of doc. Existing types are left
// untouched and entries missing a name, source or target are skipped.
func (r *Registry) Import(doc Document) BatchResult {
	batch := Batch{
		EntityTypes:       make([]EntityType, 0, len(doc.EntityTypes)),
		RelationshipTypes: make([]RelationshipType, 0, len(doc.RelationshipTypes)),
	}
	for _, et := range doc.EntityTypes {
		if et.Name == "" {
			r.logger.Debug("skipping entity type without name")
			continue
		}
		batch.EntityTypes = append(batch.EntityTypes, et)
	}
	for _, rt := range doc.RelationshipTypes {
		if rt.Name == "" || rt.Source == "" || rt.Target == "" {
			r.logger.Debug("skipping incomplete relationship type",
				"relationship_type", rt.Name, "source", rt.Source, "target", rt.Target)
			continue
		}
		batch.RelationshipTypes = append(batch.RelationshipTypes, rt)
	}
	return r.ApplyBatch(batch)
}

// ReadDocument decodes a schema document, as YAML for .yaml/.yml and JSON otherwise.
// The document is checked against the document JSON Schema before it is decoded.
func ReadDocument(path string) (Document, error) {
	var doc Document

	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, errors.WrapInvalid(err, "schema", "ReadDocument", "read schema file")
	}

	if isYAML(path) {
		var generic any
		if err = yaml.Unmarshal(raw, &generic); err == nil {
			raw, err = json.Marshal(generic)
		}
	} else if !json.Valid(raw) {
		err = fmt.Errorf("malformed JSON")
	}
	if err != nil {
		return doc, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"schema", "ReadDocument", "decode schema")
	}

	if err := ValidateDocument(raw); err != nil {
		return doc, err
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"schema", "ReadDocument", "decode schema")
	}
	return doc, nil
}

// LoadFile builds a registry from a schema file. It always returns a usable registry:
// when the file cannot be read or decoded the default schema is used and the
// error is returned alongside it.
func LoadFile(path string, logger *slog.Logger) (*Registry, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		r := NewDefault(logger)
		r.logger.Warn("schema load failed, using default schema", "path", path, "error", err)
		return r, err
	}

	r := NewRegistry(logger)
	res := r.Import(doc)
	r.RecordVersion(InitialVersionDescription)
	r.logger.Info("loaded schema", "path", path,
		"entity_types", len(res.EntityTypes), "relationship_types", len(res.RelationshipTypes),
		"rejected", len(res.Rejected))
	return r, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
