// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package doc

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	jsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed data/license.schema.json data/status.schema.json data/link.schema.json
var schemaFS embed.FS

// compileSchema loads the named main schema plus the shared link schema,
// mirroring the reference server's checker.go validateLicense/validateStatusDoc
// (a link schema registered once, referenced by $ref from the document schema).
func compileSchema(mainSchemaFile string) (*jsonschema.Schema, error) {
	linkSchema, err := schemaFS.ReadFile("data/link.schema.json")
	if err != nil {
		return nil, err
	}
	mainSchema, err := schemaFS.ReadFile(mainSchemaFile)
	if err != nil {
		return nil, err
	}

	sl := jsonschema.NewSchemaLoader()
	if err := sl.AddSchemas(jsonschema.NewStringLoader(string(linkSchema))); err != nil {
		return nil, err
	}
	return sl.Compile(jsonschema.NewStringLoader(string(mainSchema)))
}

func validateAgainst(mainSchemaFile string, raw []byte) error {
	schema, err := compileSchema(mainSchemaFile)
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", mainSchemaFile, err)
	}
	result, err := schema.Validate(jsonschema.NewBytesLoader(raw))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	var msg string
	for _, desc := range result.Errors() {
		msg += "- " + desc.String() + "\n"
	}
	return errors.New(msg)
}

func validateLicenseSchema(raw []byte) error {
	return validateAgainst("data/license.schema.json", raw)
}

func validateStatusSchema(raw []byte) error {
	return validateAgainst("data/status.schema.json", raw)
}

// unmarshalStrict decodes JSON into v. Schema validation above already
// rejected structurally invalid documents; this step only needs to populate
// the Go fields, so unknown vendor extensions in the wire JSON are tolerated.
func unmarshalStrict(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}
