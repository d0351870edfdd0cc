package collection

import (
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["collection_name", "tests"],
  "properties": {
    "collection_name": {"type": "string"},
    "description": {"type": "string"},
    "base_url": {"type": "string"},
    "tests": {"type": "array", "items": {"$ref": "#/definitions/test"}}
  },
  "definitions": {
    "scalars": {
      "type": "object",
      "additionalProperties": {"type": ["string", "number", "boolean"]}
    },
    "assertion": {
      "type": "object",
      "required": ["type", "path"],
      "properties": {
        "type": {"enum": ["equals", "contains", "exists", "not_exists"]},
        "path": {"type": "string"}
      }
    },
    "test": {
      "type": "object",
      "required": ["name", "method", "endpoint"],
      "properties": {
        "name": {"type": "string"},
        "method": {"type": "string"},
        "endpoint": {"type": "string"},
        "headers": {"$ref": "#/definitions/scalars"},
        "query_params": {"$ref": "#/definitions/scalars"},
        "expected_status": {"type": "integer"},
        "assertions": {"type": "array", "items": {"$ref": "#/definitions/assertion"}}
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
})
