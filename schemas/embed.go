// Package schemas embeds the JSON Schemas that oracle payloads must satisfy.
package schemas

import "embed"

// FS holds every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS

// Schema file names.
const (
	Questions  = "questions.schema.json"
	Evaluation = "evaluation.schema.json"
)
