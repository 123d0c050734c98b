package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
)

// schema constrains intcode.toml. Unknown sections and keys are rejected.
const schema = `
#Manifest: {
	machine?: {
		"start-pc"?:  int & >=0
		overflow?:    "fault" | "check" | "wrap"
		"max-steps"?: int & >=0
		trace?:       bool
	}
	console?: {
		prompt?:          string
		"output-prefix"?: string
	}
	server?: {
		addr?:             string
		"grpc-addr"?:      string
		"max-concurrent"?: int & >=1
		"max-sessions"?:   int & >=1
		"max-steps"?:      int & >=0
	}
	history?: {
		enabled?: bool
		path?:    string
	}
	log?: {
		verbosity?: int & >=-4 & <=5
		path?:      string
	}
}
`

// Validate checks a TOML document against the manifest schema.
func Validate(data []byte) error {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	ctx := cuecontext.New()
	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Manifest"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	v := def.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}
