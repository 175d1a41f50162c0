package config

import (
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry holds compiled CUE definitions used for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a registry with the built-in #Site schema.
func NewSchemaRegistry(ctx *cue.Context) *SchemaRegistry {
	if ctx == nil {
		ctx = cuecontext.New()
	}
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	if err := sr.RegisterSchema(SiteSchemaName, builtinSiteSchema); err != nil {
		// The built-in schema is a constant; failing to compile it is a bug.
		panic(err)
	}

	return sr
}

// SiteSchemaName is the definition every manifest is unified with.
const SiteSchemaName = "#Site"

// RegisterSchema compiles schema and registers the definition called name
// from it. name must be a CUE definition (e.g., "#Site").
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema, cue.Filename("schema:"+name))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	def := val.LookupPath(cue.ParsePath(name))
	if !def.Exists() {
		return fmt.Errorf("schema does not define %s", name)
	}

	sr.schemas[name] = def
	return nil
}

// GetSchema retrieves a definition by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// Unify unifies val with the named definition and checks the result is
// concrete.
func (sr *SchemaRegistry) Unify(name string, val cue.Value) (cue.Value, error) {
	schema, ok := sr.GetSchema(name)
	if !ok {
		return cue.Value{}, fmt.Errorf("schema %s not found", name)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return unified, err
	}
	return unified, nil
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const builtinSiteSchema = `
// Site manifest schema
#Site: {
	// Domain is the root domain of the site
	domain: string & =~"^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\\.)+[a-zA-Z]{2,63}\\.?$"

	// Protected guards the site against destroy
	protected?: bool

	registrar?: "route53" | "dynadot"

	webmasterEmail?: string & =~"^[^@\\s]+@[^@\\s]+$"

	subdomains?: [...string & !=""]

	webHosting?: #WebHosting

	pipeline?: {
		type:    string & !=""
		source?: string
	}

	certificate?: {
		subjectAlternativeNames?: [...string & !=""]
	}

	services?: [...string & !=""]

	notifications?: {
		disabled?:    bool
		noSubscribe?: bool
	}

	// Facts are evaluated after the built-in catalog, in order
	facts?: [...#Fact]
}

#WebHosting: {
	type?: "static" | "spa" | "redirect"

	waf?: {
		enabled:       bool
		rateLimit?:    int
		managedRules?: [...string & !=""]
	}
}

#Fact: {
	name: string & =~"^[a-zA-Z_][a-zA-Z0-9_]*$"
	expr: string & !=""
}
`
