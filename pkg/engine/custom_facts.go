package engine

import (
	"fmt"
	"slices"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/openfroyo/sitefroyo/pkg/rules"
)

// maxCustomFactSteps bounds the work a single custom fact expression may do.
const maxCustomFactSteps = 100_000

// CustomFactRules compiles manifest-declared facts into rules. Each
// expression is a Starlark boolean expression that may read:
//
//	facts    dict of facts evaluated so far (name -> bool)
//	params   dict of persisted parameters (name -> string)
//	domain   the site's domain
//	command  the current command
//
// Names must be unique and must not shadow a built-in fact.
func CustomFactRules(defs []CustomFact) ([]SiteRule, error) {
	if len(defs) == 0 {
		return nil, nil
	}

	builtin := CatalogNames()
	seen := make(map[string]bool, len(defs))
	out := make([]SiteRule, 0, len(defs))

	for _, def := range defs {
		switch {
		case def.Name == "":
			return nil, customFactError(def, fmt.Errorf("name is required"))
		case slices.Contains(builtin, def.Name):
			return nil, customFactError(def, fmt.Errorf("name shadows a built-in fact"))
		case seen[def.Name]:
			return nil, customFactError(def, fmt.Errorf("duplicate name"))
		}
		seen[def.Name] = true

		if _, err := syntax.ParseExpr(def.Name, def.Expr, 0); err != nil {
			return nil, customFactError(def, err)
		}

		out = append(out, rules.FactE(def.Name, customPredicate(def)))
	}

	return out, nil
}

func customFactError(def CustomFact, err error) error {
	return NewPermanentError(fmt.Sprintf("invalid custom fact %q", def.Name), err).
		WithCode(ErrCodeCustomFact)
}

func customPredicate(def CustomFact) rules.Predicate[*SiteContext] {
	return func(known rules.Known, sc *SiteContext) (bool, error) {
		env, err := customFactEnv(known, sc)
		if err != nil {
			return false, err
		}

		thread := &starlark.Thread{
			Name:  "fact:" + def.Name,
			Print: func(*starlark.Thread, string) {},
		}
		thread.SetMaxExecutionSteps(maxCustomFactSteps)

		v, err := starlark.Eval(thread, def.Name, def.Expr, env)
		if err != nil {
			return false, fmt.Errorf("evaluate %q: %w", def.Expr, err)
		}

		b, ok := v.(starlark.Bool)
		if !ok {
			return false, fmt.Errorf("expression %q returned %s, want bool", def.Expr, v.Type())
		}
		return bool(b), nil
	}
}

func customFactEnv(known rules.Known, sc *SiteContext) (starlark.StringDict, error) {
	snapshot := known.Snapshot()
	facts := make(map[string]interface{}, len(snapshot))
	for k, v := range snapshot {
		facts[k] = v
	}

	params := make(map[string]interface{}, len(sc.Parameters))
	for k, v := range sc.Parameters {
		params[k] = v
	}

	env := starlark.StringDict{
		"domain":  starlark.String(sc.Site.Domain),
		"command": starlark.String(string(sc.Command)),
	}

	for name, val := range map[string]interface{}{"facts": facts, "params": params} {
		sv, err := toStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", name, err)
		}
		env[name] = sv
	}

	env.Freeze()
	return env, nil
}

// toStarlarkValue converts a Go value to a Starlark value.
func toStarlarkValue(v interface{}) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []interface{}:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			starlarkItem, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = starlarkItem
		}
		return starlark.NewList(list), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for k, v := range val {
			starlarkVal, err := toStarlarkValue(v)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), starlarkVal); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
