package tool

import (
	"github.com/p-blackswan/questplan/internal/roadmap"
)

type props map[string]any

func object(p props, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": p}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func nullableInteger(desc string) map[string]any {
	return map[string]any{"type": []string{"integer", "null"}, "description": desc}
}

func number(desc string, min, max float64) map[string]any {
	return map[string]any{"type": "number", "description": desc, "minimum": min, "maximum": max}
}

func boundedInteger(desc string, min, max int) map[string]any {
	return map[string]any{"type": "integer", "description": desc, "minimum": min, "maximum": max}
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func stringArray(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]string{"type": "string"}, "description": desc}
}

func enum[T ~string](desc string, values []T) map[string]any {
	vs := make([]string, len(values))
	for i, v := range values {
		vs[i] = string(v)
	}
	return map[string]any{"type": "string", "enum": vs, "description": desc}
}

var (
	projectIDProp  = integer("The project ID")
	taskIDProp     = integer("The task ID")
	phaseIDProp    = integer("The phase ID")
	statusProp     = enum("Task status", roadmap.Statuses)
	difficultyProp = enum("Task difficulty level", roadmap.Difficulties)
)
