package provision

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	sqlassets "github.com/atlasdesk/atlasdesk/database"
)

// ColumnInfo is one column of a live table, as reported by
// information_schema.columns.
type ColumnInfo struct {
	Name string
	Type string
}

// ShapeTables lists the core tables whose column inventory is checked during
// diagnosis. A tenant schema failing any of these checks is flagged Corrupt.
var ShapeTables = []string{"companies", "customers", "tickets", "activity_logs"}

// ShapeValidator validates live table shapes and seed payloads against the
// JSON Schemas embedded with the DDL, so the expected structure ships inside
// the binary alongside the statements that create it.
type ShapeValidator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewShapeValidator returns a validator with an empty schema cache.
func NewShapeValidator() *ShapeValidator {
	return &ShapeValidator{cache: make(map[string]*jsonschema.Schema)}
}

// ValidateColumns checks a table's live column inventory against its
// embedded shape.
func (v *ShapeValidator) ValidateColumns(table string, columns []ColumnInfo) error {
	compiled, err := v.getOrCompile("shapes/" + table + ".columns.json")
	if err != nil {
		return err
	}

	cols := make([]any, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, map[string]any{"name": c.Name, "type": c.Type})
	}
	document := map[string]any{"table": table, "columns": cols}

	if err := compiled.Validate(document); err != nil {
		return fmt.Errorf("table %s shape: %w", table, err)
	}
	return nil
}

// ValidateRow checks a seed payload against the embedded row shape for the
// entity ("company", "customer", "ticket").
func (v *ShapeValidator) ValidateRow(entity string, row map[string]any) error {
	compiled, err := v.getOrCompile("shapes/rows/" + entity + ".json")
	if err != nil {
		return err
	}
	if err := compiled.Validate(row); err != nil {
		return fmt.Errorf("%s row: %w", entity, err)
	}
	return nil
}

func (v *ShapeValidator) getOrCompile(asset string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	compiled, ok := v.cache[asset]
	v.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// another goroutine may have populated the cache while we were waiting
	if compiled, ok = v.cache[asset]; ok {
		return compiled, nil
	}

	raw, err := sqlassets.ShapesFS.Open(asset)
	if err != nil {
		return nil, fmt.Errorf("open shape asset %s: %w", asset, err)
	}
	defer raw.Close()

	compiler := jsonschema.NewCompiler()
	key := "embedded://" + asset
	if err := compiler.AddResource(key, raw); err != nil {
		return nil, fmt.Errorf("register shape %s: %w", asset, err)
	}

	newCompiled, err := compiler.Compile(key)
	if err != nil {
		return nil, fmt.Errorf("compile shape %s: %w", asset, err)
	}

	v.cache[asset] = newCompiled
	return newCompiled, nil
}
