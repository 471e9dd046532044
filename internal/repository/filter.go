package repository

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"cmsbackend/internal/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Filter is a document-style query keyed by JSON field names. Values may be
// scalars (equality), slices (IN), nil (IS NULL) or operator maps such as
// {"$in": [...]} and {"$gte": 3}.
type Filter map[string]interface{}

// protectedFields are never writable through patches
var protectedFields = map[string]bool{
	"id":        true,
	"createdAt": true,
	"updatedAt": true,
	"addedBy":   true,
}

// fieldIndex resolves JSON and column names of a model to its schema fields
type fieldIndex struct {
	schema *schema.Schema
	byName map[string]*schema.Field
}

func newFieldIndex(db *gorm.DB, model interface{}) (*fieldIndex, error) {
	s, err := schema.Parse(model, &sync.Map{}, db.NamingStrategy)
	if err != nil {
		return nil, err
	}
	idx := &fieldIndex{schema: s, byName: make(map[string]*schema.Field)}
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		idx.byName[f.DBName] = f
		if name := jsonName(f); name != "" {
			idx.byName[name] = f
		}
	}
	idx.byName["_id"] = s.PrioritizedPrimaryField
	return idx, nil
}

func jsonName(f *schema.Field) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

func (i *fieldIndex) lookup(name string) (*schema.Field, bool) {
	f, ok := i.byName[name]
	return f, ok
}

// jsonOf returns the external name of a field
func (i *fieldIndex) jsonOf(f *schema.Field) string {
	if name := jsonName(f); name != "" {
		return name
	}
	return f.DBName
}

// where turns a filter into gorm clause expressions, keys sorted so the
// generated SQL is stable
func (i *fieldIndex) where(filter Filter) ([]clause.Expression, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exprs := make([]clause.Expression, 0, len(keys))
	for _, key := range keys {
		f, ok := i.lookup(key)
		if !ok {
			return nil, apperr.Validation("unknown filter field %q", key)
		}
		col := clause.Column{Table: clause.CurrentTable, Name: f.DBName}
		built, err := condition(col, key, filter[key])
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, built...)
	}
	return exprs, nil
}

func condition(col clause.Column, key string, value interface{}) ([]clause.Expression, error) {
	if ops, ok := value.(map[string]interface{}); ok {
		exprs := make([]clause.Expression, 0, len(ops))
		opKeys := make([]string, 0, len(ops))
		for op := range ops {
			opKeys = append(opKeys, op)
		}
		sort.Strings(opKeys)
		for _, op := range opKeys {
			v := ops[op]
			switch op {
			case "$eq":
				exprs = append(exprs, clause.Eq{Column: col, Value: v})
			case "$ne":
				exprs = append(exprs, clause.Neq{Column: col, Value: v})
			case "$gt":
				exprs = append(exprs, clause.Gt{Column: col, Value: v})
			case "$gte":
				exprs = append(exprs, clause.Gte{Column: col, Value: v})
			case "$lt":
				exprs = append(exprs, clause.Lt{Column: col, Value: v})
			case "$lte":
				exprs = append(exprs, clause.Lte{Column: col, Value: v})
			case "$in":
				values, ok := toSlice(v)
				if !ok {
					return nil, apperr.Validation("%s.$in expects an array", key)
				}
				exprs = append(exprs, clause.IN{Column: col, Values: values})
			case "$nin":
				values, ok := toSlice(v)
				if !ok {
					return nil, apperr.Validation("%s.$nin expects an array", key)
				}
				exprs = append(exprs, clause.Not(clause.IN{Column: col, Values: values}))
			default:
				return nil, apperr.Validation("unsupported operator %q on %q", op, key)
			}
		}
		return exprs, nil
	}

	if values, ok := toSlice(value); ok {
		return []clause.Expression{clause.IN{Column: col, Values: values}}, nil
	}
	return []clause.Expression{clause.Eq{Column: col, Value: value}}, nil
}

func toSlice(value interface{}) ([]interface{}, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for n := 0; n < rv.Len(); n++ {
		out[n] = rv.Index(n).Interface()
	}
	return out, true
}

// columns translates a patch into a column assignment map for bulk updates
func (i *fieldIndex) columns(patch map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(patch))
	for key, value := range patch {
		f, ok := i.lookup(key)
		if !ok {
			return nil, apperr.Validation("unknown field %q", key)
		}
		if protectedFields[i.jsonOf(f)] {
			continue
		}
		if f.Serializer != nil {
			return nil, apperr.Validation("field %q cannot be bulk updated", key)
		}
		out[f.DBName] = value
	}
	return out, nil
}

// sanitizePatch validates patch keys and drops protected ones
func (i *fieldIndex) sanitizePatch(patch map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(patch))
	for key, value := range patch {
		f, ok := i.lookup(key)
		if !ok {
			return nil, apperr.Validation("unknown field %q", key)
		}
		name := i.jsonOf(f)
		if protectedFields[name] {
			continue
		}
		out[name] = value
	}
	return out, nil
}

// order parses "field" or "-field" (descending) into an order clause
func (i *fieldIndex) order(sortBy string) (clause.OrderByColumn, error) {
	desc := strings.HasPrefix(sortBy, "-")
	name := strings.TrimPrefix(sortBy, "-")
	parts := strings.Fields(name)
	if len(parts) == 2 {
		name = parts[0]
		desc = strings.EqualFold(parts[1], "desc")
	}
	f, ok := i.lookup(name)
	if !ok {
		return clause.OrderByColumn{}, fmt.Errorf("%w: unknown sort field %q", apperr.ErrValidation, name)
	}
	return clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: f.DBName}, Desc: desc}, nil
}
