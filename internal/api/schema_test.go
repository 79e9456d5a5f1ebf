package api

import (
	"reflect"
	"strings"
	"testing"
)

// nodeTypes maps every object type of the schema to the struct that serves it
var nodeTypes = map[string]reflect.Type{
	"Group":        reflect.TypeOf(GroupNode{}),
	"GroupSummary": reflect.TypeOf(GroupSummary{}),
	"GroupOptions": reflect.TypeOf(OptionsNode{}),
	"User":         reflect.TypeOf(UserNode{}),
	"UserSummary":  reflect.TypeOf(UserSummary{}),
	"Invite":       reflect.TypeOf(InviteNode{}),
	"LoginCode":    reflect.TypeOf(LoginCodeNode{}),
	"Session":      reflect.TypeOf(SessionNode{}),
}

var scalarTypes = map[string]reflect.Type{
	"ID":      reflect.TypeOf(""),
	"String":  reflect.TypeOf(""),
	"Boolean": reflect.TypeOf(true),
	"Date":    reflect.TypeOf(Timestamp(0)),
}

// declaredTypes parses the object type definitions into field name -> base type
func declaredTypes(t *testing.T) map[string]map[string]string {
	t.Helper()
	types := make(map[string]map[string]string)
	for _, def := range typeDefinitions {
		if !strings.HasPrefix(def, "type ") {
			continue
		}
		lines := strings.Split(def, "\n")
		name := strings.Fields(lines[0])[1]
		fields := make(map[string]string)
		for _, line := range lines[1 : len(lines)-1] {
			field, typ, ok := strings.Cut(strings.TrimSpace(line), ": ")
			if !ok {
				t.Fatalf("type %s: cannot parse field line %q", name, line)
			}
			fields[field] = strings.Trim(typ, "[]!")
		}
		types[name] = fields
	}
	return types
}

func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t
}

func TestTypeDefinitionsMatchNodes(t *testing.T) {
	declared := declaredTypes(t)
	if len(declared) != len(nodeTypes) {
		t.Fatalf("schema declares %d object types, %d node structs are known", len(declared), len(nodeTypes))
	}

	for name, fields := range declared {
		goType, ok := nodeTypes[name]
		if !ok {
			t.Errorf("type %s has no node struct", name)
			continue
		}

		jsonFields := make(map[string]reflect.Type, goType.NumField())
		for i := 0; i < goType.NumField(); i++ {
			f := goType.Field(i)
			tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			jsonFields[tag] = baseType(f.Type)
		}

		for field, typ := range fields {
			got, ok := jsonFields[field]
			if !ok {
				t.Errorf("%s.%s is declared but %s has no such field", name, field, goType.Name())
				continue
			}
			want, ok := nodeTypes[typ]
			if !ok {
				want, ok = scalarTypes[typ]
			}
			if !ok {
				t.Errorf("%s.%s has undeclared type %s", name, field, typ)
				continue
			}
			if got != want {
				t.Errorf("%s.%s: schema type %s is served by %s, want %s", name, field, typ, got, want)
			}
		}
		for field := range jsonFields {
			if _, ok := fields[field]; !ok {
				t.Errorf("%s.%s is served but not declared", name, field)
			}
		}
	}
}

func TestContractReturnTypesAreDeclared(t *testing.T) {
	for _, op := range Contract {
		if _, ok := nodeTypes[op.Returns]; ok {
			continue
		}
		if _, ok := scalarTypes[op.Returns]; !ok {
			t.Errorf("%s returns undeclared type %s", op.Name, op.Returns)
		}
	}
}
