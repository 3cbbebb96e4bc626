package schema

import (
	"context"
	"testing"

	"github.com/conduit-lang/lifecycle/internal/hooks"
)

func articleSchema() *ResourceSchema {
	return NewResourceSchema("Article").
		AddField(&Field{Name: "id", Type: TypeUUID, PrimaryKey: true}).
		AddField(&Field{Name: "title", Type: TypeString}).
		AddField(&Field{Name: "status", Type: TypeString}).
		AddRelationship(&Relationship{
			FieldName:      "author",
			TargetResource: "User",
			Type:           RelationshipBelongsTo,
			ForeignKey:     "author_id",
		})
}

func userSchema() *ResourceSchema {
	return NewResourceSchema("User").
		AddField(&Field{Name: "id", Type: TypeUUID, PrimaryKey: true}).
		AddField(&Field{Name: "name", Type: TypeString})
}

func buildTestTable(t *testing.T, decls ...hooks.Descriptor) *hooks.TriggerTable {
	t.Helper()
	methods := map[string]*hooks.Method{}
	for _, d := range decls {
		methods[d.MethodName] = &hooks.Method{
			Name: d.MethodName,
			Fn:   func(context.Context, hooks.Instance) error { return nil },
		}
	}
	table, err := hooks.BuildTable(methods, decls)
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	return table
}

func TestCheckHooks_ValidPaths(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(userSchema()); err != nil {
		t.Fatal(err)
	}
	sch := articleSchema()

	table := buildTestTable(t,
		hooks.On("on_status", hooks.BeforeSave, hooks.When("status")),
		hooks.On("on_author", hooks.AfterSave, hooks.If(hooks.WhenFieldValueIs("author.name", "Ada"))),
	)

	if diags := CheckHooks(reg, sch, table); len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestCheckHooks_BadWatchedPath(t *testing.T) {
	reg := NewRegistry()
	sch := articleSchema()

	table := buildTestTable(t,
		hooks.On("on_missing", hooks.BeforeSave, hooks.When("nonexistent")),
	)

	diags := CheckHooks(reg, sch, table)
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}
	if diags[0].ID != CodeBadWatchedPath {
		t.Errorf("diagnostic ID = %s, want %s", diags[0].ID, CodeBadWatchedPath)
	}
	if diags[0].Path != "nonexistent" {
		t.Errorf("diagnostic path = %s", diags[0].Path)
	}
}

func TestCheckHooks_BadConditionPath(t *testing.T) {
	reg := NewRegistry()
	sch := articleSchema()

	table := buildTestTable(t,
		hooks.On("gated", hooks.AfterSave,
			hooks.If(hooks.WhenFieldHasChanged("status").And(hooks.WhenFieldValueIs("bogus", 1)))),
	)

	diags := CheckHooks(reg, sch, table)
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %v", len(diags), diags)
	}
	if diags[0].ID != CodeBadConditionPath {
		t.Errorf("diagnostic ID = %s, want %s", diags[0].ID, CodeBadConditionPath)
	}
}

func TestCheckHooks_RelationTraversal(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(userSchema()); err != nil {
		t.Fatal(err)
	}
	sch := articleSchema()

	// Valid field on the related schema.
	table := buildTestTable(t,
		hooks.On("ok", hooks.BeforeSave, hooks.When("author.name")),
	)
	if diags := CheckHooks(reg, sch, table); len(diags) != 0 {
		t.Errorf("author.name should resolve, got %v", diags)
	}

	// Invalid field on the related schema.
	table = buildTestTable(t,
		hooks.On("bad", hooks.BeforeSave, hooks.When("author.salary")),
	)
	if diags := CheckHooks(reg, sch, table); len(diags) != 1 {
		t.Errorf("author.salary should not resolve, got %v", diags)
	}
}

func TestCheckHooks_UnknownRelationTargetAccepted(t *testing.T) {
	// The registry does not know the User schema, so traversal past the
	// relation cannot be validated and is accepted.
	reg := NewRegistry()
	sch := articleSchema()

	table := buildTestTable(t,
		hooks.On("maybe", hooks.BeforeSave, hooks.When("author.anything")),
	)
	if diags := CheckHooks(reg, sch, table); len(diags) != 0 {
		t.Errorf("unknown relation target should be accepted, got %v", diags)
	}
}

func TestCheckHooks_RelationAsTerminalSegment(t *testing.T) {
	reg := NewRegistry()
	sch := articleSchema()

	table := buildTestTable(t,
		hooks.On("rel", hooks.BeforeSave, hooks.When("author")),
	)
	if diags := CheckHooks(reg, sch, table); len(diags) != 0 {
		t.Errorf("bare relation path should resolve, got %v", diags)
	}
}

func TestCheckHooks_FieldWithTrailingSegments(t *testing.T) {
	reg := NewRegistry()
	sch := articleSchema()

	// title is a plain field; title.length cannot resolve.
	table := buildTestTable(t,
		hooks.On("deep", hooks.BeforeSave, hooks.When("title.length")),
	)
	if diags := CheckHooks(reg, sch, table); len(diags) != 1 {
		t.Errorf("field with trailing segments should not resolve, got %v", diags)
	}
}
