package protocol

import "testing"

func TestToolBuilderBuildsRequiredAndOptionalParams(t *testing.T) {
	tool := NewTool("gate/enable_toolset", "Activates a toolset by name.",
		String("name", "Toolset name to activate.", Required()),
	).Build()

	if tool.Name != "gate/enable_toolset" {
		t.Fatalf("unexpected name: %q", tool.Name)
	}
	props, ok := tool.InputSchema["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected properties map, got %+v", tool.InputSchema)
	}
	nameSchema, ok := props["name"].(map[string]interface{})
	if !ok || nameSchema["type"] != "string" {
		t.Fatalf("expected name to be a string property, got %+v", props["name"])
	}
	required, ok := tool.InputSchema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "name" {
		t.Fatalf("expected [name] required, got %+v", tool.InputSchema["required"])
	}
}

func TestToolBuilderOmitsRequiredWhenNoneMarked(t *testing.T) {
	tool := NewTool("discover_tools", "Scores the full catalogue against a free-text query.",
		String("query", "Free-text search query."),
		Number("limit", "Maximum number of results to return."),
	).Build()

	if _, ok := tool.InputSchema["required"]; ok {
		t.Fatalf("expected no required key, got %+v", tool.InputSchema["required"])
	}
	if tool.InputSchema["additionalProperties"] != false {
		t.Fatalf("expected additionalProperties false, got %+v", tool.InputSchema["additionalProperties"])
	}
}

func TestToolBuilderNestsObjectParameters(t *testing.T) {
	tool := NewTool("example", "An example tool with a nested object.",
		Object("filter", "Nested filter object.", []Parameter{
			String("taskType", "Task type to filter by."),
		}),
	).Build()

	props := tool.InputSchema["properties"].(map[string]interface{})
	filterSchema, ok := props["filter"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected filter to be an object schema, got %+v", props["filter"])
	}
	nestedProps, ok := filterSchema["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected nested properties, got %+v", filterSchema)
	}
	if _, ok := nestedProps["taskType"]; !ok {
		t.Fatalf("expected taskType nested property, got %+v", nestedProps)
	}
}

func TestToolBuilderStringArrayUsesItemsSchema(t *testing.T) {
	tool := NewTool("example", "An example tool with a string array.",
		StringArray("names", "List of names."),
	).Build()

	props := tool.InputSchema["properties"].(map[string]interface{})
	namesSchema := props["names"].(map[string]interface{})
	if namesSchema["type"] != "array" {
		t.Fatalf("expected array type, got %+v", namesSchema)
	}
	items, ok := namesSchema["items"].(map[string]interface{})
	if !ok || items["type"] != "string" {
		t.Fatalf("expected string items, got %+v", namesSchema["items"])
	}
}

func TestNormalizeDescriptionCollapsesWhitespace(t *testing.T) {
	tool := NewTool("example", "Line one.\n\tLine two.").Build()
	if tool.Description != "Line one. Line two." {
		t.Fatalf("unexpected description: %q", tool.Description)
	}
}

func TestToolBuilderCategoriesCarryThrough(t *testing.T) {
	tool := NewTool("example", "An example tool.").Categories("gate", "discovery").Build()
	if len(tool.Categories) != 2 || tool.Categories[0] != "gate" || tool.Categories[1] != "discovery" {
		t.Fatalf("unexpected categories: %+v", tool.Categories)
	}
}
