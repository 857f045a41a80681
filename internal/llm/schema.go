package llm

import (
	"encoding/json"
	"sort"

	"github.com/dyluth/quill/pkg/content"
)

// SchemaType is a JSON value type in a response schema.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the structured-output shape a backend is asked to enforce.
// Every property of an object is required.
type Schema struct {
	Name        string // Identifier sent to backends that want one, e.g. "blog_content"
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Items       *Schema
}

// Required lists the object's property names, sorted.
func (s *Schema) Required() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON renders the schema as JSON Schema with closed objects, the
// form strict structured output requires.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.jsonSchema())
}

func (s *Schema) jsonSchema() map[string]interface{} {
	out := map[string]interface{}{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	switch s.Type {
	case TypeObject:
		props := make(map[string]interface{}, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.jsonSchema()
		}
		out["properties"] = props
		out["required"] = s.Required()
		out["additionalProperties"] = false
	case TypeArray:
		if s.Items != nil {
			out["items"] = s.Items.jsonSchema()
		}
	}
	return out
}

var fieldDescriptions = map[content.Channel]map[string]string{
	content.ChannelLinkedIn: {
		"content":  "The full LinkedIn post text with line breaks",
		"hashtags": "3-5 hashtags without the # symbol",
	},
	content.ChannelNewsletter: {
		"subject_line": "Compelling email subject line (50-80 characters)",
		"body":         "The full email body text with line breaks",
	},
	content.ChannelBlog: {
		"title":   "SEO-friendly blog post title (50-80 characters)",
		"content": "The full blog post content with line breaks and markdown formatting",
	},
}

func stringList(description string) *Schema {
	return &Schema{Type: TypeArray, Description: description, Items: &Schema{Type: TypeString}}
}

// ContentSchema is the response shape of generate and refine calls for ch,
// built from the same field table the response parser checks against.
func ContentSchema(ch content.Channel) *Schema {
	s := &Schema{
		Name:       string(ch) + "_content",
		Type:       TypeObject,
		Properties: make(map[string]*Schema),
	}
	for _, field := range content.SchemaFields(ch) {
		desc := fieldDescriptions[ch][field]
		if content.IsListField(ch, field) {
			s.Properties[field] = stringList(desc)
		} else {
			s.Properties[field] = &Schema{Type: TypeString, Description: desc}
		}
	}
	return s
}

// VerdictSchema is the response shape of judge calls. Optional criteria
// scores are left out so strict backends accept it.
func VerdictSchema() *Schema {
	return &Schema{
		Name: "judge_verdict",
		Type: TypeObject,
		Properties: map[string]*Schema{
			"score":          {Type: TypeInteger, Description: "Overall quality score from 0-10"},
			"passes_quality": {Type: TypeBoolean, Description: "Whether the content passes the quality threshold"},
			"feedback": {
				Type: TypeObject,
				Properties: map[string]*Schema{
					"strengths":   stringList(""),
					"weaknesses":  stringList(""),
					"suggestions": stringList(""),
				},
			},
			"red_flags": stringList("Critical issues that must be fixed"),
		},
	}
}
