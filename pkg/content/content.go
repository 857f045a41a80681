package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Content is the channel-specific body of a piece of marketing content.
// The set of implementations is closed: *LinkedInPost, *NewsletterEmail, *BlogPost.
type Content interface {
	// Channel is the union tag.
	Channel() Channel
	// Render formats the content as plain text for judge and refine prompts.
	Render() string
	// Clone returns a deep copy.
	Clone() Content

	isContent()
}

// LinkedInPost is the linkedin channel shape. Hashtags carry no leading '#'.
type LinkedInPost struct {
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
}

// NewsletterEmail is the newsletter channel shape.
type NewsletterEmail struct {
	SubjectLine string `json:"subject_line"`
	Body        string `json:"body"`
}

// BlogPost is the blog channel shape.
type BlogPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (*LinkedInPost) Channel() Channel    { return ChannelLinkedIn }
func (*NewsletterEmail) Channel() Channel { return ChannelNewsletter }
func (*BlogPost) Channel() Channel        { return ChannelBlog }

func (*LinkedInPost) isContent()    {}
func (*NewsletterEmail) isContent() {}
func (*BlogPost) isContent()        {}

func (p *LinkedInPost) Render() string {
	tags := make([]string, len(p.Hashtags))
	for i, h := range p.Hashtags {
		tags[i] = "#" + strings.TrimPrefix(h, "#")
	}
	return p.Content + "\n\n" + strings.Join(tags, " ")
}

func (n *NewsletterEmail) Render() string {
	return "Subject: " + n.SubjectLine + "\n\n" + n.Body
}

func (b *BlogPost) Render() string {
	return "Title: " + b.Title + "\n\n" + b.Content
}

func (p *LinkedInPost) Clone() Content {
	c := *p
	c.Hashtags = append([]string(nil), p.Hashtags...)
	return &c
}

func (n *NewsletterEmail) Clone() Content {
	c := *n
	return &c
}

func (b *BlogPost) Clone() Content {
	c := *b
	return &c
}

// fieldKind is the JSON type a schema field must carry.
type fieldKind int

const (
	kindString fieldKind = iota
	kindStringArray
)

// schemas lists the exact field set of each channel shape.
var schemas = map[Channel]map[string]fieldKind{
	ChannelLinkedIn:   {"content": kindString, "hashtags": kindStringArray},
	ChannelNewsletter: {"subject_line": kindString, "body": kindString},
	ChannelBlog:       {"title": kindString, "content": kindString},
}

// SchemaFields returns the required field names of a channel shape, sorted.
func SchemaFields(ch Channel) []string {
	fields := make([]string, 0, len(schemas[ch]))
	for name := range schemas[ch] {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// IsListField reports whether a field of the channel shape is a string array.
func IsListField(ch Channel, field string) bool {
	return schemas[ch][field] == kindStringArray
}

// New returns an empty value of the channel's content shape.
func New(ch Channel) (Content, error) {
	switch ch {
	case ChannelLinkedIn:
		return &LinkedInPost{}, nil
	case ChannelNewsletter:
		return &NewsletterEmail{}, nil
	case ChannelBlog:
		return &BlogPost{}, nil
	}
	return nil, fmt.Errorf("unknown channel %q", ch)
}

// ParseContent strictly decodes raw JSON into the shape for ch.
// Unknown fields, missing required fields, nulls and wrong types are rejected.
func ParseContent(ch Channel, raw []byte) (Content, error) {
	schema, ok := schemas[ch]
	if !ok {
		return nil, &ValidationError{Channel: ch, Reason: "unknown channel"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &ValidationError{Channel: ch, Reason: "output is not a JSON object", Err: err}
	}
	if fields == nil {
		return nil, &ValidationError{Channel: ch, Reason: "output is null"}
	}

	var unexpected []string
	for name := range fields {
		if _, known := schema[name]; !known {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return nil, &ValidationError{Channel: ch, Reason: "unexpected field(s): " + strings.Join(unexpected, ", ")}
	}

	for _, name := range SchemaFields(ch) {
		value, present := fields[name]
		if !present {
			return nil, &ValidationError{Channel: ch, Field: name, Reason: "missing required field"}
		}
		if err := checkKind(value, schema[name]); err != nil {
			return nil, &ValidationError{Channel: ch, Field: name, Reason: err.Error()}
		}
	}

	c, err := New(ch)
	if err != nil {
		return nil, &ValidationError{Channel: ch, Reason: err.Error()}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return nil, &ValidationError{Channel: ch, Reason: "decode failed", Err: err}
	}
	return c, nil
}

func checkKind(value json.RawMessage, kind fieldKind) error {
	trimmed := bytes.TrimSpace(value)
	switch kind {
	case kindString:
		var s string
		if len(trimmed) == 0 || trimmed[0] != '"' || json.Unmarshal(trimmed, &s) != nil {
			return fmt.Errorf("expected string, got %s", jsonKind(trimmed))
		}
	case kindStringArray:
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return fmt.Errorf("expected array of strings, got %s", jsonKind(trimmed))
		}
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("expected array of strings: %v", err)
		}
		for i, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '"' {
				return fmt.Errorf("element %d: expected string, got %s", i, jsonKind(item))
			}
		}
	}
	return nil
}

func jsonKind(v []byte) string {
	if len(v) == 0 {
		return "nothing"
	}
	switch v[0] {
	case '"':
		return "string"
	case '[':
		return "array"
	case '{':
		return "object"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	}
	return "number"
}

// Sanitize keeps only the schema fields of ch and coerces scalar hashtags to
// strings. Missing fields stay missing so ParseContent can reject them.
func Sanitize(ch Channel, data map[string]interface{}) map[string]interface{} {
	schema := schemas[ch]
	cleaned := make(map[string]interface{}, len(schema))
	for name, kind := range schema {
		value, ok := data[name]
		if !ok {
			continue
		}
		if kind == kindStringArray {
			cleaned[name] = coerceStrings(value)
			continue
		}
		cleaned[name] = value
	}
	return cleaned
}

func coerceStrings(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strings.TrimSuffix(fmt.Sprintf("%g", v), ".0"))
		case json.Number:
			out = append(out, v.String())
		}
	}
	return out
}
