package stemapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EntityID is a backend identifier. The backend may send ids as JSON numbers
// or strings; an EntityID re-encodes in whichever form it was decoded from.
type EntityID struct {
	Value   string
	Numeric bool
}

func StringID(s string) EntityID {
	return EntityID{Value: s}
}

func (id EntityID) String() string {
	return id.Value
}

func (id EntityID) IsZero() bool {
	return id.Value == ""
}

func (id EntityID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if id.Numeric {
		return []byte(id.Value), nil
	}
	return json.Marshal(id.Value)
}

func (id *EntityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = EntityID{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EntityID{Value: s}
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id must be a string or number, got %s", data)
		}
		*id = EntityID{Value: n.String(), Numeric: true}
	}
	return nil
}

// Forum is the editable forum entity. Fields this program does not know about
// are kept in Extra so a full-replace update sends them back unchanged.
type Forum struct {
	ID          EntityID
	Title       string
	Description string
	Image       string

	Extra map[string]json.RawMessage
}

var forumKnownFields = []string{"id", "title", "description", "image"}

func (f *Forum) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var forum Forum
	if raw, ok := fields["id"]; ok {
		if err := forum.ID.UnmarshalJSON(raw); err != nil {
			return err
		}
	}
	targets := map[string]*string{
		"title":       &forum.Title,
		"description": &forum.Description,
		"image":       &forum.Image,
	}
	for name, target := range targets {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		var s *string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("forum field %s: %w", name, err)
		}
		if s != nil {
			*target = *s
		}
	}

	for _, name := range forumKnownFields {
		delete(fields, name)
	}
	if len(fields) > 0 {
		forum.Extra = fields
	}

	*f = forum
	return nil
}

func (f Forum) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Extra)+len(forumKnownFields))
	for name, raw := range f.Extra {
		out[name] = raw
	}
	if !f.ID.IsZero() {
		out["id"] = f.ID
	}
	out["title"] = f.Title
	out["description"] = f.Description
	out["image"] = f.Image
	return json.Marshal(out)
}

type UploadResult struct {
	URL string `json:"url"`
}

type Lesson struct {
	ID       EntityID  `json:"id"`
	Title    string    `json:"lesson_title"`
	Sections []Section `json:"sections"`
}

type Section struct {
	ID       EntityID  `json:"id"`
	Title    string    `json:"title"`
	Contents []Content `json:"contents"`
}

type Content struct {
	ID         EntityID `json:"id"`
	VideoURL   string   `json:"video_url,omitempty"`
	VideoTitle string   `json:"video_title,omitempty"`
}

// BlogPage is an article listing exactly as the backend returned it.
type BlogPage = json.RawMessage

type ArticlesQuery struct {
	PageSize int
	Page     int
}
