package stemapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityIDKeepsKind(t *testing.T) {
	for _, in := range []string{`5`, `"5"`, `"slug-1"`, `12.0`} {
		var id EntityID
		require.NoError(t, json.Unmarshal([]byte(in), &id))
		out, err := json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, in, string(out))
	}

	var id EntityID
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &id))
}

func TestForumPreservesUnknownFields(t *testing.T) {
	in := `{"id":7,"title":"t","description":null,"image":"i","author":{"name":"Sok"},"tags":["a"]}`

	var forum Forum
	require.NoError(t, json.Unmarshal([]byte(in), &forum))
	assert.Equal(t, "", forum.Description)
	assert.Len(t, forum.Extra, 2)

	forum.Title = "changed"
	out, err := json.Marshal(forum)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"title":"changed","description":"","image":"i","author":{"name":"Sok"},"tags":["a"]}`, string(out))
}

func TestForumRejectsWrongTypes(t *testing.T) {
	var forum Forum
	assert.Error(t, json.Unmarshal([]byte(`{"id":1,"title":5}`), &forum))
	assert.Error(t, json.Unmarshal([]byte(`[]`), &forum))
}

func TestLessonToleratesMissingFields(t *testing.T) {
	var lesson Lesson
	require.NoError(t, json.Unmarshal([]byte(`{"lesson_title":"L","sections":[{"contents":[{"video_url":"https://youtu.be/x"}]},{}]}`), &lesson))
	require.Len(t, lesson.Sections, 2)
	assert.Equal(t, "https://youtu.be/x", lesson.Sections[0].Contents[0].VideoURL)
	assert.Nil(t, lesson.Sections[1].Contents)
}
