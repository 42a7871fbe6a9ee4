package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `{
  "modules": [
    {
      "id": "0b9f6c1e-4a7e-4b61-9a38-6c1f8f2f0a01",
      "title": "Intro to Go",
      "topics": [
        {
          "id": "1c1b0f6a-2b7d-4d8e-9a1a-1f2e3d4c5b01",
          "title": "Basics",
          "lessons": [
            {"id": "2d2c1e7b-3c8e-4e9f-8b2b-2a3f4e5d6c01", "title": "Hello", "type": "text"},
            {"id": "2d2c1e7b-3c8e-4e9f-8b2b-2a3f4e5d6c02", "title": "Tour", "type": "video"},
            {"id": "2d2c1e7b-3c8e-4e9f-8b2b-2a3f4e5d6c03", "title": "Draft", "type": "pdf", "published": false}
          ]
        },
        {
          "id": "1c1b0f6a-2b7d-4d8e-9a1a-1f2e3d4c5b02",
          "title": "Check",
          "lessons": [
            {"id": "2d2c1e7b-3c8e-4e9f-8b2b-2a3f4e5d6c04", "title": "Quiz", "type": "quiz"}
          ]
        },
        {
          "id": "1c1b0f6a-2b7d-4d8e-9a1a-1f2e3d4c5b03",
          "title": "Coming soon",
          "lessons": []
        }
      ]
    }
  ]
}`

var (
	sampleModule = uuid.MustParse("0b9f6c1e-4a7e-4b61-9a38-6c1f8f2f0a01")
	basicsTopic  = uuid.MustParse("1c1b0f6a-2b7d-4d8e-9a1a-1f2e3d4c5b01")
	emptyTopic   = uuid.MustParse("1c1b0f6a-2b7d-4d8e-9a1a-1f2e3d4c5b03")
	draftLesson  = uuid.MustParse("2d2c1e7b-3c8e-4e9f-8b2b-2a3f4e5d6c03")
	quizLesson   = uuid.MustParse("2d2c1e7b-3c8e-4e9f-8b2b-2a3f4e5d6c04")
)

func TestParseSampleCatalog(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	ctx := context.Background()

	m, err := c.Module(ctx, sampleModule)
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", m.Title)
	assert.Len(t, m.Topics, 3)

	n, err := c.LessonCountForTopic(ctx, basicsTopic)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "unpublished lessons are not counted")

	ids, err := c.LessonIDsForModule(ctx, sampleModule)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.NotContains(t, ids, draftLesson)

	topics, err := c.TopicIDsForModule(ctx, sampleModule)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{basicsTopic, uuid.MustParse("1c1b0f6a-2b7d-4d8e-9a1a-1f2e3d4c5b02"), emptyTopic}, topics)

	n, err = c.LessonCountForTopic(ctx, emptyTopic)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLessonCarriesParents(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	l, err := c.Lesson(context.Background(), draftLesson)
	require.NoError(t, err)
	assert.False(t, l.Published)
	assert.Equal(t, basicsTopic, l.TopicID)
	assert.Equal(t, sampleModule, l.ModuleID)

	q, err := c.Lesson(context.Background(), quizLesson)
	require.NoError(t, err)
	assert.True(t, q.Published)
	assert.True(t, q.Type.Scored())
}

func TestLookupsReturnNotFound(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	ctx := context.Background()
	missing := uuid.New()

	_, err = c.Lesson(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Module(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Topic(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.LessonCountForTopic(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.LessonIDsForTopic(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.LessonIDsForModule(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.TopicIDsForModule(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	ctx := context.Background()

	ids, err := c.LessonIDsForTopic(ctx, basicsTopic)
	require.NoError(t, err)
	ids[0] = uuid.Nil

	again, err := c.LessonIDsForTopic(ctx, basicsTopic)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, again[0])
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"not json", `{`, "invalid JSON"},
		{"missing modules", `{}`, "schema validation"},
		{"bad uuid", `{"modules":[{"id":"nope","title":"x","topics":[]}]}`, "schema validation"},
		{"unknown lesson type", `{"modules":[{"id":"0b9f6c1e-4a7e-4b61-9a38-6c1f8f2f0a01","title":"x","topics":[
			{"id":"1c1b0f6a-2b7d-4d8e-9a1a-1f2e3d4c5b01","title":"t","lessons":[
				{"id":"2d2c1e7b-3c8e-4e9f-8b2b-2a3f4e5d6c01","title":"l","type":"podcast"}]}]}]}`, "schema validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateModules_DetectsDuplicateID(t *testing.T) {
	id := uuid.New()
	modules := []Module{{
		ID:    uuid.New(),
		Title: "m",
		Topics: []Topic{{
			ID:    id,
			Title: "t",
			Lessons: []Lesson{
				{ID: id, Title: "l", Type: LessonText, Published: true},
			},
		}},
	}}
	_, err := New(modules)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "duplicate"), "got: %v", err)
}

func TestValidateModules_DetectsUnknownType(t *testing.T) {
	modules := []Module{{
		ID:    uuid.New(),
		Title: "m",
		Topics: []Topic{{
			ID:      uuid.New(),
			Title:   "t",
			Lessons: []Lesson{{ID: uuid.New(), Title: "l", Type: "hologram"}},
		}},
	}}
	_, err := New(modules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hologram")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Modules(), 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBundledCatalogLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "catalog.json"))
	require.NoError(t, err)
	require.Len(t, c.Modules(), 1)

	ids, err := c.LessonIDsForModule(context.Background(), c.Modules()[0].ID)
	require.NoError(t, err)
	assert.Len(t, ids, 7, "the unpublished live session is not counted")
}
