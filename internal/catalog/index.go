package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Catalog is an in-memory Resolver with precomputed indices.
type Catalog struct {
	modules       []Module
	moduleByID    map[uuid.UUID]*Module
	topicByID     map[uuid.UUID]*Topic
	lessonByID    map[uuid.UUID]Lesson
	topicLessons  map[uuid.UUID][]uuid.UUID
	moduleLessons map[uuid.UUID][]uuid.UUID
	moduleTopics  map[uuid.UUID][]uuid.UUID
}

var _ Resolver = (*Catalog)(nil)

// New validates modules and builds a Catalog over them. Parent ids on topics
// and lessons are filled in from the containment structure.
func New(modules []Module) (*Catalog, error) {
	if err := validateModules(modules); err != nil {
		return nil, err
	}
	return buildCatalog(modules), nil
}

// buildCatalog constructs all indices from a validated module list.
func buildCatalog(modules []Module) *Catalog {
	c := &Catalog{
		modules:       make([]Module, len(modules)),
		moduleByID:    make(map[uuid.UUID]*Module, len(modules)),
		topicByID:     make(map[uuid.UUID]*Topic),
		lessonByID:    make(map[uuid.UUID]Lesson),
		topicLessons:  make(map[uuid.UUID][]uuid.UUID),
		moduleLessons: make(map[uuid.UUID][]uuid.UUID),
		moduleTopics:  make(map[uuid.UUID][]uuid.UUID),
	}

	for i, m := range modules {
		m.Topics = slices.Clone(m.Topics)
		for j := range m.Topics {
			t := &m.Topics[j]
			t.ModuleID = m.ID
			t.Lessons = slices.Clone(t.Lessons)
			for k := range t.Lessons {
				t.Lessons[k].TopicID = t.ID
				t.Lessons[k].ModuleID = m.ID
			}
		}
		c.modules[i] = m
	}

	for i := range c.modules {
		m := &c.modules[i]
		c.moduleByID[m.ID] = m
		for j := range m.Topics {
			t := &m.Topics[j]
			c.topicByID[t.ID] = t
			c.moduleTopics[m.ID] = append(c.moduleTopics[m.ID], t.ID)
			for _, l := range t.Lessons {
				c.lessonByID[l.ID] = l
				if !l.Published {
					continue
				}
				c.topicLessons[t.ID] = append(c.topicLessons[t.ID], l.ID)
				c.moduleLessons[m.ID] = append(c.moduleLessons[m.ID], l.ID)
			}
		}
	}
	return c
}

// Modules returns every module in catalog order.
func (c *Catalog) Modules() []Module {
	return slices.Clone(c.modules)
}

func (c *Catalog) Lesson(_ context.Context, id uuid.UUID) (Lesson, error) {
	l, ok := c.lessonByID[id]
	if !ok {
		return Lesson{}, fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	return l, nil
}

func (c *Catalog) Module(_ context.Context, id uuid.UUID) (Module, error) {
	m, ok := c.moduleByID[id]
	if !ok {
		return Module{}, fmt.Errorf("module %s: %w", id, ErrNotFound)
	}
	return *m, nil
}

// Topic returns the topic with id. Returns ErrNotFound if absent.
func (c *Catalog) Topic(_ context.Context, id uuid.UUID) (Topic, error) {
	t, ok := c.topicByID[id]
	if !ok {
		return Topic{}, fmt.Errorf("topic %s: %w", id, ErrNotFound)
	}
	return *t, nil
}

func (c *Catalog) LessonCountForTopic(_ context.Context, topicID uuid.UUID) (int, error) {
	if _, ok := c.topicByID[topicID]; !ok {
		return 0, fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}
	return len(c.topicLessons[topicID]), nil
}

func (c *Catalog) LessonIDsForTopic(_ context.Context, topicID uuid.UUID) ([]uuid.UUID, error) {
	if _, ok := c.topicByID[topicID]; !ok {
		return nil, fmt.Errorf("topic %s: %w", topicID, ErrNotFound)
	}
	return slices.Clone(c.topicLessons[topicID]), nil
}

func (c *Catalog) LessonIDsForModule(_ context.Context, moduleID uuid.UUID) ([]uuid.UUID, error) {
	if _, ok := c.moduleByID[moduleID]; !ok {
		return nil, fmt.Errorf("module %s: %w", moduleID, ErrNotFound)
	}
	return slices.Clone(c.moduleLessons[moduleID]), nil
}

func (c *Catalog) TopicIDsForModule(_ context.Context, moduleID uuid.UUID) ([]uuid.UUID, error) {
	if _, ok := c.moduleByID[moduleID]; !ok {
		return nil, fmt.Errorf("module %s: %w", moduleID, ErrNotFound)
	}
	return slices.Clone(c.moduleTopics[moduleID]), nil
}
