package models

import (
	"fmt"
	"time"
)

// Field names an updatable attribute of a Todo.
type Field string

const (
	FieldTitle     Field = "title"
	FieldCompleted Field = "completed"
	FieldDueDate   Field = "dueDate"
	FieldAged      Field = "aged"
)

// ClientFields is the allow-list of fields a client may change through update.
var ClientFields = []Field{FieldTitle, FieldCompleted, FieldDueDate}

// allFields fixes the order in which patches are rendered into store updates.
var allFields = []Field{FieldTitle, FieldCompleted, FieldDueDate, FieldAged}

// Patch is a typed partial update. Values are string for title, bool for
// completed and aged, *Date (nil clears) for dueDate.
type Patch struct {
	values map[Field]any
}

func NewPatch() Patch {
	return Patch{values: make(map[Field]any)}
}

// Set records a new value for f after checking its type.
func (p *Patch) Set(f Field, v any) error {
	if p.values == nil {
		p.values = make(map[Field]any)
	}
	switch f {
	case FieldTitle:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%s must be a string", f)
		}
	case FieldCompleted, FieldAged:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%s must be a boolean", f)
		}
	case FieldDueDate:
		if _, ok := v.(*Date); !ok {
			return fmt.Errorf("%s must be a date or null", f)
		}
	default:
		return fmt.Errorf("unknown field %q", f)
	}
	p.values[f] = v
	return nil
}

func (p Patch) Get(f Field) (any, bool) {
	v, ok := p.values[f]
	return v, ok
}

func (p Patch) Len() int { return len(p.values) }

// Fields returns the set fields in a stable order.
func (p Patch) Fields() []Field {
	out := make([]Field, 0, len(p.values))
	for _, f := range allFields {
		if _, ok := p.values[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Apply merges the patch into t and stamps updatedAt, never moving it backwards.
func (p Patch) Apply(t *Todo, updatedAt time.Time) {
	for f, v := range p.values {
		switch f {
		case FieldTitle:
			t.Title = v.(string)
		case FieldCompleted:
			t.Completed = v.(bool)
		case FieldAged:
			t.Aged = v.(bool)
		case FieldDueDate:
			t.DueDate = v.(*Date)
		}
	}
	if updatedAt = updatedAt.UTC(); updatedAt.After(t.UpdatedAt) {
		t.UpdatedAt = updatedAt
	}
}
