package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       TaskInput
		mode     NormalizeMode
		wantErr  string
		title    string
		desc     string
		priority TaskPriority
		status   TaskStatus
		due      string
	}{
		{
			name:     "trims and keeps valid values",
			in:       TaskInput{Title: "  Buy milk ", Description: "\tfresh\n", Priority: "high", DueDate: "2025-05-10"},
			title:    "Buy milk",
			desc:     "fresh",
			priority: PriorityHigh,
			status:   StatusPending,
			due:      "2025-05-10",
		},
		{
			name:     "unknown priority becomes low",
			in:       TaskInput{Title: "x", Priority: "urgent"},
			title:    "x",
			priority: PriorityLow,
			status:   StatusPending,
		},
		{
			name:     "create ignores status",
			in:       TaskInput{Title: "x", Status: "completed"},
			title:    "x",
			priority: PriorityLow,
			status:   StatusPending,
		},
		{
			name:     "update keeps completed",
			in:       TaskInput{Title: "x", Status: "completed", Priority: "Medium"},
			mode:     ForUpdate,
			title:    "x",
			priority: PriorityMedium,
			status:   StatusCompleted,
		},
		{
			name:     "update coerces unknown status",
			in:       TaskInput{Title: "x", Status: "archived"},
			mode:     ForUpdate,
			title:    "x",
			priority: PriorityLow,
			status:   StatusPending,
		},
		{
			name:     "rfc3339 due date keeps the date",
			in:       TaskInput{Title: "x", DueDate: "2025-05-10T23:00:00Z"},
			title:    "x",
			priority: PriorityLow,
			status:   StatusPending,
			due:      "2025-05-10",
		},
		{name: "whitespace title rejected", in: TaskInput{Title: "   "}, wantErr: "title"},
		{name: "malformed date rejected", in: TaskInput{Title: "x", DueDate: "10/05/2025"}, wantErr: "dueDate"},
		{
			name:    "description too long",
			in:      TaskInput{Title: "x", Description: strings.Repeat("я", DescriptionMaxLen+1)},
			wantErr: "description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in, tt.mode)
			if tt.wantErr != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantErr, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.title, got.Title)
			assert.Equal(t, tt.desc, got.Description)
			assert.Equal(t, tt.priority, got.Priority)
			assert.Equal(t, tt.status, got.Status)
			if tt.due == "" {
				assert.Nil(t, got.DueDate)
			} else {
				require.NotNil(t, got.DueDate)
				assert.Equal(t, tt.due, got.DueDate.String())
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	first, err := Normalize(TaskInput{
		Title:       "  Call mom  ",
		Description: " weekly ",
		DueDate:     "2025-06-01",
		Priority:    "bogus",
		Status:      "completed",
	}, ForUpdate)
	require.NoError(t, err)

	second, err := Normalize(InputFromTask(first), ForUpdate)
	require.NoError(t, err)
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Description, second.Description)
	assert.Equal(t, first.Priority, second.Priority)
	assert.Equal(t, first.Status, second.Status)
	assert.True(t, first.DueDate.Equal(*second.DueDate))
}

func TestDate_JSON(t *testing.T) {
	d := NewDate(2025, 5, 9)
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2025-05-09"`, string(b))

	var back Date
	require.NoError(t, back.UnmarshalJSON(b))
	assert.True(t, d.Equal(back))
}

func TestChangeEvent_TaskID(t *testing.T) {
	ins := ChangeEvent{Type: ChangeInsert, Record: &Task{ID: "a", UserID: "u"}}
	del := ChangeEvent{Type: ChangeDelete, OldRecord: &Task{ID: "b"}}
	assert.Equal(t, "a", ins.TaskID())
	assert.Equal(t, "u", ins.OwnerID())
	assert.Equal(t, "b", del.TaskID())
	assert.Equal(t, "", ChangeEvent{Type: ChangeUpdate}.TaskID())
}
