package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/core/window"
)

func memberIDs(s Session) []string {
	ids := make([]string, 0, s.Len())
	for _, m := range s.Members() {
		ids = append(ids, m.ResourceID)
	}
	return ids
}

func availability() model.Window {
	return model.Window{Start: window.Date(2024, 1, 1), End: window.Date(2024, 1, 30)}
}

func TestToggle_AddsAndRemoves(t *testing.T) {
	s := NewSession()

	s = s.Toggle("r1")
	s = s.Toggle("r2")
	assert.Equal(t, []string{"r1", "r2"}, memberIDs(s))

	s = s.Toggle("r1")
	assert.Equal(t, []string{"r2"}, memberIDs(s))
	assert.False(t, s.Contains("r1"))
}

func TestToggle_RemovalDropsOverride(t *testing.T) {
	s := NewSession().Toggle("r1")

	pref := &model.PreferredWindow{
		Window: model.Window{Start: window.Date(2024, 1, 10), End: window.Date(2024, 1, 15)},
		Notes:  "first fix only",
	}
	s, err := s.SetPreferredWindow("r1", availability(), pref)
	require.NoError(t, err)
	require.NotNil(t, s.Preferred("r1"))

	// Remove and re-add: the override must not survive
	s = s.Toggle("r1")
	s = s.Toggle("r1")
	assert.Nil(t, s.Preferred("r1"))
}

func TestToggle_ValueSemantics(t *testing.T) {
	orig := NewSession().Toggle("r1").Toggle("r2")

	_ = orig.Toggle("r3")
	_ = orig.Toggle("r1")
	_ = orig.Reorder(0, 1)

	assert.Equal(t, []string{"r1", "r2"}, memberIDs(orig))
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		expected []string
	}{
		{name: "first to last", from: 0, to: 2, expected: []string{"r2", "r3", "r1"}},
		{name: "last to first", from: 2, to: 0, expected: []string{"r3", "r1", "r2"}},
		{name: "middle down one", from: 1, to: 2, expected: []string{"r1", "r3", "r2"}},
		{name: "same position", from: 1, to: 1, expected: []string{"r1", "r2", "r3"}},
		{name: "from out of range", from: 5, to: 0, expected: []string{"r1", "r2", "r3"}},
		{name: "to out of range", from: 0, to: -1, expected: []string{"r1", "r2", "r3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession().Toggle("r1").Toggle("r2").Toggle("r3")
			assert.Equal(t, tt.expected, memberIDs(s.Reorder(tt.from, tt.to)))
		})
	}
}

func TestReorder_KeepsOverridesWithTheirMembers(t *testing.T) {
	s := NewSession().Toggle("r1").Toggle("r2")

	pref := &model.PreferredWindow{
		Window: model.Window{Start: window.Date(2024, 1, 5), End: window.Date(2024, 1, 8)},
	}
	s, err := s.SetPreferredWindow("r2", availability(), pref)
	require.NoError(t, err)

	s = s.Reorder(1, 0)
	assert.Equal(t, []string{"r2", "r1"}, memberIDs(s))
	assert.NotNil(t, s.Preferred("r2"))
	assert.Nil(t, s.Preferred("r1"))
}

func TestSetPreferredWindow_RejectsUnselectedResource(t *testing.T) {
	s := NewSession().Toggle("r1")

	_, err := s.SetPreferredWindow("r2", availability(), &model.PreferredWindow{
		Window: model.Window{Start: window.Date(2024, 1, 10), End: window.Date(2024, 1, 15)},
	})
	assert.Error(t, err)
}

func TestSetPreferredWindow_RejectsWindowOutsideAvailability(t *testing.T) {
	s := NewSession().Toggle("r1")

	_, err := s.SetPreferredWindow("r1", availability(), &model.PreferredWindow{
		Window: model.Window{Start: window.Date(2024, 3, 1), End: window.Date(2024, 3, 10)},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not overlap")
}

func TestSetPreferredWindow_NilClears(t *testing.T) {
	s := NewSession().Toggle("r1")

	s, err := s.SetPreferredWindow("r1", availability(), &model.PreferredWindow{
		Window: model.Window{Start: window.Date(2024, 1, 10), End: window.Date(2024, 1, 15)},
	})
	require.NoError(t, err)
	require.NotNil(t, s.Preferred("r1"))

	s, err = s.SetPreferredWindow("r1", availability(), nil)
	require.NoError(t, err)
	assert.Nil(t, s.Preferred("r1"))
}
