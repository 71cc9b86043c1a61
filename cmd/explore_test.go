package cmd

import "testing"

func TestMenuPickByPosition(t *testing.T) {
	m := newMenu([]string{"Quit", "New search", "Agumon"}, actionNewSearch, actionQuit)

	tests := []struct {
		idx         int
		wantSpecies int
		wantAction  string
	}{
		{0, 0, ""},
		{1, 1, ""},
		{2, 2, ""},
		{3, -1, actionNewSearch},
		{4, -1, actionQuit},
	}
	for _, tt := range tests {
		species, action := m.pick(tt.idx)
		if species != tt.wantSpecies || action != tt.wantAction {
			t.Errorf("pick(%d) = (%d, %q), want (%d, %q)", tt.idx, species, action, tt.wantSpecies, tt.wantAction)
		}
	}
	if len(m.labels) != 5 {
		t.Errorf("labels = %v", m.labels)
	}
}

func TestMenuActionsOnly(t *testing.T) {
	m := newMenu(nil, actionRetry, actionNewSearch, actionQuit)
	if species, action := m.pick(0); species != -1 || action != actionRetry {
		t.Errorf("pick(0) = (%d, %q), want retry", species, action)
	}
}
