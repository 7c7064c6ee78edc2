package topic

import "testing"

func TestTopic_Segments(t *testing.T) {
	if got := Topic("").Segments(); got != nil {
		t.Errorf("Segments() = %v, want nil", got)
	}
	got := Topic("workspace.save.failed").Segments()
	if len(got) != 3 || got[0] != "workspace" || got[2] != "failed" {
		t.Errorf("Segments() = %v", got)
	}
}

func TestTopic_HasPrefix(t *testing.T) {
	tests := []struct {
		topic  Topic
		prefix Topic
		want   bool
	}{
		{"workspace.changed", "workspace", true},
		{"workspace.changed", "", true},
		{"workspace.changed", "workspace.changed", true},
		{"workspaces.changed", "workspace", false},
		{"workspace", "workspace.changed", false},
	}

	for _, tt := range tests {
		if got := tt.topic.HasPrefix(tt.prefix); got != tt.want {
			t.Errorf("%q.HasPrefix(%q) = %v, want %v", tt.topic, tt.prefix, got, tt.want)
		}
	}
}

func TestTopic_IsValid(t *testing.T) {
	tests := []struct {
		topic Topic
		want  bool
	}{
		{"workspace.changed", true},
		{"a", true},
		{"", false},
		{".a", false},
		{"a.", false},
		{"a..b", false},
	}

	for _, tt := range tests {
		if got := tt.topic.IsValid(); got != tt.want {
			t.Errorf("%q.IsValid() = %v, want %v", tt.topic, got, tt.want)
		}
	}
	if !Topic("workspace.*").IsWildcard() || Topic("workspace.changed").IsWildcard() {
		t.Error("IsWildcard() mismatch")
	}
}

func TestTopic_Matches(t *testing.T) {
	tests := []struct {
		topic   Topic
		pattern Topic
		want    bool
	}{
		{"workspace.changed", "workspace.changed", true},
		{"workspace.changed", "workspace.saved", false},
		{"workspace.changed", "workspace.*", true},
		{"workspace.save.failed", "workspace.*", false},
		{"workspace.save.failed", "workspace.**", true},
		{"workspace", "workspace.**", true},
		{"workspace.save.failed", "*.save.failed", true},
		{"workspace.save.failed", "**.failed", true},
		{"workspace.save.failed", "**", true},
		{"workspace.save.failed", "workspace.*.failed", true},
		{"workspace.changed", "workspace.changed.more", false},
		{"pipeline.stage.completed", "workspace.**", false},
	}

	for _, tt := range tests {
		if got := tt.topic.Matches(tt.pattern); got != tt.want {
			t.Errorf("%q.Matches(%q) = %v, want %v", tt.topic, tt.pattern, got, tt.want)
		}
	}
}
