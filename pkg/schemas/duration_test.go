package schemas

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "go_duration", in: "1h30m", want: 90 * time.Minute},
		{name: "iso8601", in: "PT1H30M", want: 90 * time.Minute},
		{name: "iso8601_seconds", in: "PT45S", want: 45 * time.Second},
		{name: "iso8601_garbage", in: "PT1X", wantErr: true},
		{name: "invalid", in: "nope", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDuration(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil (duration=%v)", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("duration mismatch: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestDurationJSON(t *testing.T) {
	var spec struct {
		Timeout Duration `json:"timeout"`
		Budget  Duration `json:"budget"`
	}
	if err := json.Unmarshal([]byte(`{"timeout":"2s","budget":1.5}`), &spec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if spec.Timeout.Duration != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", spec.Timeout.Duration)
	}
	if spec.Budget.Duration != 1500*time.Millisecond {
		t.Errorf("budget = %v, want 1.5s", spec.Budget.Duration)
	}

	out, err := json.Marshal(Duration{Duration: 90 * time.Second})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `"1m30s"` {
		t.Errorf("marshal = %s, want \"1m30s\"", out)
	}
}

func TestPatternSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    PatternSpec
		wantErr bool
	}{
		{
			name: "inline",
			spec: PatternSpec{Name: "tri", Size: 3, Adjacency: "021201110"},
		},
		{
			name:    "missing pattern",
			spec:    PatternSpec{Name: "tri", Size: 3},
			wantErr: true,
		},
		{
			name:    "both inline and source",
			spec:    PatternSpec{Name: "tri", Size: 3, Adjacency: "021201110", Source: "file:///tmp/tri.txt"},
			wantErr: true,
		},
		{
			name: "unknown strategy",
			spec: PatternSpec{
				Name: "tri", Size: 3, Adjacency: "021201110",
				Options: &CompileOptions{Strategy: "fastest"},
			},
			wantErr: true,
		},
		{
			name: "unknown artifact",
			spec: PatternSpec{
				Name: "tri", Size: 3, Adjacency: "021201110",
				Outputs: []Output{{Kind: "binary", Destination: "file:///tmp/x"}},
			},
			wantErr: true,
		},
		{
			name: "duplicate destination",
			spec: PatternSpec{
				Name: "tri", Size: 3, Adjacency: "021201110",
				Outputs: []Output{
					{Kind: ArtifactCode, Destination: "file:///tmp/x"},
					{Kind: ArtifactPlan, Destination: "file:///tmp/x"},
				},
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
