package scoring

import "testing"

func TestUpdateScore(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		accepted bool
		want     float64
	}{
		{"accept raises", 0.5, true, 0.52},
		{"reject degrades 2x", 0.5, false, 0.46},
		{"clamped at 1", 0.999, true, 1.0},
		{"clamped at 0", 0.01, false, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UpdateScore(tt.current, tt.accepted)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("UpdateScore(%v, %v) = %v, want %v", tt.current, tt.accepted, got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	rec := Record{Topic: "cancel", Score: 0.5}

	rec = Apply(rec, true)
	if rec.TotalReviews != 1 || rec.AcceptedDrafts != 1 {
		t.Errorf("unexpected counters after accept: %+v", rec)
	}

	rec = Apply(rec, false)
	if rec.TotalReviews != 2 || rec.AcceptedDrafts != 1 {
		t.Errorf("unexpected counters after reject: %+v", rec)
	}
	if rec.Score >= 0.52 {
		t.Errorf("score should have degraded, got %v", rec.Score)
	}
}
