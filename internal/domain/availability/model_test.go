package availability

import (
	"encoding/json"
	"testing"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"23:59", 1439, false},
		{"12:30", 750, false},
		{"24:00", 0, true},
		{"9:00am", 0, true},
		{"09:60", 0, true},
		{"", 0, true},
		{"banana", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestTimeOfDay_String(t *testing.T) {
	if got := TimeOfDay(540).String(); got != "09:00" {
		t.Errorf("expected 09:00, got %s", got)
	}
	if got := TimeOfDay(1439).String(); got != "23:59" {
		t.Errorf("expected 23:59, got %s", got)
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	data, err := json.Marshal(TimeOfDay(750))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"12:30"` {
		t.Errorf("expected \"12:30\", got %s", data)
	}

	var parsed TimeOfDay
	if err := json.Unmarshal([]byte(`"08:15"`), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed != 495 {
		t.Errorf("expected 495 minutes, got %d", parsed)
	}

	if err := json.Unmarshal([]byte(`"late"`), &parsed); err == nil {
		t.Error("expected error for invalid time string")
	}
}

func TestWindow_Overlaps(t *testing.T) {
	base := Window{Day: Monday, Start: 540, End: 720} // 09:00-12:00

	tests := []struct {
		name  string
		other Window
		want  bool
	}{
		{"contained", Window{Day: Monday, Start: 600, End: 660}, true},
		{"straddles end", Window{Day: Monday, Start: 660, End: 780}, true},
		{"straddles start", Window{Day: Monday, Start: 480, End: 570}, true},
		{"identical", Window{Day: Monday, Start: 540, End: 720}, true},
		{"touching after", Window{Day: Monday, Start: 720, End: 780}, false},
		{"touching before", Window{Day: Monday, Start: 480, End: 540}, false},
		{"disjoint", Window{Day: Monday, Start: 780, End: 840}, false},
		{"other day", Window{Day: Tuesday, Start: 540, End: 720}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Errorf("reverse Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDay_Valid(t *testing.T) {
	for _, d := range []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday} {
		if !d.Valid() {
			t.Errorf("expected %s to be valid", d)
		}
	}
	if Day("Monday").Valid() {
		t.Error("days are stored lowercase; capitalized input must be invalid")
	}
	if Day("").Valid() {
		t.Error("empty day must be invalid")
	}
}
