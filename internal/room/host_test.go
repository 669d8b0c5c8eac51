package room

import "testing"

func TestElectHost(t *testing.T) {
	tests := []struct {
		name       string
		keys       []string
		wantWinner string
		wantOK     bool
	}{
		{
			name:   "no candidates",
			keys:   nil,
			wantOK: false,
		},
		{
			name:       "single candidate",
			keys:       []string{"b2"},
			wantWinner: "b2",
			wantOK:     true,
		},
		{
			name:       "lowest key wins",
			keys:       []string{"c3", "a1", "b2"},
			wantWinner: "a1",
			wantOK:     true,
		},
		{
			name:       "order of candidates is irrelevant",
			keys:       []string{"a1", "c3", "b2"},
			wantWinner: "a1",
			wantOK:     true,
		},
		{
			name:       "comparison is lexicographic, not numeric",
			keys:       []string{"10", "9"},
			wantWinner: "10",
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner, ok := ElectHost(tt.keys)
			if ok != tt.wantOK {
				t.Fatalf("ElectHost(%v) ok = %v, want %v", tt.keys, ok, tt.wantOK)
			}
			if winner != tt.wantWinner {
				t.Errorf("ElectHost(%v) = %q, want %q", tt.keys, winner, tt.wantWinner)
			}
		})
	}
}

func TestElectHostDeterministic(t *testing.T) {
	// Every replica must compute the same winner from the same snapshot.
	keys := []string{"q", "m", "z", "m2"}
	first, _ := ElectHost(keys)
	for i := 0; i < 10; i++ {
		winner, _ := ElectHost(keys)
		if winner != first {
			t.Fatalf("election not deterministic: got %q then %q", first, winner)
		}
	}
}

func TestAnyHost(t *testing.T) {
	if anyHost(nil) {
		t.Error("anyHost(nil) should be false")
	}
	if anyHost([]Player{{SessionID: "a"}, {SessionID: "b"}}) {
		t.Error("expected no host")
	}
	if !anyHost([]Player{{SessionID: "a"}, {SessionID: "b", IsHost: true}}) {
		t.Error("expected host to be found")
	}
}
