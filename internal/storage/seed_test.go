package storage

import "testing"

func TestSeed(t *testing.T) {
	s := NewMemoryStore()

	if err := Seed(s, testBaseURL); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := Stats{Agents: 6, Questions: 8, Answers: 6}
	if *stats != want {
		t.Errorf("seeded stats = %+v, want %+v", *stats, want)
	}

	// Seeding is idempotent once questions exist.
	if err := Seed(s, testBaseURL); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	stats, _ = s.Stats()
	if *stats != want {
		t.Errorf("stats after reseed = %+v, want unchanged %+v", *stats, want)
	}
}
