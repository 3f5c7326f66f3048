package cli

import "testing"

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := LoadSession(); err == nil {
		t.Fatalf("expected load to fail with no saved session")
	}

	want := Session{Token: "tok123", TeamID: "team-1", Name: "Wolves"}
	if err := SaveSession(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}

	if err := ClearSession(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := LoadSession(); err == nil {
		t.Fatalf("expected load to fail after clear")
	}
	if err := ClearSession(); err != nil {
		t.Fatalf("double clear should be a no-op: %v", err)
	}
}

func TestSessionRejectsEmptyToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := SaveSession(Session{TeamID: "team-1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := LoadSession(); err == nil {
		t.Fatalf("expected empty token to be rejected")
	}
}
