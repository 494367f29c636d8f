package session

import "testing"

func TestCredentialsValid(t *testing.T) {
	testCases := []struct {
		creds    Credentials
		expected bool
	}{
		{Credentials{AccountID: "a", Token: "t"}, true},
		{Credentials{AccountID: "a"}, false},
		{Credentials{Token: "t"}, false},
		{Credentials{}, false},
	}
	for _, tc := range testCases {
		if got := tc.creds.Valid(); got != tc.expected {
			t.Fatalf("%+v: got %t want %t", tc.creds, got, tc.expected)
		}
	}
}

func TestStoreSetAndClear(t *testing.T) {
	s := NewStore()

	if _, ok := s.Credentials(); ok {
		t.Fatal("empty store reported usable credentials")
	}

	s.Set(Credentials{AccountID: "acct", Token: "tok"})
	creds, ok := s.Credentials()
	if !ok || creds.AccountID != "acct" {
		t.Fatalf("got %+v ok=%t", creds, ok)
	}

	s.Clear()
	if _, ok := s.Credentials(); ok {
		t.Fatal("cleared store reported usable credentials")
	}
}

func TestStoreWatch(t *testing.T) {
	s := NewStore()

	var seen []Credentials
	cancel := s.Watch(func(creds Credentials) { seen = append(seen, creds) })

	s.Set(Credentials{AccountID: "a", Token: "t"})
	s.Set(Credentials{AccountID: "a", Token: "t"}) // same value still notifies
	s.Clear()

	if len(seen) != 3 {
		t.Fatalf("watcher saw %d notifications, want 3", len(seen))
	}
	if seen[2].Valid() {
		t.Fatal("clear notification carried valid credentials")
	}

	cancel()
	cancel() // idempotent
	s.Set(Credentials{AccountID: "b", Token: "t"})
	if len(seen) != 3 {
		t.Fatalf("cancelled watcher still notified: %d", len(seen))
	}
}
