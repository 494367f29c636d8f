package transport

import (
	"testing"

	"main/internal/session"
)

func TestEndpointURL(t *testing.T) {
	testCases := []struct {
		name     string
		endpoint Endpoint
		creds    session.Credentials
		expected string
	}{
		{
			name:     "defaults",
			endpoint: Endpoint{Host: "stream.example.com"},
			creds:    session.Credentials{AccountID: "acct-1", Token: "tok"},
			expected: "wss://stream.example.com/ws/acct-1?token=tok",
		},
		{
			name:     "explicit scheme and path",
			endpoint: Endpoint{Scheme: "ws", Host: "localhost:8080", BasePath: "/stream"},
			creds:    session.Credentials{AccountID: "acct-2", Token: "secret"},
			expected: "ws://localhost:8080/stream/acct-2?token=secret",
		},
		{
			name:     "token is query escaped",
			endpoint: Endpoint{Host: "stream.example.com"},
			creds:    session.Credentials{AccountID: "acct-3", Token: "a&b=c"},
			expected: "wss://stream.example.com/ws/acct-3?token=a%26b%3Dc",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.endpoint.URL(tc.creds); got != tc.expected {
				t.Fatalf("got %s want %s", got, tc.expected)
			}
		})
	}
}
