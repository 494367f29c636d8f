package transport

import (
	"net/url"
	"path"

	"main/internal/session"
)

// Endpoint builds the websocket URL for an authenticated account.
// The account id extends the base path and the token rides a query parameter.
type Endpoint struct {
	Scheme   string // default "wss"
	Host     string
	BasePath string // default "/ws"
}

func (e Endpoint) URL(creds session.Credentials) string {
	scheme := e.Scheme
	if scheme == "" {
		scheme = "wss"
	}
	basePath := e.BasePath
	if basePath == "" {
		basePath = "/ws"
	}

	u := url.URL{
		Scheme: scheme,
		Host:   e.Host,
		Path:   path.Join(basePath, creds.AccountID),
	}
	q := url.Values{}
	q.Set("token", creds.Token)
	u.RawQuery = q.Encode()
	return u.String()
}
