package client

import "net/http"

// Authenticator прикладывает учетные данные к запросу.
// Все реализации используют только заголовок Authorization.
type Authenticator interface {
	Authorize(req *http.Request)
}

// Credentials - пара {identifier, secret}, передается как HTTP Basic.
type Credentials struct {
	Identifier string
	Secret     string
}

func (c Credentials) Authorize(req *http.Request) {
	req.SetBasicAuth(c.Identifier, c.Secret)
}

// BearerToken - выданный сервером токен доступа.
type BearerToken string

func (t BearerToken) Authorize(req *http.Request) {
	if t == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+string(t))
}
