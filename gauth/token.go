package gauth

import (
	"encoding/json"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

type State int

const (
	NoToken State = iota
	Authorizing
	Valid
	Refreshing
)

func (s State) String() string {
	switch s {
	case NoToken:
		return "no_token"
	case Authorizing:
		return "authorizing"
	case Valid:
		return "valid"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Profile is the Google account the tokens belong to.
type Profile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// TokenSet is the external token pair with its absolute expiry.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         Profile
}

// usableAt reports whether the access token can be handed out at now without a refresh.
func (t *TokenSet) usableAt(now time.Time) bool {
	return t.ExpiresAt.After(now.Add(RefreshMargin))
}

// storedAuth is the persisted blob. expiresAt is epoch milliseconds.
type storedAuth struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
	ExpiresAt    int64   `json:"expiresAt"`
	User         Profile `json:"user"`
}

func (t *TokenSet) marshal() ([]byte, error) {
	return json.Marshal(storedAuth{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt.UnixMilli(),
		User:         t.User,
	})
}

func unmarshalTokenSet(raw []byte) (*TokenSet, error) {
	var s storedAuth
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" || s.ExpiresAt == 0 {
		return nil, errMissingFields
	}
	return &TokenSet{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    fromMillis(s.ExpiresAt),
		User:         s.User,
	}, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// expiresAt is now plus the expires_in of the token response, at millisecond precision.
func expiresAt(now time.Time, tok *oauth2.Token) time.Time {
	if secs, ok := expiresIn(tok); ok {
		return fromMillis(now.Add(time.Duration(secs) * time.Second).UnixMilli())
	}
	if !tok.Expiry.IsZero() {
		return fromMillis(tok.Expiry.UnixMilli())
	}
	return fromMillis(now.UnixMilli())
}

func expiresIn(tok *oauth2.Token) (int64, bool) {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn, true
	}
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}
