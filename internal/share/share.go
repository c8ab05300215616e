// Package share encodes wizard snapshots into URL-safe tokens and back.
package share

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Conceptual-Machines/prompt-architect/internal/models"
)

const (
	// QueryParam is the share link query parameter carrying the token
	QueryParam = "s"
	// Version is the token schema version written by Encode.
	// Tokens without a version field are version 0.
	Version = 1
)

var (
	ErrMalformedToken     = errors.New("share: malformed token")
	ErrUnsupportedVersion = errors.New("share: unsupported token version")
	ErrMissingSubgenre    = errors.New("share: token has no subgenre")
	ErrMissingToken       = errors.New("share: no token in url")
)

// token is the abbreviated wire shape
type token struct {
	Version        int      `json:"v,omitempty"`
	Mode           string   `json:"pm"`
	Subgenre       string   `json:"sg"`
	Mood           *string  `json:"m"`
	Solfeggio      bool     `json:"sol"`
	Influence      *string  `json:"ig,omitempty"`
	Instruments    []string `json:"ins,omitempty"`
	Vocal          *string  `json:"vs,omitempty"`
	Atmosphere     *string  `json:"a,omitempty"`
	Lyrics         string   `json:"l,omitempty"`
	Structure      string   `json:"s,omitempty"`
	LyricalConcept string   `json:"lc,omitempty"`
	BPM            *int     `json:"bpm,omitempty"`
	Key            *string  `json:"k,omitempty"`
}

// Encode serializes a snapshot into a URL-safe token
func Encode(snap models.Snapshot) (string, error) {
	if snap.Subgenre == "" {
		return "", ErrMissingSubgenre
	}
	if snap.Mode.String() == "" {
		return "", fmt.Errorf("share: cannot encode mode %d", snap.Mode)
	}

	t := token{
		Version:        Version,
		Mode:           snap.Mode.String(),
		Subgenre:       snap.Subgenre,
		Mood:           snap.Mood,
		Solfeggio:      snap.Solfeggio,
		Influence:      snap.Influence,
		Instruments:    snap.Instruments,
		Vocal:          snap.Vocal,
		Atmosphere:     snap.Atmosphere,
		Lyrics:         snap.Lyrics,
		Structure:      snap.Structure,
		LyricalConcept: snap.LyricalConcept,
		BPM:            snap.BPM,
		Key:            snap.Key,
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("share: failed to marshal token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a token. It validates the shape only; resolving the
// subgenre against the catalog is the caller's job.
func Decode(raw string) (models.Snapshot, error) {
	data, err := decodeBase64(strings.TrimSpace(raw))
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var t token
	if err := json.Unmarshal(data, &t); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if t.Version > Version {
		return models.Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, t.Version)
	}
	if t.Subgenre == "" {
		return models.Snapshot{}, ErrMissingSubgenre
	}
	mode, err := models.ParseMode(t.Mode)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	instruments := t.Instruments
	if instruments == nil {
		instruments = []string{}
	}
	return models.Snapshot{
		Mode:     mode,
		Subgenre: t.Subgenre,
		Configuration: models.Configuration{
			Mood:           t.Mood,
			Solfeggio:      t.Solfeggio,
			Influence:      t.Influence,
			Instruments:    instruments,
			Vocal:          t.Vocal,
			Atmosphere:     t.Atmosphere,
			Lyrics:         t.Lyrics,
			LyricalConcept: t.LyricalConcept,
			Structure:      t.Structure,
			BPM:            t.BPM,
			Key:            t.Key,
		},
	}, nil
}

// decodeBase64 accepts the URL-safe alphabet written by Encode and the
// padded standard alphabet of version 0 tokens
func decodeBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty token")
	}
	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	var firstErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// URL returns base with the token set as the share query parameter
func URL(base *url.URL, tok string) string {
	u := *base
	q := u.Query()
	q.Set(QueryParam, tok)
	u.RawQuery = q.Encode()
	return u.String()
}

// TokenFromURL extracts the share token from a link
func TokenFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("share: invalid url: %w", err)
	}
	tok := u.Query().Get(QueryParam)
	if tok == "" {
		return "", ErrMissingToken
	}
	return tok, nil
}

// StripToken removes the share parameter so a reload does not restore again
func StripToken(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("share: invalid url: %w", err)
	}
	q := u.Query()
	q.Del(QueryParam)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
