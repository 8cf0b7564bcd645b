// Package qr classifies decoded QR payloads. Decoding video frames is the
// capture layer's job; this package only interprets the resulting token.
package qr

import "strings"

// Kind tells what a decoded token means.
type Kind int

const (
	// KindUnknown covers empty or unusable tokens.
	KindUnknown Kind = iota
	// KindMarker is a physical marker discovery.
	KindMarker
	// KindNavigation is a link the client should follow instead of scoring.
	KindNavigation
)

// Token is the classification of one decoded QR payload.
type Token struct {
	Kind     Kind
	MarkerID string // set for KindMarker
	Target   string // set for KindNavigation
}

// Classify interprets a decoded QR string. Pure function:
//
//   - "marker:<id>" and bare tokens are marker discoveries
//   - http(s) URLs and absolute paths are navigation intents
//   - blank input is unknown
func Classify(raw string) Token {
	token := strings.TrimSpace(raw)
	if token == "" {
		return Token{Kind: KindUnknown}
	}

	if id, ok := strings.CutPrefix(token, "marker:"); ok {
		id = strings.TrimSpace(id)
		if id == "" {
			return Token{Kind: KindUnknown}
		}
		return Token{Kind: KindMarker, MarkerID: id}
	}

	if strings.HasPrefix(token, "http://") || strings.HasPrefix(token, "https://") || strings.HasPrefix(token, "/") {
		return Token{Kind: KindNavigation, Target: token}
	}

	return Token{Kind: KindMarker, MarkerID: token}
}
