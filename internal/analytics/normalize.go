// Package analytics computes derived statistics over a Spotify data
// export: playlist-appearance rankings, play-count rankings, artist
// rankings, and matches between streaming history and playlist tracks.
package analytics

import (
	"strings"
	"unicode"
)

// keySeparator joins the normalized track and artist halves of a key.
// Normalization strips all punctuation, so the separator can never occur
// inside either half.
const keySeparator = "||"

// NormalizeKey builds the canonical comparison key for a (track, artist)
// pair. Case, punctuation, and whitespace variation never produce
// distinct keys: both halves are lowercased, stripped of everything that
// is not a letter, digit, underscore, or space, and have whitespace runs
// collapsed to single spaces. The function is total; empty inputs yield
// "||".
func NormalizeKey(trackName, artistName string) string {
	return normalizeText(trackName) + keySeparator + normalizeText(artistName)
}

// SplitKey splits a normalized key back into its track and artist halves.
func SplitKey(key string) (trackName, artistName string) {
	track, artist, _ := strings.Cut(key, keySeparator)
	return track, artist
}

// normalizeText lowercases s, removes characters that are neither
// word characters nor whitespace, and collapses whitespace runs.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TitleCase uppercases every letter that follows a non-letter, so
// "ac/dc" becomes "Ac/Dc" and "blink-182" stays "Blink-182". Used only
// when presenting a normalized key back to the user; all comparisons
// stay on the normalized form.
func TitleCase(s string) string {
	r := []rune(s)
	prevLetter := false
	for i, c := range r {
		if unicode.IsLetter(c) {
			if !prevLetter {
				r[i] = unicode.ToUpper(c)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
	}
	return string(r)
}
