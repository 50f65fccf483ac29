// Package dedupe removes near-duplicate items from a ranked list.
package dedupe

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/azure/last30days/internal/models"
	"github.com/sirupsen/logrus"
)

// SimilarityThreshold is the token-set Jaccard similarity at which two texts
// are considered the same item.
const SimilarityThreshold = 0.9

var trackingParams = map[string]bool{
	"fbclid":   true,
	"gclid":    true,
	"ref":      true,
	"ref_src":  true,
	"s":        true,
	"t":        true,
	"si":       true,
	"share_id": true,
}

var hostAliases = map[string]string{
	"twitter.com":        "x.com",
	"mobile.twitter.com": "x.com",
	"mobile.x.com":       "x.com",
}

type seen struct {
	ids    map[string]bool
	urls   map[string]bool
	tokens []map[string]struct{}
}

// Dedupe keeps the first item of every duplicate cluster. The input must
// already be sorted best-first; order of the survivors is preserved.
func Dedupe[T models.Item](items []T) []T {
	s := seen{ids: map[string]bool{}, urls: map[string]bool{}}
	out := make([]T, 0, len(items))

	for _, item := range items {
		id := strings.ToLower(strings.TrimSpace(item.ItemID()))
		u := NormalizeURL(item.ItemURL())
		toks := Tokens(item.ItemText())

		if dup, reason := s.duplicate(id, u, toks); dup {
			logrus.Debugf("Dropping %s as duplicate (%s)", item.ItemID(), reason)
			continue
		}

		if id != "" {
			s.ids[id] = true
		}
		if u != "" {
			s.urls[u] = true
		}
		s.tokens = append(s.tokens, toks)
		out = append(out, item)
	}
	return out
}

func (s *seen) duplicate(id, u string, toks map[string]struct{}) (bool, string) {
	if id != "" && s.ids[id] {
		return true, "id"
	}
	if u != "" && s.urls[u] {
		return true, "url"
	}
	if len(toks) == 0 {
		return false, ""
	}
	for _, prev := range s.tokens {
		if Jaccard(prev, toks) >= SimilarityThreshold {
			return true, "text"
		}
	}
	return false, ""
}

// NormalizeURL canonicalizes a link for comparison: scheme and host case,
// mirror subdomains, tracking parameters, fragments and trailing slashes are
// ignored. A link without a scheme is read as https.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if (err != nil || u.Host == "") && !strings.Contains(raw, "://") {
		u, err = url.Parse("https://" + raw)
	}
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}

	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "old.", "new.", "m."} {
		host = strings.TrimPrefix(host, prefix)
	}
	if alias, ok := hostAliases[host]; ok {
		host = alias
	}

	q := u.Query()
	for key := range q {
		k := strings.ToLower(key)
		if strings.HasPrefix(k, "utm_") || trackingParams[k] {
			q.Del(key)
		}
	}

	path := strings.ToLower(strings.TrimSuffix(u.Path, "/"))
	out := host + path
	if enc := q.Encode(); enc != "" {
		out += "?" + enc
	}
	return out
}

// Tokens lower-cases the text and splits it into a set of words, dropping punctuation.
func Tokens(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard is |a ∩ b| / |a ∪ b|. Two empty sets have similarity 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
