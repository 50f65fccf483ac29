package sources

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ModelInfo is one entry of a provider's model listing.
type ModelInfo struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
}

// ModelPolicy picks a model out of a listing.
type ModelPolicy struct {
	Families []string // preference order, matched as id prefixes
	Exclude  []string // id substrings that mark unsuitable variants
	Fallback string
}

var (
	OpenAIPolicy = ModelPolicy{
		Families: []string{"gpt-5", "gpt-4.1", "gpt-4o"},
		Exclude:  []string{"mini", "nano", "audio", "realtime", "transcribe", "tts", "image", "chat", "codex", "search", "preview"},
		Fallback: "gpt-4.1",
	}
	XAIPolicy = ModelPolicy{
		Families: []string{"grok-4", "grok-3"},
		Exclude:  []string{"mini", "image", "vision", "code"},
		Fallback: "grok-4-latest",
	}
)

// Select returns the pinned model when set, otherwise the newest model of the
// most preferred family present in the listing.
func (p ModelPolicy) Select(available []ModelInfo, pinned string) string {
	if pinned != "" {
		return pinned
	}

	for _, family := range p.Families {
		var candidates []ModelInfo
		for _, m := range available {
			if strings.HasPrefix(m.ID, family) && !p.excluded(m.ID) {
				candidates = append(candidates, m)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Created != candidates[j].Created {
				return candidates[i].Created > candidates[j].Created
			}
			return candidates[i].ID > candidates[j].ID
		})
		return candidates[0].ID
	}

	return p.Fallback
}

func (p ModelPolicy) excluded(id string) bool {
	for _, marker := range p.Exclude {
		if strings.Contains(id, marker) {
			return true
		}
	}
	return false
}

// ParseModelList decodes a {"data": [...]} model listing.
func ParseModelList(raw []byte) ([]ModelInfo, error) {
	var listing struct {
		Data []ModelInfo `json:"data"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}
	return listing.Data, nil
}
