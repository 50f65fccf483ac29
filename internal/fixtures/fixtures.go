// Package fixtures holds canned provider responses used by --mock runs and tests.
package fixtures

import (
	"embed"
	"fmt"
)

//go:embed data/*.json
var files embed.FS

const (
	OpenAISample       = "openai_sample"
	XAISample          = "xai_sample"
	RedditThreadSample = "reddit_thread_sample"
	OpenAIModelsSample = "models_openai_sample"
	XAIModelsSample    = "models_xai_sample"
)

// Load returns the named fixture's raw JSON.
func Load(name string) ([]byte, error) {
	data, err := files.ReadFile("data/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown fixture %q: %w", name, err)
	}
	return data, nil
}

// MustLoad is Load for fixtures known to exist.
func MustLoad(name string) []byte {
	data, err := Load(name)
	if err != nil {
		panic(err)
	}
	return data
}
