package sources

import (
	"context"
	"encoding/json"
)

// Query describes one retrieval request to a search-backed source.
type Query struct {
	Topic string
	Model string
	From  string
	To    string
	Depth Depth
}

// Response is the raw provider payload of a search call.
type Response struct {
	Raw json.RawMessage
}

// Source is the contract shared by all retrieval backends
type Source interface {
	GetName() string
	IsEnabled() bool
}

// RedditSearcher finds Reddit threads about a topic.
type RedditSearcher interface {
	Source
	SearchReddit(ctx context.Context, q Query) (*Response, error)
}

// XSearcher finds X posts about a topic.
type XSearcher interface {
	Source
	SearchX(ctx context.Context, q Query) (*Response, error)
}

// ModelLister lists the models a provider exposes.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
