package research

import (
	"context"

	"github.com/azure/last30days/internal/fixtures"
	"github.com/azure/last30days/internal/sources"
)

// fixtureSource answers every search and model listing from embedded fixtures.
type fixtureSource struct {
	name   string
	search string
	models string
}

var (
	mockReddit = fixtureSource{name: "reddit", search: fixtures.OpenAISample, models: fixtures.OpenAIModelsSample}
	mockX      = fixtureSource{name: "x", search: fixtures.XAISample, models: fixtures.XAIModelsSample}
)

var (
	_ sources.RedditSearcher = fixtureSource{}
	_ sources.XSearcher      = fixtureSource{}
	_ sources.ModelLister    = fixtureSource{}
)

func (f fixtureSource) GetName() string { return f.name }
func (f fixtureSource) IsEnabled() bool { return true }

func (f fixtureSource) SearchReddit(ctx context.Context, q sources.Query) (*sources.Response, error) {
	return f.load()
}

func (f fixtureSource) SearchX(ctx context.Context, q sources.Query) (*sources.Response, error) {
	return f.load()
}

func (f fixtureSource) ListModels(ctx context.Context) ([]sources.ModelInfo, error) {
	data, err := fixtures.Load(f.models)
	if err != nil {
		return nil, err
	}
	return sources.ParseModelList(data)
}

func (f fixtureSource) load() (*sources.Response, error) {
	data, err := fixtures.Load(f.search)
	if err != nil {
		return nil, err
	}
	return &sources.Response{Raw: data}, nil
}
