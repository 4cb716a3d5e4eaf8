package tui

import (
	"context"

	"github.com/csheth/arxivlens/internal/arxiv"
)

// Source supplies feeds and full texts to the program. *arxiv.Client
// satisfies it.
type Source interface {
	Search(ctx context.Context, q arxiv.QueryDescriptor) (arxiv.Feed, error)
	FetchFullText(ctx context.Context, paper arxiv.Paper) (string, error)
}

type stage int

const (
	stageList stage = iota
	stageDetail
	stageSearch
)

const (
	minContentWidth   = 40
	horizontalPadding = 2
	fullTextPreview   = 4000
	pinnedPanelLimit  = 5
)

type feedResultMsg struct {
	requestID int
	feed      arxiv.Feed
	err       error
}

type fullTextResultMsg struct {
	paperID string
	text    string
	err     error
}

type yankResultMsg struct {
	id  string
	err error
}
