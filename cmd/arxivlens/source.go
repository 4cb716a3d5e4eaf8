package main

import (
	"context"
	"fmt"
	"os"

	"github.com/csheth/arxivlens/internal/arxiv"
)

// fileSource serves a feed saved on disk. The query is ignored; every
// refresh re-reads the file. Full texts still come from arXiv.
type fileSource struct {
	path     string
	parser   *arxiv.Parser
	fullText *arxiv.Client
}

func (s *fileSource) Search(ctx context.Context, q arxiv.QueryDescriptor) (arxiv.Feed, error) {
	if err := ctx.Err(); err != nil {
		return arxiv.Feed{}, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return arxiv.Feed{}, fmt.Errorf("read feed file: %w", err)
	}
	return s.parser.Parse(raw)
}

func (s *fileSource) FetchFullText(ctx context.Context, paper arxiv.Paper) (string, error) {
	return s.fullText.FetchFullText(ctx, paper)
}
