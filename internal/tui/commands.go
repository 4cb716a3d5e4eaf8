package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/arxivlens/internal/arxiv"
)

func fetchFeedJob(source Source, q arxiv.QueryDescriptor, requestID int) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		feed, err := source.Search(ctx, q)
		return feedResultMsg{requestID: requestID, feed: feed, err: err}, err
	}
}

func fullTextJob(source Source, paper arxiv.Paper) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		text, err := source.FetchFullText(ctx, paper)
		return fullTextResultMsg{paperID: paper.ID, text: text, err: err}, err
	}
}

func yankJob(write func(string) error, id string) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		err := write(id)
		return yankResultMsg{id: id, err: err}, err
	}
}

func writeClipboard(text string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard unsupported on this system")
	}
	return clipboard.WriteAll(text)
}

// describeFeedError maps parser and transport failures onto the message
// shown in the status line. The previous feed stays on screen in every case.
func describeFeedError(err error) string {
	switch {
	case errors.Is(err, arxiv.ErrMalformed):
		return "Could not read results: the response was not a valid feed."
	case errors.Is(err, arxiv.ErrNoData):
		return "No data received from arXiv."
	case errors.Is(err, arxiv.ErrResponseTooLarge):
		return "The response was too large. Lower max_results and press r."
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out. Press r to retry."
	case errors.Is(err, arxiv.ErrUnexpectedStatus):
		return fmt.Sprintf("arXiv refused the request: %s", strings.TrimPrefix(err.Error(), arxiv.ErrUnexpectedStatus.Error()+": "))
	default:
		return err.Error()
	}
}
