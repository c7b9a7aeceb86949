package headsource

import (
	"context"

	"github.com/tonwatch/liteserver-tracker/domain/blocks"
	"github.com/tonwatch/liteserver-tracker/support/watch"
)

// FromCell adapts a watch cell of heads into a Source. Each call
// returns an independent consumer view.
func FromCell(cell *watch.Cell[*blocks.ChainHead]) Source {
	return &cellSource{sub: cell.Subscribe()}
}

type cellSource struct {
	sub *watch.Subscription[*blocks.ChainHead]
}

func (s *cellSource) Current() (*blocks.ChainHead, bool) {
	head, ok := s.sub.Current()
	return head, ok && head != nil
}

func (s *cellSource) WaitForUpdate(ctx context.Context) (*blocks.ChainHead, error) {
	head, _, err := s.sub.NextChange(ctx)
	if err != nil {
		return nil, err
	}
	return head, nil
}
