// Package mock provides test doubles for skim interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/skim"
)

// Interface compliance checks.
var (
	_ skim.Gateway = (*Gateway)(nil)
	_ skim.Cache   = (*Cache)(nil)
)

// Gateway is a test double for skim.Gateway.
// Set the function fields for the methods you need.
type Gateway struct {
	FetchHistoryFn func(ctx context.Context) ([]skim.Session, error)
	SummarizeFn    func(ctx context.Context, req skim.SummarizeRequest) (skim.SummarizeResult, error)
	RenameFn       func(ctx context.Context, id skim.ConfirmedID, title string) error
	DeleteFn       func(ctx context.Context, id skim.ConfirmedID) error
}

// FetchHistory delegates to FetchHistoryFn.
func (g *Gateway) FetchHistory(ctx context.Context) ([]skim.Session, error) {
	return g.FetchHistoryFn(ctx)
}

// Summarize delegates to SummarizeFn.
func (g *Gateway) Summarize(ctx context.Context, req skim.SummarizeRequest) (skim.SummarizeResult, error) {
	return g.SummarizeFn(ctx, req)
}

// Rename delegates to RenameFn.
func (g *Gateway) Rename(ctx context.Context, id skim.ConfirmedID, title string) error {
	return g.RenameFn(ctx, id, title)
}

// Delete delegates to DeleteFn.
func (g *Gateway) Delete(ctx context.Context, id skim.ConfirmedID) error {
	return g.DeleteFn(ctx, id)
}
