package skim_test

import (
	"testing"

	"github.com/fwojciec/skim"
	"github.com/stretchr/testify/assert"
)

func TestEventTypeSwitch_Exhaustive(t *testing.T) {
	t.Parallel()
	events := []skim.Event{
		skim.EventPending{ID: skim.ConfirmedID("1"), Op: skim.OpAppend},
		skim.EventSessionUpdated{Session: skim.Session{ID: skim.ConfirmedID("1")}},
		skim.EventSessionRenamed{ID: skim.ConfirmedID("1"), Title: "t"},
		skim.EventSessionRemoved{ID: skim.ConfirmedID("1")},
		skim.EventFailed{ID: skim.ConfirmedID("1"), Op: skim.OpDelete},
	}
	assert.Len(t, events, 5, "update slice and switch when adding new Event types")
	for _, e := range events {
		switch e.(type) {
		case skim.EventPending:
		case skim.EventSessionUpdated:
		case skim.EventSessionRenamed:
		case skim.EventSessionRemoved:
		case skim.EventFailed:
		default:
			t.Errorf("unhandled event type: %T", e)
		}
	}
}
