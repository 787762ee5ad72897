package reconcile

import (
	"fmt"

	"github.com/tranhoangtu-it/mcpman-sub001/internal/hosts"
)

// ApplyFailure records one action that could not be applied.
type ApplyFailure struct {
	Action Action
	Err    error
}

// ApplyResult summarizes an apply pass. A failure on one host never
// aborts applying to the remaining hosts.
type ApplyResult struct {
	Applied  []Action
	Failures []ApplyFailure
}

// Apply executes the corrective actions against the given adapters.
// Only add and remove actions mutate anything; ok, extra, and changed
// actions are reporting-only and skipped here.
func Apply(actions []Action, adapters []*hosts.Adapter) *ApplyResult {
	byID := map[string]*hosts.Adapter{}
	for _, a := range adapters {
		byID[a.ID()] = a
	}

	result := &ApplyResult{}
	for _, action := range actions {
		var err error
		switch action.Kind {
		case ActionAdd:
			adapter, ok := byID[action.Host]
			if !ok {
				err = fmt.Errorf("no adapter for host %q", action.Host)
				break
			}
			if action.Entry == nil {
				err = fmt.Errorf("add action for %s has no entry", action.Server)
				break
			}
			err = adapter.AddServer(action.Server, *action.Entry)
		case ActionRemove:
			adapter, ok := byID[action.Host]
			if !ok {
				err = fmt.Errorf("no adapter for host %q", action.Host)
				break
			}
			err = adapter.RemoveServer(action.Server)
		default:
			continue
		}

		if err != nil {
			result.Failures = append(result.Failures, ApplyFailure{Action: action, Err: err})
		} else {
			result.Applied = append(result.Applied, action)
		}
	}
	return result
}
