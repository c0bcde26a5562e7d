package connector

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type errorReply struct {
	Error *string `json:"error"`
}

// replyError returns the error carried by a {"error": "..."} object, if any
func replyError(data []byte) error {
	var reply errorReply
	if err := json.Unmarshal(data, &reply); err != nil || reply.Error == nil {
		return nil
	}
	return classify(errors.Errorf("reminders connector error: %s", *reply.Error))
}

// parseArray accepts a bare JSON array, a {"lists"|"tasks": [...]} wrapper,
// or an error object.
func parseArray[T any](data []byte, what string) ([]T, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s JSON", what)
	}
	if err := replyError(data); err != nil {
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(data, &items); err == nil {
		if items == nil {
			items = []T{}
		}
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, errors.Errorf("unexpected %s format from reminders connector", what)
	}
	for _, key := range []string{"lists", "tasks"} {
		nested, ok := wrapped[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(nested, &items); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", what)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}
	return nil, errors.Errorf("unexpected %s format from reminders connector", what)
}

func parseResult(data []byte, what string) (Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, errors.Wrapf(err, "failed to parse %s JSON", what)
	}
	if err := replyError(data); err != nil {
		return Result{}, err
	}
	return res, nil
}
