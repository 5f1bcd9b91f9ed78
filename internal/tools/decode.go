package tools

import (
	"encoding/json"
	"fmt"
	"time"
)

// decodeArgs converts the raw argument map from the LLM into a typed
// parameter struct. Arguments cross this boundary exactly once; everything
// past it works with concrete types.
func decodeArgs(args map[string]interface{}, v interface{}) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// requireString returns an error result when a required string field is empty.
func requireString(value, field string) *Result {
	if value == "" {
		return ErrorResult(fmt.Sprintf("Error: %s is required", field))
	}
	return nil
}

// secondsToDuration converts an optional seconds argument; zero means unset.
func secondsToDuration(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
