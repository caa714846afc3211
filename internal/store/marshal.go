package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/liftfop/internal/athlete"
)

// marshalLifts converts a lift array to JSON TEXT for storage.
func marshalLifts(lifts [athlete.MaxAttempts]int) (string, error) {
	data, err := json.Marshal(lifts)
	if err != nil {
		return "", fmt.Errorf("marshal lifts: %w", err)
	}
	return string(data), nil
}

func marshalLiftSeq(seq [athlete.MaxAttempts]int64) (string, error) {
	data, err := json.Marshal(seq)
	if err != nil {
		return "", fmt.Errorf("marshal lift seq: %w", err)
	}
	return string(data), nil
}

// unmarshalLifts parses a stored lift array. An empty column reads as no
// lifts recorded.
func unmarshalLifts(data string) ([athlete.MaxAttempts]int, error) {
	var lifts [athlete.MaxAttempts]int
	if data == "" {
		return lifts, nil
	}
	if err := json.Unmarshal([]byte(data), &lifts); err != nil {
		return lifts, fmt.Errorf("unmarshal lifts: %w", err)
	}
	return lifts, nil
}

func unmarshalLiftSeq(data string) ([athlete.MaxAttempts]int64, error) {
	var seq [athlete.MaxAttempts]int64
	if data == "" {
		return seq, nil
	}
	if err := json.Unmarshal([]byte(data), &seq); err != nil {
		return seq, fmt.Errorf("unmarshal lift seq: %w", err)
	}
	return seq, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
