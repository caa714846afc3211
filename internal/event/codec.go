package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Envelope is the JSON form of an input: the kind name plus the kind's
// own fields. It is used by the journal and by line-oriented transports.
type Envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

var decoders = map[string]func([]byte) (Input, error){
	KindBreakStarted:           decodeAs[BreakStarted],
	KindBreakPaused:            decodeAs[BreakPaused],
	KindStartLifting:           decodeAs[StartLifting],
	KindWeightChange:           decodeAs[WeightChange],
	KindBarbellOrPlatesChanged: decodeAs[BarbellOrPlatesChanged],
	KindSwitchGroup:            decodeAs[SwitchGroup],
	KindTimeStarted:            decodeAs[TimeStarted],
	KindTimeStopped:            decodeAs[TimeStopped],
	KindTimeOver:               decodeAs[TimeOver],
	KindForceTime:              decodeAs[ForceTime],
	KindDecisionUpdate:         decodeAs[DecisionUpdate],
	KindDecisionFullUpdate:     decodeAs[DecisionFullUpdate],
	KindExplicitDecision:       decodeAs[ExplicitDecision],
	KindDownSignal:             decodeAs[DownSignal],
	KindDecisionReset:          decodeAs[DecisionReset],
	KindJuryDecision:           decodeAs[JuryDecision],
	KindDecisionConfirm:        decodeAs[DecisionConfirm],
	KindClockWarning:           decodeAs[ClockWarning],
	KindBreakExpired:           decodeAs[BreakExpired],
}

func decodeAs[T Input](data []byte) (Input, error) {
	var v T
	if len(bytes.TrimSpace(data)) == 0 {
		return v, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Kinds returns every input kind name in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(decoders))
	for k := range decoders {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Zero returns the zero value of the named input kind.
func Zero(kind string) (Input, error) {
	return Decode(Envelope{Kind: kind})
}

// Encode wraps an input in an envelope.
func Encode(in Input) (Envelope, error) {
	if in == nil {
		return Envelope{}, fmt.Errorf("encode: nil input")
	}
	data, err := json.Marshal(in)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", in.kind(), err)
	}
	return Envelope{Kind: in.kind(), Data: data}, nil
}

// Decode unwraps an envelope. Unknown kinds and unknown fields are errors.
func Decode(env Envelope) (Input, error) {
	decode, ok := decoders[env.Kind]
	if !ok {
		return nil, fmt.Errorf("decode: unknown input kind %q", env.Kind)
	}
	in, err := decode(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
	}
	return in, nil
}

// Marshal encodes an input as a single JSON envelope.
func Marshal(in Input) ([]byte, error) {
	env, err := Encode(in)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Unmarshal decodes a JSON envelope produced by Marshal.
func Unmarshal(data []byte) (Input, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return Decode(env)
}
