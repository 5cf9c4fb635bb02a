package snapshot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// DecodeError reports a body that is not valid JSON or does not have the
// snapshot shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("snapshot: %v", e.Err)
	}
	return fmt.Sprintf("snapshot: %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	errNotObject = errors.New("expected JSON object")
	errCounter   = errors.New("expected non-negative integer")
	errTrailing  = errors.New("unexpected data after top-level object")
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// Decode parses a JSON object keyed by client id. Key order is preserved.
// Unknown fields are skipped; a missing or null "protocols" field yields an
// empty breakdown.
func Decode(body []byte) (Snapshot, error) {
	iter := api.BorrowIterator(body)
	defer api.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return Snapshot{}, &DecodeError{Err: errNotObject}
	}

	var b Builder
	var shapeErr *DecodeError
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, id string) bool {
		stats, err := decodeClient(iter, id)
		if err != nil {
			shapeErr = err
			return false
		}
		b.Add(id, stats)
		return true
	})
	if shapeErr != nil {
		return Snapshot{}, shapeErr
	}
	if iter.Error != nil {
		return Snapshot{}, &DecodeError{Err: iter.Error}
	}
	// Only whitespace may follow the object; the iterator reports io.EOF once
	// the input is exhausted.
	if iter.WhatIsNext() != jsoniter.InvalidValue || !errors.Is(iter.Error, io.EOF) {
		return Snapshot{}, &DecodeError{Err: errTrailing}
	}
	return b.Snapshot(), nil
}

func decodeClient(iter *jsoniter.Iterator, id string) (ClientStats, *DecodeError) {
	var stats ClientStats
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		iter.Skip()
		return stats, &DecodeError{Path: id, Err: errNotObject}
	}
	var fieldErr *DecodeError
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		var err *DecodeError
		switch field {
		case "inbound":
			stats.Inbound, err = readCounter(iter, id+".inbound")
		case "outbound":
			stats.Outbound, err = readCounter(iter, id+".outbound")
		case "protocols":
			stats.Protocols, err = decodeProtocols(iter, id+".protocols")
		default:
			iter.Skip()
		}
		if err != nil {
			fieldErr = err
			return false
		}
		return true
	})
	return stats, fieldErr
}

func decodeProtocols(iter *jsoniter.Iterator, path string) (Protocols, *DecodeError) {
	var p Protocols
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return p, nil
	case jsoniter.ObjectValue:
	default:
		iter.Skip()
		return p, &DecodeError{Path: path, Err: errNotObject}
	}
	var protoErr *DecodeError
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, name string) bool {
		ps, err := decodeProtocol(iter, path+"."+name)
		if err != nil {
			protoErr = err
			return false
		}
		p.entries.put(name, ps)
		return true
	})
	return p, protoErr
}

func decodeProtocol(iter *jsoniter.Iterator, path string) (ProtocolStats, *DecodeError) {
	var ps ProtocolStats
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		iter.Skip()
		return ps, &DecodeError{Path: path, Err: errNotObject}
	}
	var fieldErr *DecodeError
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		var err *DecodeError
		switch field {
		case "inbound":
			ps.Inbound, err = readCounter(iter, path+".inbound")
		case "outbound":
			ps.Outbound, err = readCounter(iter, path+".outbound")
		default:
			iter.Skip()
		}
		if err != nil {
			fieldErr = err
			return false
		}
		return true
	})
	return ps, fieldErr
}

func readCounter(iter *jsoniter.Iterator, path string) (uint64, *DecodeError) {
	if iter.WhatIsNext() != jsoniter.NumberValue {
		iter.Skip()
		return 0, &DecodeError{Path: path, Err: errCounter}
	}
	// Read as json.Number so fractions and negatives are rejected instead of
	// being truncated.
	num := iter.ReadNumber()
	if iter.Error != nil {
		return 0, &DecodeError{Path: path, Err: iter.Error}
	}
	v, err := parseCounter(string(num))
	if err != nil {
		return 0, &DecodeError{Path: path, Err: err}
	}
	return v, nil
}

// maxExactCounter is the largest integer a float64 holds exactly.
const maxExactCounter = 1 << 53

func parseCounter(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	// Some backends serialise counters as floats ("2048.0"); accept those
	// when they are integral.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > maxExactCounter {
		return 0, fmt.Errorf("%w, got %s", errCounter, s)
	}
	return uint64(f), nil
}
