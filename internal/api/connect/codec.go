// Package connect provides the Connect RPC player service, its client and
// the control token interceptor.
package connect

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// CodecName is the name of the JSON codec. It replaces connect's protojson
// codec, so plain Go structs travel as application/json.
const CodecName = "json"

// jsonCodec is a connect.Codec for plain structs.
type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecName }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}
	return nil
}
