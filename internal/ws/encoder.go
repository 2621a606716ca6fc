package ws

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encoding names the wire format of data frames sent to a client.
type Encoding string

const (
	// EncodingJSON sends text frames wrapping the report JSON.
	EncodingJSON Encoding = "json"
	// EncodingZstd sends binary frames of zstd-compressed report JSON.
	EncodingZstd Encoding = "zstd"
	// EncodingProto sends binary frames of a zstd-compressed
	// google.protobuf.Any holding the report as a google.protobuf.Struct.
	EncodingProto Encoding = "proto"
)

// ParseEncoding validates an encoding name.
func ParseEncoding(s string) (Encoding, bool) {
	switch e := Encoding(s); e {
	case EncodingJSON, EncodingZstd, EncodingProto:
		return e, true
	}
	return "", false
}

// Frames holds one payload rendered in every encoding, so each client can
// be served its negotiated format without re-encoding.
type Frames struct {
	JSON  json.RawMessage
	Zstd  []byte
	Proto []byte
}

// Encoder renders payloads into Frames.
type Encoder struct {
	zstdEncoder *zstd.Encoder
}

// NewEncoder creates a new Encoder with Zstd compression.
func NewEncoder() (*Encoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Encoder{zstdEncoder: enc}, nil
}

// Encode marshals v to JSON and derives the compressed and protobuf forms.
func (e *Encoder) Encode(v any) (Frames, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Frames{}, fmt.Errorf("marshal json: %w", err)
	}

	// Round-trip through a generic map so structpb sees plain JSON values.
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Frames{}, fmt.Errorf("payload is not a json object: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return Frames{}, fmt.Errorf("build struct: %w", err)
	}
	wrapped, err := anypb.New(st)
	if err != nil {
		return Frames{}, fmt.Errorf("wrap any: %w", err)
	}
	pbData, err := proto.Marshal(wrapped)
	if err != nil {
		return Frames{}, fmt.Errorf("marshal protobuf: %w", err)
	}

	return Frames{
		JSON:  raw,
		Zstd:  e.zstdEncoder.EncodeAll(raw, nil),
		Proto: e.zstdEncoder.EncodeAll(pbData, nil),
	}, nil
}

// Close releases encoder resources.
func (e *Encoder) Close() {
	if e.zstdEncoder != nil {
		e.zstdEncoder.Close()
	}
}
