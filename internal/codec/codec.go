// Package codec translates between wire bytes and sort requests/responses.
//
// Messages are framed as a big-endian uint32 length followed by a UTF-8 JSON
// payload:
//
//	request:  {"algorithm": "quick", "column": "FECHA_VENTA", "data": [{...}, ...]}
//	success:  {"algorithm": "quick", "time": 0.0012, "sorted_data": [{...}, ...]}
//	failure:  {"error": "unsupported algorithm \"shell\""}
//
// Record field order is preserved in both directions. JSON strings that parse
// as a date (2006-01-02 or RFC 3339) become date values and are written back
// with their original text. Integral number literals become integers; all
// other numbers become floats and are always written with a fraction or an
// exponent so they decode back as floats.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/buger/jsonparser"

	"github.com/hasirciogluhq/sortbench/internal/dataset"
	"github.com/hasirciogluhq/sortbench/internal/engine"
)

// DefaultMaxMessageSize is the request size limit used when none is configured.
const DefaultMaxMessageSize = 16 << 10

// Codec encodes and decodes protocol messages.
type Codec struct {
	// MaxMessageSize bounds decoded payloads; <= 0 disables the check.
	MaxMessageSize int
}

// New returns a Codec limited to maxMessageSize bytes per message.
func New(maxMessageSize int) *Codec {
	return &Codec{MaxMessageSize: maxMessageSize}
}

func (c *Codec) checkSize(b []byte) error {
	if c.MaxMessageSize > 0 && len(b) > c.MaxMessageSize {
		return &PayloadTooLargeError{Size: int64(len(b)), Limit: c.MaxMessageSize}
	}
	return nil
}

// DecodeRequest parses a request payload. Unknown top-level fields are
// ignored. A missing algorithm or data field yields MalformedRequestError and
// an unknown algorithm token yields engine.UnsupportedAlgorithmError.
func (c *Codec) DecodeRequest(b []byte) (*SortRequest, error) {
	if err := c.checkSize(b); err != nil {
		return nil, err
	}
	if err := checkTrailing(b); err != nil {
		return nil, err
	}

	var (
		req          SortRequest
		algName      string
		hasAlgorithm bool
		hasData      bool
	)
	err := jsonparser.ObjectEach(b, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		switch string(key) {
		case "algorithm":
			s, err := stringField("algorithm", value, vt)
			if err != nil {
				return err
			}
			algName, hasAlgorithm = s, true
		case "column":
			s, err := stringField("column", value, vt)
			if err != nil {
				return err
			}
			req.Column = s
		case "data":
			ds, err := decodeDatasetField("data", value, vt)
			if err != nil {
				return err
			}
			req.Data, hasData = ds, true
		}
		return nil
	})
	if err != nil {
		return nil, asMalformed(err)
	}

	if !hasAlgorithm {
		return nil, malformed(nil, "missing field %q", "algorithm")
	}
	if !hasData {
		return nil, malformed(nil, "missing field %q", "data")
	}

	req.Algorithm, err = engine.ParseAlgorithm(algName)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// EncodeRequest renders req. The column field is omitted when empty.
func (c *Codec) EncodeRequest(req *SortRequest) ([]byte, error) {
	if !req.Algorithm.Valid() {
		return nil, &engine.UnsupportedAlgorithmError{Name: req.Algorithm.String()}
	}
	b := []byte(`{"algorithm":`)
	b = appendString(b, req.Algorithm.String())
	if req.Column != "" {
		b = append(b, `,"column":`...)
		b = appendString(b, req.Column)
	}
	b = append(b, `,"data":`...)
	b, err := appendDataset(b, req.Data)
	if err != nil {
		return nil, err
	}
	return append(b, '}'), nil
}

// EncodeResponse renders resp as either the success or the failure shape.
func (c *Codec) EncodeResponse(resp *SortResponse) ([]byte, error) {
	if resp.Failed() {
		b := []byte(`{"error":`)
		b = appendString(b, resp.Error)
		return append(b, '}'), nil
	}

	if !resp.Algorithm.Valid() {
		return nil, &engine.UnsupportedAlgorithmError{Name: resp.Algorithm.String()}
	}
	if resp.Elapsed < 0 {
		return nil, fmt.Errorf("negative elapsed time %s", resp.Elapsed)
	}
	b := []byte(`{"algorithm":`)
	b = appendString(b, resp.Algorithm.String())
	b = append(b, `,"time":`...)
	b = strconv.AppendFloat(b, resp.Elapsed.Seconds(), 'g', -1, 64)
	b = append(b, `,"sorted_data":`...)
	b, err := appendDataset(b, resp.SortedData)
	if err != nil {
		return nil, err
	}
	return append(b, '}'), nil
}

// DecodeResponse parses a response payload and rejects payloads that mix or
// lack both shapes.
func (c *Codec) DecodeResponse(b []byte) (*SortResponse, error) {
	if err := c.checkSize(b); err != nil {
		return nil, err
	}
	if err := checkTrailing(b); err != nil {
		return nil, err
	}

	var (
		resp    SortResponse
		algName string

		hasAlg, hasTime, hasData, hasErr bool
	)
	err := jsonparser.ObjectEach(b, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		var err error
		switch string(key) {
		case "error":
			resp.Error, err = stringField("error", value, vt)
			hasErr = true
		case "algorithm":
			algName, err = stringField("algorithm", value, vt)
			hasAlg = true
		case "time":
			resp.Elapsed, err = durationField("time", value, vt)
			hasTime = true
		case "sorted_data":
			resp.SortedData, err = decodeDatasetField("sorted_data", value, vt)
			hasData = true
		}
		return err
	})
	if err != nil {
		return nil, asMalformed(err)
	}

	if hasErr {
		if hasAlg || hasTime || hasData {
			return nil, malformed(nil, "response mixes error and result fields")
		}
		if resp.Error == "" {
			return nil, malformed(nil, "empty error message")
		}
		return &resp, nil
	}
	if !hasAlg || !hasTime || !hasData {
		return nil, malformed(nil, "response needs algorithm, time and sorted_data")
	}
	resp.Algorithm, err = engine.ParseAlgorithm(algName)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DecodeDataset parses a JSON array of records.
func DecodeDataset(b []byte) (dataset.Dataset, error) {
	if err := checkTrailing(b); err != nil {
		return nil, err
	}
	ds, err := decodeDatasetField("data", bytes.TrimSpace(b), jsonparser.Array)
	if err != nil {
		return nil, asMalformed(err)
	}
	return ds, nil
}

// EncodeDataset renders ds as a JSON array of records.
func EncodeDataset(ds dataset.Dataset) ([]byte, error) {
	return appendDataset(nil, ds)
}

// checkTrailing rejects anything but whitespace after the top-level value.
func checkTrailing(b []byte) error {
	_, _, end, err := jsonparser.Get(b)
	if err != nil {
		return malformed(err, "invalid JSON")
	}
	if len(bytes.TrimSpace(b[end:])) > 0 {
		return malformed(nil, "unexpected data after offset %d", end)
	}
	return nil
}

func asMalformed(err error) error {
	var m *MalformedRequestError
	if errors.As(err, &m) {
		return err
	}
	return malformed(err, "invalid JSON")
}

func stringField(name string, value []byte, vt jsonparser.ValueType) (string, error) {
	if vt != jsonparser.String {
		return "", malformed(nil, "field %q must be a string, got %s", name, vt)
	}
	s, err := parseString(value)
	if err != nil {
		return "", malformed(err, "field %q", name)
	}
	return s, nil
}

// parseString unescapes the body of a JSON string. Escaped surrogates that do
// not form a pair become U+FFFD, as with encoding/json.
func parseString(value []byte) (string, error) {
	if s, err := jsonparser.ParseString(value); err == nil {
		return s, nil
	}
	quoted := make([]byte, 0, len(value)+2)
	quoted = append(append(append(quoted, '"'), value...), '"')
	var s string
	if err := json.Unmarshal(quoted, &s); err != nil {
		return "", fmt.Errorf("invalid string escape: %w", err)
	}
	return s, nil
}

func durationField(name string, value []byte, vt jsonparser.ValueType) (time.Duration, error) {
	if vt != jsonparser.Number {
		return 0, malformed(nil, "field %q must be a number, got %s", name, vt)
	}
	secs, err := strconv.ParseFloat(string(value), 64)
	if err != nil {
		return 0, malformed(err, "field %q", name)
	}
	if secs < 0 || secs > math.MaxInt64/float64(time.Second) {
		return 0, malformed(nil, "field %q out of range: %v", name, secs)
	}
	return time.Duration(math.Round(secs * float64(time.Second))), nil
}

func decodeDatasetField(name string, value []byte, vt jsonparser.ValueType) (dataset.Dataset, error) {
	if vt != jsonparser.Array {
		return nil, malformed(nil, "field %q must be an array, got %s", name, vt)
	}

	ds := dataset.Dataset{}
	var recErr error
	_, err := jsonparser.ArrayEach(value, func(raw []byte, vt jsonparser.ValueType, _ int, err error) {
		if recErr != nil {
			return
		}
		if err != nil {
			recErr = malformed(err, "record %d", len(ds))
			return
		}
		if vt != jsonparser.Object {
			recErr = malformed(nil, "record %d must be an object, got %s", len(ds), vt)
			return
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			recErr = malformed(err, "record %d", len(ds))
			return
		}
		ds = append(ds, rec)
	})
	if recErr != nil {
		return nil, recErr
	}
	if err != nil {
		return nil, malformed(err, "field %q", name)
	}
	return ds, nil
}

func decodeRecord(raw []byte) (dataset.Record, error) {
	var fields []dataset.Field
	err := jsonparser.ObjectEach(raw, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		name := string(key)
		v, err := decodeValue(value, vt)
		if err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		fields = append(fields, dataset.Field{Name: name, Value: v})
		return nil
	})
	if err != nil {
		return dataset.Record{}, err
	}
	return dataset.NewRecord(fields...), nil
}

func decodeValue(value []byte, vt jsonparser.ValueType) (dataset.Value, error) {
	switch vt {
	case jsonparser.String:
		s, err := parseString(value)
		if err != nil {
			return dataset.Value{}, err
		}
		return dataset.ParseText(s), nil
	case jsonparser.Number:
		return parseNumber(string(value))
	default:
		return dataset.Value{}, fmt.Errorf("unsupported value type %s", vt)
	}
}

// parseNumber keeps integral literals as integers. Integers that overflow
// int64 fall back to float.
func parseNumber(s string) (dataset.Value, error) {
	if !isFloatLiteral(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return dataset.IntValue(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return dataset.Value{}, err
	}
	return dataset.FloatValue(f), nil
}

func isFloatLiteral(s string) bool {
	return bytes.ContainsAny([]byte(s), ".eE")
}

func appendDataset(b []byte, ds dataset.Dataset) ([]byte, error) {
	b = append(b, '[')
	for i, r := range ds {
		if i > 0 {
			b = append(b, ',')
		}
		var err error
		b, err = appendRecord(b, r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return append(b, ']'), nil
}

func appendRecord(b []byte, r dataset.Record) ([]byte, error) {
	b = append(b, '{')
	for i := 0; i < r.Len(); i++ {
		f := r.Field(i)
		if i > 0 {
			b = append(b, ',')
		}
		b = appendString(b, f.Name)
		b = append(b, ':')
		var err error
		b, err = appendValue(b, f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return append(b, '}'), nil
}

func appendValue(b []byte, v dataset.Value) ([]byte, error) {
	switch v.Kind() {
	case dataset.KindString, dataset.KindDate:
		return appendString(b, v.Text()), nil
	case dataset.KindInt:
		return strconv.AppendInt(b, v.Int(), 10), nil
	case dataset.KindFloat:
		return appendFloat(b, v.Float())
	default:
		return nil, fmt.Errorf("cannot encode %s value", v.Kind())
	}
}

// appendFloat writes the shortest exact representation of f, adding ".0"
// when it would otherwise read back as an integer.
func appendFloat(b []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("cannot encode %v as JSON", f)
	}
	start := len(b)
	b = strconv.AppendFloat(b, f, 'g', -1, 64)
	if !isFloatLiteral(string(b[start:])) {
		b = append(b, ".0"...)
	}
	return b, nil
}

func appendString(b []byte, s string) []byte {
	// Marshalling a string cannot fail.
	q, _ := json.Marshal(s)
	return append(b, q...)
}
