package wspulse

import (
	"encoding/json"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// PayloadFormat selects the wire encoding of an application payload. The set
// is closed: peers agree on a format out-of-band, nothing is negotiated or
// sniffed from the bytes.
type PayloadFormat uint8

const (
	FormatUnknown PayloadFormat = iota
	FormatJSON
	FormatCBOR
)

func (f PayloadFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	default:
		return "unknown"
	}
}

// cborEnc uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys,
// smallest integer encoding, no indefinite-length items. The same logical
// value always produces identical bytes.
var cborEnc cbor.EncMode

// cborDec accepts standard CBOR. Any-typed targets decode maps as
// map[string]any instead of the CBOR default map[any]any.
var cborDec cbor.DecMode

func init() {
	var err error

	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wspulse: cbor encoder initialization failed: " + err.Error())
	}

	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("wspulse: cbor decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v under the given format. Failures wrap ErrEncode with the
// underlying cause.
func Marshal(v any, format PayloadFormat) ([]byte, error) {
	switch format {
	case FormatJSON:
		bts, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(ErrEncode, err.Error())
		}
		return bts, nil
	case FormatCBOR:
		bts, err := cborEnc.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(ErrEncode, err.Error())
		}
		return bts, nil
	default:
		return nil, errors.Wrapf(ErrEncode, "unsupported payload format %d", format)
	}
}

// Unmarshal decodes data into v under the given format. Malformed input never
// panics; failures wrap ErrDecode with the underlying cause.
func Unmarshal(data []byte, v any, format PayloadFormat) error {
	if len(data) == 0 {
		return errors.Wrap(ErrDecode, "empty payload")
	}

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, v); err != nil {
			return errors.Wrap(ErrDecode, err.Error())
		}
		return nil
	case FormatCBOR:
		if err := cborDec.Unmarshal(data, v); err != nil {
			return errors.Wrap(ErrDecode, err.Error())
		}
		return nil
	default:
		return errors.Wrapf(ErrDecode, "unsupported payload format %d", format)
	}
}
