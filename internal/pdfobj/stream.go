package pdfobj

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedFilter is returned when a stream uses an encoding this
// package cannot decode.
var ErrUnsupportedFilter = errors.New("pdfobj: unsupported stream filter")

// Decoded returns the stream data with any filters removed. rowsize is the
// byte width of one predictor row; it is only consulted when the stream uses
// a PNG predictor (cross-reference streams do). The stream itself is left
// untouched.
func (s Stream) Decoded(rowsize int) ([]byte, error) {
	var filters []Name
	var parms []Dict

	switch f := s.Dict["Filter"].(type) {
	case nil:
		return s.Data, nil
	case Name:
		filters = []Name{f}
		if p, ok := s.Dict["DecodeParms"].(Dict); ok {
			parms = []Dict{p}
		}
	case Array:
		for _, v := range f {
			n, ok := v.(Name)
			if !ok {
				return nil, fmt.Errorf("pdfobj: stream /Filter entry is %T, not Name", v)
			}
			filters = append(filters, n)
		}
		if pa, ok := s.Dict["DecodeParms"].(Array); ok {
			for _, v := range pa {
				p, _ := v.(Dict)
				parms = append(parms, p)
			}
		}
	default:
		return nil, fmt.Errorf("pdfobj: stream /Filter is %T", f)
	}

	data := s.Data
	for i, filter := range filters {
		var dp Dict
		if i < len(parms) {
			dp = parms[i]
		}
		switch filter {
		case "FlateDecode":
			var err error
			if data, err = flateDecode(data, dp, rowsize); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: /%s", ErrUnsupportedFilter, filter)
		}
	}
	return data, nil
}

// FlateEncode compresses data with zlib, the encoding matching a
// /FlateDecode filter entry.
func FlateEncode(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}

func flateDecode(data []byte, parms Dict, rowsize int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pdfobj: FlateDecode: %v", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, fmt.Errorf("pdfobj: FlateDecode: %v", err)
	}
	_ = zr.Close()
	out := buf.Bytes()

	if parms == nil {
		return out, nil
	}
	switch pred := parms.Int("Predictor", 1); {
	case pred == 1:
		return out, nil
	case pred >= 10 && pred <= 15:
		// PNG predictors all decode the same way.
		if columns := parms.Int("Columns", 0); columns > 0 {
			rowsize = columns
		}
		if rowsize <= 0 {
			return nil, errors.New("pdfobj: predictor without a row size")
		}
		return unpredictPNG(out, rowsize)
	default:
		return nil, fmt.Errorf("pdfobj: FlateDecode predictor %d not supported", parms.Int("Predictor", 1))
	}
}

// unpredictPNG reverses the PNG row predictor. Each row is prefixed with a
// byte naming the filter applied to it.
func unpredictPNG(data []byte, rowsize int) ([]byte, error) {
	if len(data)%(rowsize+1) != 0 {
		return nil, errors.New("pdfobj: predicted data length is not a multiple of row size")
	}
	rows := len(data) / (rowsize + 1)
	out := make([]byte, 0, rows*rowsize)
	for row := 0; row < rows; row++ {
		in := data[row*(rowsize+1):]
		switch in[0] {
		case 0: // None
			out = append(out, in[1:rowsize+1]...)
		case 2: // Up
			prev := len(out) - rowsize
			for b := 0; b < rowsize; b++ {
				var up byte
				if prev >= 0 {
					up = out[prev+b]
				}
				out = append(out, in[1+b]+up)
			}
		default:
			return nil, fmt.Errorf("pdfobj: PNG filter type %d not supported", in[0])
		}
	}
	return out, nil
}
