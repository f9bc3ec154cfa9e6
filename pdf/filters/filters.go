// Package filters decodes and encodes PDF stream data. The decode side
// has to handle whatever /Filter chains arrive in input documents; the
// encode side only ever produces FlateDecode for new streams, but the
// text filters are kept for completeness.
package filters

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var (
	ErrUnsupportedFilter = errors.New("unsupported filter")
	ErrDecodeFailed      = errors.New("decode failed")
)

type filterFunc func(data []byte, params map[string]interface{}) ([]byte, error)

// Filter names map to their decoders, including the inline-image
// abbreviations some producers emit.
var decoders = map[string]filterFunc{
	"FlateDecode":     flateDecode,
	"Fl":              flateDecode,
	"ASCIIHexDecode":  hexDecode,
	"AHx":             hexDecode,
	"ASCII85Decode":   a85Decode,
	"A85":             a85Decode,
	"LZWDecode":       lzwDecode,
	"LZW":             lzwDecode,
	"RunLengthDecode": runLengthDecode,
	"RL":              runLengthDecode,
}

var encoders = map[string]filterFunc{
	"FlateDecode":     flateEncode,
	"ASCIIHexDecode":  hexEncode,
	"ASCII85Decode":   a85Encode,
	"RunLengthDecode": runLengthEncode,
}

// DecodeStream runs stream data through a filter chain in order.
func DecodeStream(data []byte, filters []string, decodeParms []map[string]interface{}) ([]byte, error) {
	result := data
	for i, name := range filters {
		decode, ok := decoders[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
		}
		var params map[string]interface{}
		if i < len(decodeParms) {
			params = decodeParms[i]
		}
		var err error
		if result, err = decode(result, params); err != nil {
			return nil, fmt.Errorf("filter %s decode failed: %w", name, err)
		}
	}
	return result, nil
}

// EncodeStream applies a filter chain for writing. Filters run in
// reverse so the first named filter is the outermost encoding.
func EncodeStream(data []byte, filters []string, encodeParms []map[string]interface{}) ([]byte, error) {
	result := data
	for i := len(filters) - 1; i >= 0; i-- {
		name := filters[i]
		encode, ok := encoders[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
		}
		var params map[string]interface{}
		if i < len(encodeParms) {
			params = encodeParms[i]
		}
		var err error
		if result, err = encode(result, params); err != nil {
			return nil, fmt.Errorf("filter %s encode failed: %w", name, err)
		}
	}
	return result, nil
}

func flateDecode(data []byte, params map[string]interface{}) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return applyPredictor(buf.Bytes(), params)
}

func flateEncode(data []byte, _ map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("flate encode failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flate encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// applyPredictor undoes the PNG row predictors used by cross-reference
// streams. Predictor 1 and the TIFF predictor pass the data through.
func applyPredictor(data []byte, params map[string]interface{}) ([]byte, error) {
	predictor, _ := params["Predictor"].(int)
	if predictor < 10 || predictor > 15 {
		return data, nil
	}

	columns := 1
	if c, ok := params["Columns"].(int); ok {
		columns = c
	}
	colors := 1
	if c, ok := params["Colors"].(int); ok {
		colors = c
	}
	bitsPerComponent := 8
	if b, ok := params["BitsPerComponent"].(int); ok {
		bitsPerComponent = b
	}

	bytesPerPixel := (colors*bitsPerComponent + 7) / 8
	rowLength := (columns*colors*bitsPerComponent+7)/8 + 1 // +1 for the filter byte

	return decodePNGRows(data, rowLength, bytesPerPixel), nil
}

func decodePNGRows(data []byte, rowLength, bytesPerPixel int) []byte {
	if len(data) == 0 || rowLength < 2 {
		return data
	}

	output := make([]byte, 0, len(data))
	prevRow := make([]byte, rowLength-1)

	for i := 0; i+rowLength <= len(data); i += rowLength {
		filterType := data[i]
		row := data[i+1 : i+rowLength]
		decoded := make([]byte, len(row))

		left := func(j int) byte {
			if j >= bytesPerPixel {
				return decoded[j-bytesPerPixel]
			}
			return 0
		}
		upLeft := func(j int) byte {
			if j >= bytesPerPixel {
				return prevRow[j-bytesPerPixel]
			}
			return 0
		}

		switch filterType {
		case 1: // Sub
			for j := range row {
				decoded[j] = row[j] + left(j)
			}
		case 2: // Up
			for j := range row {
				decoded[j] = row[j] + prevRow[j]
			}
		case 3: // Average
			for j := range row {
				decoded[j] = row[j] + byte((int(left(j))+int(prevRow[j]))/2)
			}
		case 4: // Paeth
			for j := range row {
				decoded[j] = row[j] + paeth(left(j), prevRow[j], upLeft(j))
			}
		default: // None
			copy(decoded, row)
		}

		output = append(output, decoded...)
		copy(prevRow, decoded)
	}

	return output
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))

	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func hexDecode(data []byte, _ map[string]interface{}) ([]byte, error) {
	var cleaned bytes.Buffer
	for _, b := range data {
		if b == '>' {
			break
		}
		if !isWhitespace(b) {
			cleaned.WriteByte(b)
		}
	}

	hexStr := cleaned.String()
	if len(hexStr)%2 != 0 {
		hexStr += "0"
	}
	return hex.DecodeString(hexStr)
}

func hexEncode(data []byte, _ map[string]interface{}) ([]byte, error) {
	return []byte(hex.EncodeToString(data) + ">"), nil
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func a85Decode(data []byte, _ map[string]interface{}) ([]byte, error) {
	if end := bytes.Index(data, []byte("~>")); end != -1 {
		data = data[:end]
	}

	var cleaned bytes.Buffer
	for _, b := range data {
		if !isWhitespace(b) {
			cleaned.WriteByte(b)
		}
	}

	var buf bytes.Buffer
	dec := ascii85.NewDecoder(bytes.NewReader(cleaned.Bytes()))
	if _, err := io.Copy(&buf, dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return buf.Bytes(), nil
}

func a85Encode(data []byte, _ map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := ascii85.NewEncoder(&buf)
	if _, err := enc.Write(data); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("~>")
	return buf.Bytes(), nil
}

// lzwDecode implements the early-change LZW variant PDF uses, which is
// not what compress/lzw produces.
func lzwDecode(data []byte, params map[string]interface{}) ([]byte, error) {
	earlyChange := 1
	if ec, ok := params["EarlyChange"].(int); ok {
		earlyChange = ec
	}

	const clearCode = 256
	const eodCode = 257

	newDict := func() map[int][]byte {
		d := make(map[int][]byte, 4096)
		for i := 0; i < 256; i++ {
			d[i] = []byte{byte(i)}
		}
		return d
	}

	dict := newDict()
	nextCode := 258
	codeLen := 9

	bitPos := 0
	readCode := func() int {
		if bitPos+codeLen > len(data)*8 {
			return eodCode
		}
		code := 0
		for i := 0; i < codeLen; i++ {
			byteIdx := (bitPos + i) / 8
			bitIdx := 7 - ((bitPos + i) % 8)
			if (data[byteIdx]>>bitIdx)&1 == 1 {
				code |= 1 << (codeLen - 1 - i)
			}
		}
		bitPos += codeLen
		return code
	}

	var output bytes.Buffer
	var prevSeq []byte

	for {
		code := readCode()
		if code == eodCode {
			break
		}
		if code == clearCode {
			dict = newDict()
			nextCode = 258
			codeLen = 9
			prevSeq = nil
			continue
		}

		var seq []byte
		if s, ok := dict[code]; ok {
			seq = s
		} else if code == nextCode && prevSeq != nil {
			seq = append(prevSeq, prevSeq[0])
		} else {
			return nil, fmt.Errorf("invalid LZW code: %d", code)
		}

		output.Write(seq)

		if prevSeq != nil {
			dict[nextCode] = append(prevSeq, seq[0])
			nextCode++

			if nextCode >= (1<<codeLen)-earlyChange && codeLen < 12 {
				codeLen++
			}
		}
		prevSeq = seq
	}

	return applyPredictor(output.Bytes(), params)
}

func runLengthDecode(data []byte, _ map[string]interface{}) ([]byte, error) {
	var output bytes.Buffer
	i := 0

	for i < len(data) {
		length := int(data[i])
		i++

		switch {
		case length == 128: // EOD
			return output.Bytes(), nil
		case length < 128:
			count := length + 1
			if i+count > len(data) {
				return nil, fmt.Errorf("%w: truncated run-length data", ErrDecodeFailed)
			}
			output.Write(data[i : i+count])
			i += count
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("%w: truncated run-length data", ErrDecodeFailed)
			}
			for j := 0; j < 257-length; j++ {
				output.WriteByte(data[i])
			}
			i++
		}
	}

	return output.Bytes(), nil
}

func runLengthEncode(data []byte, _ map[string]interface{}) ([]byte, error) {
	var output bytes.Buffer
	i := 0

	for i < len(data) {
		runStart := i
		for i < len(data)-1 && data[i] == data[i+1] && i-runStart < 127 {
			i++
		}

		if runLength := i - runStart + 1; runLength > 1 {
			output.WriteByte(byte(257 - runLength))
			output.WriteByte(data[runStart])
			i++
			continue
		}

		literalStart := i
		for i < len(data) && (i == len(data)-1 || data[i] != data[i+1]) && i-literalStart < 127 {
			i++
		}
		output.WriteByte(byte(i - literalStart - 1))
		output.Write(data[literalStart:i])
	}

	output.WriteByte(128) // EOD
	return output.Bytes(), nil
}
