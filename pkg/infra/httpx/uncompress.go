package httpx

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// AcceptEncoding lists what DecodeChain can undo.
const AcceptEncoding = "gzip, br, zstd, deflate"

// DecodeChain decodes a body according to its Content-Encoding value. Chained
// encodings ("gzip, br") are undone last to first. Deflate accepts both zlib-wrapped
// and raw streams.
func DecodeChain(contentEncoding string, body []byte) ([]byte, bool, error) {
	if contentEncoding == "" {
		return body, false, nil
	}
	encodings := strings.Split(contentEncoding, ",")
	changed := false
	for i := len(encodings) - 1; i >= 0; i-- {
		var (
			out []byte
			err error
		)
		switch enc := strings.TrimSpace(strings.ToLower(encodings[i])); enc {
		case "br":
			out, err = io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		case "gzip":
			out, err = readAllClose(gzip.NewReader(bytes.NewReader(body)))
		case "zstd":
			var dec *zstd.Decoder
			dec, err = zstd.NewReader(bytes.NewReader(body))
			if err == nil {
				out, err = io.ReadAll(dec)
				dec.Close()
			}
		case "deflate":
			out, err = readAllClose(zlib.NewReader(bytes.NewReader(body)))
			if err != nil {
				out, err = readAllClose(flate.NewReader(bytes.NewReader(body)), nil)
			}
		case "identity", "":
			continue
		default:
			return nil, false, fmt.Errorf("unsupported content-encoding: %q", enc)
		}
		if err != nil {
			return nil, false, fmt.Errorf("decode %s body: %w", strings.TrimSpace(encodings[i]), err)
		}
		body = out
		changed = true
	}
	return body, changed, nil
}

func readAllClose(r io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	cerr := r.Close()
	if err != nil {
		return nil, err
	}
	return out, cerr
}
