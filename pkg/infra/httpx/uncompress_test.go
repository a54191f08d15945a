package httpx

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipCompress(data []byte) []byte {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write(data)
	_ = gz.Close()
	return buf.Bytes()
}

func brCompress(data []byte) []byte {
	var buf bytes.Buffer
	br := brotli.NewWriter(&buf)
	_, _ = br.Write(data)
	_ = br.Close()
	return buf.Bytes()
}

func zstdCompress(data []byte) []byte {
	var buf bytes.Buffer
	zw, _ := zstd.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}

func zlibDeflateCompress(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}

func rawDeflateCompress(data []byte) []byte {
	var buf bytes.Buffer
	dw, _ := flate.NewWriter(&buf, flate.DefaultCompression)
	_, _ = dw.Write(data)
	_ = dw.Close()
	return buf.Bytes()
}

func TestDecodeChain(t *testing.T) {
	payload := []byte(`{"predictions":[[0.1,0.2,0.3,0.4,0.5,0.6]]}`)

	tests := []struct {
		name     string
		encoding string
		body     []byte
		changed  bool
	}{
		{"none", "", payload, false},
		{"identity", "identity", payload, false},
		{"gzip", "gzip", gzipCompress(payload), true},
		{"brotli", "br", brCompress(payload), true},
		{"zstd", "zstd", zstdCompress(payload), true},
		{"zlib deflate", "deflate", zlibDeflateCompress(payload), true},
		{"raw deflate", "deflate", rawDeflateCompress(payload), true},
		{"chained", "gzip, br", brCompress(gzipCompress(payload)), true},
		{"mixed case", " GZIP ", gzipCompress(payload), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, changed, err := DecodeChain(tt.encoding, tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, payload, out)
		})
	}
}

func TestDecodeChain_Errors(t *testing.T) {
	_, _, err := DecodeChain("lzma", []byte("x"))
	assert.Error(t, err)

	_, _, err = DecodeChain("gzip", []byte("not gzip"))
	assert.Error(t, err)
}
