package settlement

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/sellerledger/backend/internal/domain/integration"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// maxDecodedSize bounds a decompressed document
const maxDecodedSize = 256 << 20

var (
	gzipMagic = []byte{0x1f, 0x8b}
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// Decode turns raw downloaded bytes into UTF-8 text: gzip content is
// decompressed, a UTF-8 BOM is stripped and non UTF-8 content is decoded as
// Windows-1252. Content that is still not text fails with ErrMalformedDocument.
func Decode(raw []byte) ([]byte, error) {
	content := raw
	if bytes.HasPrefix(content, gzipMagic) {
		inflated, err := gunzip(content)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress: %v", integration.ErrMalformedDocument, err)
		}
		content = inflated
	}

	content = bytes.TrimPrefix(content, utf8BOM)

	if !utf8.Valid(content) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), content)
		if err != nil {
			return nil, fmt.Errorf("%w: decode: %v", integration.ErrMalformedDocument, err)
		}
		content = decoded
	}

	if bytes.IndexByte(content, 0) >= 0 {
		return nil, fmt.Errorf("%w: binary content", integration.ErrMalformedDocument)
	}
	return content, nil
}

func gunzip(content []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxDecodedSize {
		return nil, fmt.Errorf("decompressed size exceeds %d bytes", maxDecodedSize)
	}
	return out, nil
}
