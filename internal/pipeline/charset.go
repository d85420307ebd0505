package pipeline

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// minDetectConfidence is the chardet confidence below which a guess is
// not trusted.
const minDetectConfidence = 30

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText converts HTML or Markdown bytes to UTF-8. The encoding comes
// from a byte order mark, a <meta charset> declaration or a valid UTF-8
// scan; otherwise it is detected statistically. Content with NUL bytes
// (outside UTF-16) or invalid UTF-8 that no detected charset explains is
// rejected with ErrInvalidEncoding. The returned name is the WHATWG label
// of the encoding used.
func DecodeText(content []byte) (text, name string, err error) {
	if bytes.IndexByte(content, 0) >= 0 && !bytes.HasPrefix(content, bomUTF16LE) && !bytes.HasPrefix(content, bomUTF16BE) {
		return "", "", fmt.Errorf("%w: NUL byte in text content", ErrInvalidEncoding)
	}

	enc, name, certain := charset.DetermineEncoding(content, "")
	switch {
	case certain:
	case name == "utf-8" && !utf8.Valid(content):
		if enc, name, err = detectCharset(content); err != nil {
			return "", "", err
		}
	case name == "windows-1252":
		// Either declared or the prescan default. Valid UTF-8 wins over
		// both; detection only replaces the default.
		if utf8.Valid(content) {
			return strings.TrimPrefix(string(content), "\ufeff"), "utf-8", nil
		}
		if !declaresCharset(content) {
			if e, n, derr := detectCharset(content); derr == nil {
				enc, name = e, n
			}
		}
	}

	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return "", "", fmt.Errorf("%w: decoding %s: %v", ErrInvalidEncoding, name, err)
	}
	return strings.TrimPrefix(string(decoded), "\ufeff"), name, nil
}

// metaCharset matches a charset declaration in the prescan window.
var metaCharset = regexp.MustCompile(`(?i)<meta[^>]+charset`)

// prescanLimit is how far the HTML prescan looks for a declaration.
const prescanLimit = 1024

func declaresCharset(content []byte) bool {
	return metaCharset.Match(content[:min(len(content), prescanLimit)])
}

// detectCharset guesses the encoding of content that is not valid UTF-8.
func detectCharset(content []byte) (encoding.Encoding, string, error) {
	res, err := chardet.NewTextDetector().DetectBest(content)
	if err != nil || res == nil || res.Confidence < minDetectConfidence {
		return nil, "", fmt.Errorf("%w: charset could not be detected", ErrInvalidEncoding)
	}
	enc, err := htmlindex.Get(res.Charset)
	if err != nil {
		return nil, "", fmt.Errorf("%w: unsupported charset %q", ErrInvalidEncoding, res.Charset)
	}
	name, err := htmlindex.Name(enc)
	if err != nil || name == "utf-8" {
		return nil, "", fmt.Errorf("%w: invalid UTF-8", ErrInvalidEncoding)
	}
	return enc, name, nil
}
