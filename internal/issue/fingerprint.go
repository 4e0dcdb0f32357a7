package issue

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fingerprintPrefixLen bounds how much of the message feeds the fingerprint
// when neither category nor type is known. Trailing message details (values,
// counts) often change between runs while the prefix stays stable.
const fingerprintPrefixLen = 48

// Fingerprint derives the stable identity used to correlate the same defect
// across runs. It depends only on the normalized file name, the start line and
// the first non-empty of category, type and message prefix.
func Fingerprint(fileName string, lineStart int, category, typ, message string) string {
	key := category
	if key == "" {
		key = typ
	}
	if key == "" {
		key = messagePrefix(message)
	}

	h := sha256.New()
	h.Write([]byte(normalizeFileName(fileName)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(lineStart)))
	h.Write([]byte{0})
	h.Write([]byte(norm.NFC.String(strings.TrimSpace(key))))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// normalizeFileName folds the spellings tools use for the same path:
// backslashes, "./" prefixes and redundant separators.
func normalizeFileName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" || name == UndefinedFileName {
		return UndefinedFileName
	}
	name = strings.ReplaceAll(name, `\`, "/")
	return path.Clean(name)
}

func messagePrefix(message string) string {
	message = strings.Join(strings.Fields(message), " ")
	runes := []rune(message)
	if len(runes) > fingerprintPrefixLen {
		runes = runes[:fingerprintPrefixLen]
	}
	return string(runes)
}
