package parsers

import "encoding/base64"

// looksBase64 applies a cheap heuristic: only base64 alphabet characters,
// length a multiple of 4 and long enough that short plain words do not
// trigger false positives.
func looksBase64(data []byte) bool {
	if len(data) <= 20 || len(data)%4 != 0 {
		return false
	}
	padding := 0
	for i, b := range data {
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9', b == '+', b == '/':
			if padding > 0 {
				return false
			}
		case b == '=':
			if i < len(data)-2 {
				return false
			}
			padding++
		default:
			return false
		}
	}
	return true
}

// MaybeDecodeBase64 decodes the payload when it looks base64-wrapped,
// returning the input unchanged otherwise.
func MaybeDecodeBase64(data []byte) []byte {
	trimmed := trimASCIISpace(data)
	if !looksBase64(trimmed) {
		return data
	}
	decoded, err := base64.StdEncoding.DecodeString(string(trimmed))
	if err != nil {
		return data
	}
	return decoded
}

func trimASCIISpace(data []byte) []byte {
	start, end := 0, len(data)
	for start < end && isSpace(data[start]) {
		start++
	}
	for end > start && isSpace(data[end-1]) {
		end--
	}
	return data[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}
