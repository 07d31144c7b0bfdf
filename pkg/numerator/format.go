package numerator

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// blockSize is how many numeric suffixes a prefix carries (0001..9999).
	blockSize = 9999

	minPrefixLen = 2
	alphabet     = 26
)

// Format renders the n-th order number of a garage (n starts at 1).
//
//	1 -> AA0001, 9999 -> AA9999, 10000 -> AB0001, 676*9999+1 -> AAA0001
func Format(n int64) string {
	if n < 1 {
		n = 1
	}
	block := (n - 1) / blockSize
	suffix := (n-1)%blockSize + 1
	return fmt.Sprintf("%s%04d", prefixForBlock(block), suffix)
}

// Parse returns the sequence position of a formatted order number.
func Parse(code string) (int64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	split := strings.IndexFunc(code, func(r rune) bool { return r >= '0' && r <= '9' })
	if split < minPrefixLen || len(code)-split != 4 {
		return 0, fmt.Errorf("invalid order number %q", code)
	}

	letters, digits := code[:split], code[split:]
	suffix, err := strconv.Atoi(digits)
	if err != nil || suffix < 1 || suffix > blockSize {
		return 0, fmt.Errorf("invalid order number suffix %q", digits)
	}

	var offset, width int64 = 0, 1
	for l := minPrefixLen; l < len(letters); l++ {
		offset += pow26(l)
	}
	var value int64
	for i := len(letters) - 1; i >= 0; i-- {
		c := letters[i]
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid order number prefix %q", letters)
		}
		value += int64(c-'A') * width
		width *= alphabet
	}

	return (offset+value)*blockSize + int64(suffix), nil
}

// Successor returns the number that follows code, e.g. AZ9999 -> BA0001.
func Successor(code string) (string, error) {
	n, err := Parse(code)
	if err != nil {
		return "", err
	}
	return Format(n + 1), nil
}

func prefixForBlock(block int64) string {
	length := minPrefixLen
	for block >= pow26(length) {
		block -= pow26(length)
		length++
	}
	buf := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		buf[i] = byte('A' + block%alphabet)
		block /= alphabet
	}
	return string(buf)
}

func pow26(n int) int64 {
	r := int64(1)
	for i := 0; i < n; i++ {
		r *= alphabet
	}
	return r
}
