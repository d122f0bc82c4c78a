package flux

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

const (
	SizeDefault = "default"
	SizeWide    = "wide"
	SizeTall    = "tall"
	SizeSmall   = "small"
)

var sizePresets = map[string][2]int{
	SizeDefault: {1024, 1024},
	SizeWide:    {1920, 1024},
	SizeTall:    {1024, 1920},
	SizeSmall:   {512, 512},
}

var nonWordPattern = regexp.MustCompile(`\W+`)

// SizeDimensions resolves a size preset name to width and height.
// Unknown names fall back to the default square size.
func SizeDimensions(size string) (int, int) {
	if dims, ok := sizePresets[size]; ok {
		return dims[0], dims[1]
	}
	return sizePresets[SizeDefault][0], sizePresets[SizeDefault][1]
}

// RandomDimensions picks square, wide, or tall with equal probability.
func RandomDimensions() (int, int) {
	dimensions := [][2]int{
		{1024, 1024},
		{1920, 1024},
		{1024, 1920},
	}
	dims := dimensions[rand.Intn(len(dimensions))]
	return dims[0], dims[1]
}

// AdjustToMultipleOf64 rounds a dimension up to the next multiple of 64.
// Non-positive values become 64.
func AdjustToMultipleOf64(value int) int {
	if value <= 0 {
		return 64
	}
	return ((value + 63) / 64) * 64
}

// RandomSeed returns a seed in the 32-bit range the image server accepts.
func RandomSeed() int64 {
	return rand.Int63n(1 << 32)
}

// UniqueFilename builds an image filename from the sanitized prompt
// and a random number, e.g. "483920_acatinspace.png".
func UniqueFilename(prompt string) string {
	if len(prompt) > 40 {
		prompt = prompt[:40]
	}
	safePrompt := strings.ToLower(nonWordPattern.ReplaceAllString(prompt, ""))
	return fmt.Sprintf("%d_%s.png", 100000+rand.Intn(900000), safePrompt)
}
