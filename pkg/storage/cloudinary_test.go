package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPublicID(t *testing.T) {
	cases := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v123456789/notices/sample.jpg": "notices/sample",
		"https://res.cloudinary.com/demo/image/upload/notices/poster.webp":           "notices/poster",
		"https://res.cloudinary.com/demo/image/upload/venue-map.png":                 "venue-map",
		"https://example.com/no-upload-segment/file.png":                             "",
		"https://res.cloudinary.com/demo/image/upload/":                              "",
		"::not a url":                                                                "",
	}

	for in, want := range cases {
		require.Equal(t, want, ExtractPublicID(in), in)
	}
}
