package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTikTokMatch(t *testing.T) {
	p := NewTikTok(0, 0)

	for _, link := range []string{
		"https://www.tiktok.com/@user/video/1234567890",
		"https://vt.tiktok.com/ZS8abc/",
		"https://vm.tiktok.com/ZM9xyz/",
	} {
		m := p.Match("watch " + link)
		require.NotNil(t, m, link)
		assert.Equal(t, link, m[0])
	}

	assert.Nil(t, p.Match("https://example.com/@user/video/1"))
	assert.Nil(t, p.Match("tiktok without a link"))
}

func TestAbsoluteTikTokURL(t *testing.T) {
	assert.Equal(t, "https://cdn.tikwm.com/v.mp4", absoluteTikTokURL("https://cdn.tikwm.com/v.mp4"))
	assert.Equal(t, "https://tikwm.com/video/media/play/1.mp4", absoluteTikTokURL("/video/media/play/1.mp4"))
	assert.Empty(t, absoluteTikTokURL(""))
}
