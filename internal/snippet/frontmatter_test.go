package snippet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/snipctx/internal/domain"
)

const sampleSnippet = `---
description: Docker build and run cheat sheet
SNIPPET_NAME: docker
ANNOUNCE_USAGE: true
---
**VERIFICATION_HASH:** ` + "`deadbeefcafe0123`" + `

# Docker

Use multi-stage builds.
`

func TestParseFrontMatter(t *testing.T) {
	fm, body, err := ParseFrontMatter(sampleSnippet)
	require.NoError(t, err)

	assert.Equal(t, "Docker build and run cheat sheet", fm.Description)
	assert.Equal(t, "docker", fm.SnippetName)
	assert.True(t, fm.AnnounceUsage)
	assert.Equal(t, "deadbeefcafe0123", fm.VerificationHash)

	// The hash line stays in the body so injection carries the token.
	assert.Contains(t, body, "**VERIFICATION_HASH:**")
	assert.Contains(t, body, "# Docker")
	assert.NotContains(t, body, "SNIPPET_NAME")
}

func TestParseFrontMatterWithoutBlock(t *testing.T) {
	fm, body, err := ParseFrontMatter("# Plain markdown\n\nno metadata here\n")
	require.NoError(t, err)
	assert.Equal(t, domain.FrontMatter{}, fm)
	assert.Equal(t, "# Plain markdown\n\nno metadata here\n", body)
}

func TestParseFrontMatterBlockClosedAtEOF(t *testing.T) {
	fm, body, err := ParseFrontMatter("---\nSNIPPET_NAME: empty\n---")
	require.NoError(t, err)
	assert.Equal(t, "empty", fm.SnippetName)
	assert.Empty(t, body)
}

func TestParseFrontMatterRejectsUnknownKeys(t *testing.T) {
	_, _, err := ParseFrontMatter("---\nSNIPPET_NAME: x\nsurprise: true\n---\nbody\n")
	assert.Error(t, err)
}

func TestParseFrontMatterHorizontalRuleIsNotFrontMatter(t *testing.T) {
	// A markdown horizontal rule mid-document must not be read as a block
	// closer for content that never opened one.
	content := "intro\n---\nmore\n"
	fm, body, err := ParseFrontMatter(content)
	require.NoError(t, err)
	assert.Equal(t, domain.FrontMatter{}, fm)
	assert.Equal(t, content, body)
}

func TestComposeParseRoundTrip(t *testing.T) {
	fm := domain.FrontMatter{
		Description:      "tmux session handling",
		SnippetName:      "tmux",
		AnnounceUsage:    true,
		VerificationHash: "0123456789abcdef",
	}

	rendered, err := ComposeSnippet(fm, "# Tmux\n\nPrefix is C-b.")
	require.NoError(t, err)

	parsed, body, err := ParseFrontMatter(rendered)
	require.NoError(t, err)
	assert.Equal(t, fm, parsed)
	assert.Contains(t, body, "**VERIFICATION_HASH:** `0123456789abcdef`")
	assert.Contains(t, body, "# Tmux")
}

func TestComposeWithoutHash(t *testing.T) {
	rendered, err := ComposeSnippet(domain.FrontMatter{SnippetName: "x"}, "body")
	require.NoError(t, err)
	assert.NotContains(t, rendered, "VERIFICATION_HASH")
	assert.Contains(t, rendered, "body\n")
}
