package snippet

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bkyoung/snipctx/internal/domain"
)

const frontMatterDelimiter = "---"

// hashLinePattern locates the verification token embedded in a snippet body.
var hashLinePattern = regexp.MustCompile("\\*\\*VERIFICATION_HASH:\\*\\* `([0-9a-fA-F]+)`")

// ParseFrontMatter splits snippet file content into its metadata record and
// body. Content without a leading front-matter block yields a zero record
// and the full content as body. The metadata keys are strict: an unknown
// key in the block is a parse error, keeping the record contractual rather
// than a free-form map.
func ParseFrontMatter(content string) (domain.FrontMatter, string, error) {
	fm := domain.FrontMatter{}
	body := content

	if block, rest, ok := splitFrontMatter(content); ok {
		dec := yaml.NewDecoder(strings.NewReader(block))
		dec.KnownFields(true)
		if err := dec.Decode(&fm); err != nil {
			return domain.FrontMatter{}, content, fmt.Errorf("parse front matter: %w", err)
		}
		body = rest
	}

	if m := hashLinePattern.FindStringSubmatch(body); m != nil {
		fm.VerificationHash = m[1]
	}

	return fm, body, nil
}

// splitFrontMatter returns the YAML block and remaining body when content
// starts with a --- delimited front-matter block.
func splitFrontMatter(content string) (block, body string, ok bool) {
	if !strings.HasPrefix(content, frontMatterDelimiter+"\n") {
		return "", "", false
	}
	rest := content[len(frontMatterDelimiter)+1:]

	closer := "\n" + frontMatterDelimiter + "\n"
	if i := strings.Index(rest, closer); i >= 0 {
		return rest[:i+1], rest[i+len(closer):], true
	}
	// Block closed at end of file with no body.
	if strings.HasSuffix(rest, "\n"+frontMatterDelimiter) {
		return rest[:len(rest)-len(frontMatterDelimiter)], "", true
	}
	return "", "", false
}

// ComposeSnippet renders a snippet file: front-matter block, verification
// hash line, then the body. The inverse of ParseFrontMatter for files this
// tool writes itself.
func ComposeSnippet(fm domain.FrontMatter, body string) (string, error) {
	block, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("render front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontMatterDelimiter + "\n")
	b.Write(block)
	b.WriteString(frontMatterDelimiter + "\n")
	if fm.VerificationHash != "" {
		fmt.Fprintf(&b, "**VERIFICATION_HASH:** `%s`\n\n", fm.VerificationHash)
	}
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return b.String(), nil
}
