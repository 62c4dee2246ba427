// Package util provides common utility functions
package util

import (
	"fmt"
	"strings"
	"testing"

	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParseImageLinks(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []domain.ImageReference
	}{
		{
			name:    "simple embed",
			content: "Image: ![[cat.png]]",
			expected: []domain.ImageReference{
				{RawMatch: "![[cat.png]]", PathOrURL: "cat.png", Syntax: domain.SyntaxEmbedBracket},
			},
		},
		{
			name:    "embed with display hint",
			content: "![[cat.png|400]]",
			expected: []domain.ImageReference{
				{RawMatch: "![[cat.png|400]]", PathOrURL: "cat.png", Syntax: domain.SyntaxEmbedBracket},
			},
		},
		{
			name:    "embed with folder",
			content: "![[assets/img/cat.png]]",
			expected: []domain.ImageReference{
				{RawMatch: "![[assets/img/cat.png]]", PathOrURL: "assets/img/cat.png", Syntax: domain.SyntaxEmbedBracket},
			},
		},
		{
			name:    "inline local",
			content: "see ![a cat](images/cat.png) here",
			expected: []domain.ImageReference{
				{RawMatch: "![a cat](images/cat.png)", PathOrURL: "images/cat.png", Syntax: domain.SyntaxInlineLink},
			},
		},
		{
			name:    "inline remote https",
			content: "![cat](https://bucket.example.com/1-cat.png?Expires=1)",
			expected: []domain.ImageReference{
				{RawMatch: "![cat](https://bucket.example.com/1-cat.png?Expires=1)", PathOrURL: "https://bucket.example.com/1-cat.png?Expires=1", Syntax: domain.SyntaxInlineLink, IsRemote: true},
			},
		},
		{
			name:    "inline remote http",
			content: "![](http://example.com/a.png)",
			expected: []domain.ImageReference{
				{RawMatch: "![](http://example.com/a.png)", PathOrURL: "http://example.com/a.png", Syntax: domain.SyntaxInlineLink, IsRemote: true},
			},
		},
		{
			name:    "inline angle bracket target with spaces",
			content: "![x](<my photo.png>)",
			expected: []domain.ImageReference{
				{RawMatch: "![x](<my photo.png>)", PathOrURL: "my photo.png", Syntax: domain.SyntaxInlineLink},
			},
		},
		{
			name:    "inline with title",
			content: `![x](cat.png "A cat")`,
			expected: []domain.ImageReference{
				{RawMatch: `![x](cat.png "A cat")`, PathOrURL: "cat.png", Syntax: domain.SyntaxInlineLink},
			},
		},
		{
			name:    "mixed order preserved",
			content: "![b](b.png) then ![[a.png]] then ![c](https://x/c.png)",
			expected: []domain.ImageReference{
				{RawMatch: "![b](b.png)", PathOrURL: "b.png", Syntax: domain.SyntaxInlineLink},
				{RawMatch: "![[a.png]]", PathOrURL: "a.png", Syntax: domain.SyntaxEmbedBracket},
				{RawMatch: "![c](https://x/c.png)", PathOrURL: "https://x/c.png", Syntax: domain.SyntaxInlineLink, IsRemote: true},
			},
		},
		{
			name:    "duplicates are all returned",
			content: "![[a.png]] and ![[a.png]]",
			expected: []domain.ImageReference{
				{RawMatch: "![[a.png]]", PathOrURL: "a.png", Syntax: domain.SyntaxEmbedBracket},
				{RawMatch: "![[a.png]]", PathOrURL: "a.png", Syntax: domain.SyntaxEmbedBracket},
			},
		},

		// Should NOT capture
		{name: "wiki link without bang", content: "[[note]]", expected: nil},
		{name: "plain markdown link", content: "[text](https://example.com)", expected: nil},
		{name: "unterminated embed", content: "![[cat.png", expected: nil},
		{name: "unterminated inline", content: "![cat](cat.png", expected: nil},
		{name: "embed split by newline", content: "![[cat\n.png]]", expected: nil},
		{name: "empty content", content: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseImageLinks(tt.content)

			if len(result) != len(tt.expected) {
				t.Errorf("ParseImageLinks(%q) returned %d refs, want %d", tt.content, len(result), len(tt.expected))
				t.Errorf("Got: %+v", result)
				return
			}

			for i, ref := range result {
				want := tt.expected[i]
				if ref.RawMatch != want.RawMatch {
					t.Errorf("Ref[%d].RawMatch = %q, want %q", i, ref.RawMatch, want.RawMatch)
				}
				if ref.PathOrURL != want.PathOrURL {
					t.Errorf("Ref[%d].PathOrURL = %q, want %q", i, ref.PathOrURL, want.PathOrURL)
				}
				if ref.Syntax != want.Syntax {
					t.Errorf("Ref[%d].Syntax = %v, want %v", i, ref.Syntax, want.Syntax)
				}
				if ref.IsRemote != want.IsRemote {
					t.Errorf("Ref[%d].IsRemote = %v, want %v", i, ref.IsRemote, want.IsRemote)
				}
				if tt.content[ref.Offset:ref.Offset+len(ref.RawMatch)] != ref.RawMatch {
					t.Errorf("Ref[%d].Offset %d does not point at raw match", i, ref.Offset)
				}
			}
		})
	}
}

func TestParseImageLinks_DoesNotMutate(t *testing.T) {
	content := "x ![[a.png]] y ![b](b.png)"
	first := ParseImageLinks(content)
	second := ParseImageLinks(content)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 refs on both runs, got %d and %d", len(first), len(second))
	}
	if content != "x ![[a.png]] y ![b](b.png)" {
		t.Fatalf("content changed")
	}
}

func TestLocalImageLinks(t *testing.T) {
	content := "![[a.png]] ![r](https://x/r.png) ![l](l.jpg)"
	refs := LocalImageLinks(content)
	if len(refs) != 2 {
		t.Fatalf("expected 2 local refs, got %d", len(refs))
	}
	if refs[0].PathOrURL != "a.png" || refs[1].PathOrURL != "l.jpg" {
		t.Errorf("unexpected refs: %+v", refs)
	}
}

func TestParseRemoteInlineImages(t *testing.T) {
	content := "![a](https://h/1-a.png?x=1) ![[b.png]] ![c](c.png) ![d](http://h/d.gif)"
	imgs := ParseRemoteInlineImages(content)
	if len(imgs) != 2 {
		t.Fatalf("expected 2 remote images, got %d", len(imgs))
	}
	if imgs[0].Alt != "a" || imgs[0].URL != "https://h/1-a.png?x=1" {
		t.Errorf("unexpected first image: %+v", imgs[0])
	}
	if imgs[1].URL != "http://h/d.gif" {
		t.Errorf("unexpected second image: %+v", imgs[1])
	}
}

// k well-formed references separated by arbitrary plain text yield exactly k
// entries in order, each classified by scheme
func TestProperty_ParseImageLinksCountAndOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	type piece struct {
		kind   int
		name   string
		remote bool
	}

	pieceGen := gopter.CombineGens(
		gen.IntRange(0, 1),
		gen.Identifier(),
		gen.Bool(),
	).Map(func(v []interface{}) piece {
		return piece{kind: v[0].(int), name: v[1].(string), remote: v[2].(bool)}
	})

	properties.Property("k references produce k ordered entries", prop.ForAll(
		func(pieces []piece, filler string) bool {
			var b strings.Builder
			var wantTargets []string
			var wantRemote []bool
			for i, p := range pieces {
				b.WriteString(filler)
				target := p.name + ".png"
				if p.kind == 0 {
					b.WriteString("![[" + target + "]]")
					wantRemote = append(wantRemote, false)
				} else {
					if p.remote {
						target = fmt.Sprintf("https://cdn.example.com/%d-%s", i, target)
					}
					b.WriteString("![alt](" + target + ")")
					wantRemote = append(wantRemote, p.remote)
				}
				wantTargets = append(wantTargets, target)
			}
			refs := ParseImageLinks(b.String())
			if len(refs) != len(pieces) {
				return false
			}
			for i, ref := range refs {
				if ref.PathOrURL != wantTargets[i] || ref.IsRemote != wantRemote[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(pieceGen),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
