package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestRebase_Unchanged(t *testing.T) {
	merged, ok := Rebase("a ![[x.png]] b", "a ![x.png](https://h/x.png) b", "a ![[x.png]] b")
	assert.True(t, ok)
	assert.Equal(t, "a ![x.png](https://h/x.png) b", merged)
}

func TestRebase_UserAppendedText(t *testing.T) {
	base := "# Title\n\n![[x.png]]\n\nend\n"
	ours := "# Title\n\n![x.png](https://h/x.png)\n\nend\n"
	current := base + "\nnew paragraph typed during upload\n"

	merged, ok := Rebase(base, ours, current)
	assert.True(t, ok)
	assert.Equal(t, ours+"\nnew paragraph typed during upload\n", merged)
}

func TestRebase_ReferenceRemovedMeanwhile(t *testing.T) {
	base := strings.Repeat("filler line\n", 3) + "![[some-very-specific-image-name.png]]\n"
	ours := strings.Repeat("filler line\n", 3) + "![some-very-specific-image-name.png](https://h/1-some.png)\n"
	current := "completely different note body\n"

	merged, ok := Rebase(base, ours, current)
	assert.False(t, ok)
	assert.Equal(t, current, merged)
}

func TestProperty_RebasePreservesConcurrentAppend(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("appended text survives and the link is rewritten", prop.ForAll(
		func(id int, tail string) bool {
			name := fmt.Sprintf("image-%d.png", id)
			base := "intro\n![[" + name + "]]\noutro\n"
			ours := "intro\n![" + name + "](https://h/" + name + ")\noutro\n"
			current := base + tail

			merged, ok := Rebase(base, ours, current)
			return ok && merged == ours+tail
		},
		gen.IntRange(1, 100000),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
