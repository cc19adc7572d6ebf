package update

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPlatformInfo(t *testing.T) {
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, GetPlatformInfo())
}

func TestChangelogExcerpt(t *testing.T) {
	tests := []struct {
		name        string
		changelog   string
		max         int
		wantLines   []string
		wantOmitted int
	}{
		{name: "empty", changelog: "  \n", max: 10},
		{name: "short", changelog: "- fix\n- add\n", max: 10, wantLines: []string{"- fix", "- add"}},
		{name: "truncated", changelog: strings.Repeat("line\n", 12), max: 10, wantLines: strings.Split(strings.Repeat("line\n", 10)[:49], "\n"), wantOmitted: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, omitted := ChangelogExcerpt(tt.changelog, tt.max)
			assert.Equal(t, tt.wantLines, lines)
			assert.Equal(t, tt.wantOmitted, omitted)
		})
	}
}
