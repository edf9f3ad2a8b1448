package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	Version = "v1.2.3"
	GitCommit = "0123456789abcdef"
	if got := String(); got != "camctl v1.2.3 (0123456)" {
		t.Errorf("String() = %q", got)
	}

	GitCommit = "abc"
	if got := String(); got != "camctl v1.2.3 (abc)" {
		t.Errorf("String() = %q", got)
	}
}

func TestLong(t *testing.T) {
	long := Get().Long()
	for _, want := range []string{"camctl ", "commit:", "platform:"} {
		if !strings.Contains(long, want) {
			t.Errorf("Long() missing %q:\n%s", want, long)
		}
	}
}
