package ui

import (
	"os/exec"
	"strings"
	"sync"
)

var (
	logoOnce sync.Once
	logoText string
)

// banner returns the sign-in banner, rendered by figlet when it is
// installed and plain text otherwise.
func banner() string {
	logoOnce.Do(func() {
		logoText = createLogo()
	})
	return logoText
}

func createLogo() string {
	out, err := exec.Command("figlet", "-f", "slant", "momento").Output()
	if err != nil || len(out) == 0 {
		return "momento"
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
