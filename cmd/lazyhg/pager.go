package main

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/chmouel/lazyhg/internal/config"
)

// pagerCommand determines the pager command to use for diffs.
func pagerCommand(cfg *config.AppConfig) string {
	if cfg != nil {
		if pager := strings.TrimSpace(cfg.Pager); pager != "" {
			return pager
		}
	}
	if pager := strings.TrimSpace(os.Getenv("PAGER")); pager != "" {
		return pager
	}
	if _, err := exec.LookPath("less"); err == nil {
		return "less -qcR -P 'Press q to exit..'"
	}
	return ""
}

// pagerEnv returns extra environment for the pager.
func pagerEnv(pager string) []string {
	if pagerIsLess(pager) {
		return []string{"LESS=", "LESSHISTFILE=-"}
	}
	return nil
}

func pagerIsLess(pager string) bool {
	for field := range strings.FieldsSeq(pager) {
		if strings.Contains(field, "=") && !strings.HasPrefix(field, "-") && !strings.Contains(field, "/") {
			continue
		}
		return filepath.Base(field) == "less"
	}
	return false
}

// page pipes content through the pager, writing to out.
func page(pager, content string, out io.Writer) error {
	c := exec.Command("sh", "-c", pager) //#nosec G204 -- pager comes from user configuration
	c.Stdin = strings.NewReader(content)
	c.Stdout = out
	c.Stderr = os.Stderr
	c.Env = append(os.Environ(), pagerEnv(pager)...)
	return c.Run()
}
