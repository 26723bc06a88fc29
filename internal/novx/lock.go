package novx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/kobzarvs/scedit/internal/logger"
)

// A project is locked while a lock file sits next to it. Projects without a
// path keep the flag in memory.

func lockPath(path string) string { return path + ".lock" }

func (p *Project) Locked() bool { return p.locked }

func (p *Project) Lock() error {
	if p.Path != "" {
		stamp := fmt.Sprintf("scedit %d %s\n", os.Getpid(), time.Now().Format(time.RFC3339))
		if err := os.WriteFile(lockPath(p.Path), []byte(stamp), 0o644); err != nil {
			return fmt.Errorf("locking project: %w", err)
		}
	}
	p.locked = true
	logger.Project(p.Path).Infow("project locked")
	return nil
}

func (p *Project) Unlock() error {
	if p.Path != "" {
		if err := os.Remove(lockPath(p.Path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("unlocking project: %w", err)
		}
	}
	p.locked = false
	logger.Project(p.Path).Infow("project unlocked")
	return nil
}
