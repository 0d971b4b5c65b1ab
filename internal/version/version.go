// Package version хранит сведения о сборке.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Заполняются через -ldflags "-X github.com/vladislavdragonenkov/storefront/internal/version.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var fillOnce sync.Once

// fillFromBuildInfo подставляет ревизию и время коммита из go build, если ldflags их не задали.
func fillFromBuildInfo() {
	fillOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		applyBuildSettings(info.Settings)
	})
}

func applyBuildSettings(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch {
		case s.Key == "vcs.revision" && commit == "unknown" && s.Value != "":
			commit = s.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case s.Key == "vcs.time" && date == "unknown" && s.Value != "":
			date = s.Value
		}
	}
}

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) {
	fillFromBuildInfo()
	return version, commit, date
}

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

// GetCommit возвращает коммит сборки.
func GetCommit() string {
	fillFromBuildInfo()
	return commit
}

// GetDate возвращает дату сборки.
func GetDate() string {
	fillFromBuildInfo()
	return date
}

func String() string {
	v, c, d := Info()
	return fmt.Sprintf("storefront version=%s commit=%s date=%s", v, c, d)
}
