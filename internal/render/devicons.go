package render

import (
	"os"
	"path"
	"time"

	devicons "github.com/epilande/go-devicons"
)

// iconFileInfo feeds devicons a name without touching the filesystem.
type iconFileInfo struct {
	name string
}

func (i iconFileInfo) Name() string { return i.name }

func (i iconFileInfo) Size() int64 { return 0 }

func (i iconFileInfo) Mode() os.FileMode { return 0 }

func (i iconFileInfo) ModTime() time.Time { return time.Time{} }

func (i iconFileInfo) IsDir() bool { return false }

func (i iconFileInfo) Sys() any { return nil }

// Icon returns the Nerd Font icon for a slash-separated path.
func Icon(rel string) string {
	name := path.Base(rel)
	if name == "" || name == "." || name == "/" {
		return ""
	}
	return devicons.IconForInfo(iconFileInfo{name: name}).Icon
}

func iconWithSpace(icon string) string {
	if icon == "" {
		return ""
	}
	return icon + " "
}
