//go:build !linux && !windows && !darwin

package devices

import (
	"runtime"

	"github.com/smazurov/camctl/internal/deverr"
)

func newNativeBackend(_ Options) (Backend, error) {
	return nil, deverr.Newf(deverr.KindPlatformNotSupported, "no native camera backend for %s", runtime.GOOS)
}
