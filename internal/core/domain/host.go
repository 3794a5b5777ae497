package domain

import "runtime"

// Host describes the machine forge runs on. It is detected once per
// invocation and threaded through explicitly.
type Host struct {
	Triple      string
	Parallelism int
}

// DetectHost maps GOOS/GOARCH to a target triple and reads the CPU count.
func DetectHost() Host {
	return Host{
		Triple:      hostTriple(runtime.GOOS, runtime.GOARCH),
		Parallelism: runtime.NumCPU(),
	}
}

func hostTriple(goos, goarch string) string {
	var arch string
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	case "arm":
		arch = "armv7"
	case "riscv64":
		arch = "riscv64gc"
	default:
		arch = goarch
	}

	switch goos {
	case "linux":
		return arch + "-unknown-linux-gnu"
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-msvc"
	case "freebsd":
		return arch + "-unknown-freebsd"
	default:
		return arch + "-unknown-" + goos
	}
}
