package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Set with -ldflags "-X traffic-server/internal/version.BuildDate=...".
var (
	BuildDate   string // YYYY-MM-DD (UTC)
	BuildCommit string
	BuildBranch string
	BuildCI     string
)

const (
	// ReplayFormat is the version written into .tsrp headers. Bump it when the
	// record layout or the simulation rules change, since old replays would
	// no longer reproduce their run.
	ReplayFormat uint32 = 1
	// Protocol names the viewer wire format (snapshots, commands).
	Protocol = "traffic/1"
)

// Libraries reported by Info, in display order.
var reportedModules = []string{
	"github.com/gin-gonic/gin",
	"github.com/gorilla/websocket",
	"github.com/eclipse/paho.mqtt.golang",
	"go.dedis.ch/protobuf",
}

var buildEpoch = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// Info is served on GET /version.
type Info struct {
	Build        int               `json:"build"`
	BuildDate    string            `json:"buildDate"`
	Commit       string            `json:"commit"`
	Branch       string            `json:"branch"`
	CI           string            `json:"ci"`
	ReplayFormat uint32            `json:"replayFormat"`
	Protocol     string            `json:"protocol"`
	GoVersion    string            `json:"goVersion,omitempty"`
	Modules      map[string]string `json:"modules,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// BuildNumber counts days from the build epoch to BuildDate.
func BuildNumber() (int, error) {
	if BuildDate == "" {
		return 0, fmt.Errorf("build date not set")
	}
	t, err := time.ParseInLocation("2006-01-02", BuildDate, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid build date %q: %w", BuildDate, err)
	}
	if t.Before(buildEpoch) {
		return 0, fmt.Errorf("build date %s is before %s", BuildDate, buildEpoch.Format("2006-01-02"))
	}
	return int(t.Sub(buildEpoch).Hours() / 24), nil
}

// Current collects build metadata. Missing ldflags leave Error set and
// Build zero; the rest is still filled in.
func Current() Info {
	info := Info{
		BuildDate:    BuildDate,
		Commit:       orDefault(BuildCommit, "unknown"),
		Branch:       orDefault(BuildBranch, "unknown"),
		CI:           orDefault(BuildCI, "local"),
		ReplayFormat: ReplayFormat,
		Protocol:     Protocol,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		info.Modules = moduleVersions(bi.Deps)
	}

	n, err := BuildNumber()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Build = n
	return info
}

func moduleVersions(deps []*debug.Module) map[string]string {
	found := make(map[string]string, len(reportedModules))
	for _, dep := range deps {
		for _, path := range reportedModules {
			if dep.Path == path {
				found[path] = dep.Version
			}
		}
	}
	if len(found) == 0 {
		return nil
	}
	return found
}

// String is the one-line banner logged at startup.
func String() string {
	info := Current()
	build := fmt.Sprintf("build %d (%s)", info.Build, info.BuildDate)
	if info.Error != "" {
		build = "build unknown"
	}
	return fmt.Sprintf("traffic-server %s commit[%s] branch[%s] ci[%s] replay[v%d] protocol[%s]",
		build, info.Commit, info.Branch, info.CI, info.ReplayFormat, info.Protocol)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
