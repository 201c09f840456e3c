package attack

import (
	"context"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/libshade/libshade/model"
)

// Detection is one detector verdict. Confidence is in [0,1]; higher means
// more confidently detected.
type Detection struct {
	Detected   bool
	Confidence float64
	Versions   []string // detected library versions, when the tool reports them
}

// Detector is the external library-detection tool. Implementations are
// assumed slow (seconds to minutes) and must be safe to call repeatedly.
type Detector interface {
	Detect(ctx context.Context, artifactPath, libraryPath, libraryName string) (Detection, error)
}

// Decoupler identifies which candidate classes truly belong to the target
// library. Best effort: an empty result makes the engine fall back to the
// full candidate set.
type Decoupler interface {
	IdentifyLibraryClasses(candidates []string) (map[string]bool, error)
}

// Reifier writes the mutated code model back out as a loadable artifact
// and returns its path.
type Reifier interface {
	Reify(ctx context.Context, m *model.CodeModel, outputDir string) (string, error)
}

// evaded decides the success predicate for a detection result. At library
// level any non-detection wins; at version level it additionally suffices
// that the target version is no longer among the reported versions.
func evaded(cfg Config, det Detection) bool {
	if !det.Detected {
		return true
	}
	if cfg.Level != LevelVersion {
		return false
	}
	target := canonicalVersion(cfg.TargetVersion)
	for _, v := range det.Versions {
		if semver.Compare(canonicalVersion(v), target) == 0 {
			return false
		}
	}
	return true
}

// canonicalVersion normalizes version strings for semver comparison.
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return v
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}
