package application

import (
	"github.com/ahrav/go-rubric/infrastructure/judge"
	"github.com/ahrav/go-rubric/internal/domain"
)

// LatestMetricVersion is the grading prompt version used when a metric
// does not pin one.
const LatestMetricVersion = "v1"

// templateBuilder assembles the per-row grading prompt template for one
// prompt version.
type templateBuilder func(name, definition, gradingPrompt string, examples []domain.EvaluationExample) string

// promptVersions is the closed set of supported grading prompt versions.
// Versions are compiled in rather than loaded dynamically: a metric built
// against "v1" renders the same prompt in every binary that ships it.
var promptVersions = map[string]templateBuilder{
	"v1": judge.BuildGradingTemplateV1,
}

// gradingTemplateForVersion resolves a prompt version and builds the
// metric's grading template. Unknown versions are a ConfigError at metric
// construction, before any judge call can be made.
func gradingTemplateForVersion(version, name, definition, gradingPrompt string, examples []domain.EvaluationExample) (string, error) {
	build, ok := promptVersions[version]
	if !ok {
		return "", domain.NewConfigError("unsupported metric version %q, supported versions are: %s",
			version, supportedVersionList())
	}
	return build(name, definition, gradingPrompt, examples), nil
}

func supportedVersionList() string {
	// Single version today; keep the helper so the error message stays
	// accurate when v2 lands.
	return LatestMetricVersion
}
