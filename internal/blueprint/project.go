package blueprint

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/nhle/lakeconsole/internal/model"
)

var projectNamePattern = regexp.MustCompile(`^[\w/-]+$`)

// ValidProjectName reports whether name can be used as a project name.
func ValidProjectName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if !projectNamePattern.MatchString(name) {
		return ErrInvalidProjectName
	}
	return nil
}

// EncodeProjectName escapes a project name for use as a single path segment.
// Names may contain '/', which must not split the path.
func EncodeProjectName(name string) string {
	return url.PathEscape(name)
}

// ProjectUpdatePayload returns the body of PATCH /projects/{name} with the
// new name and the DORA metric switched on or off. Other metrics are kept.
func ProjectUpdatePayload(p model.Project, name string, dora bool) (model.Project, error) {
	if err := ValidProjectName(name); err != nil {
		return model.Project{}, err
	}
	out := model.Project{
		Name:        strings.TrimSpace(name),
		Description: p.Description,
	}

	found := false
	for _, m := range p.Metrics {
		if m.PluginName == model.DoraPlugin {
			m.Enable = dora
			found = true
		}
		out.Metrics = append(out.Metrics, m)
	}
	if !found {
		out.Metrics = append(out.Metrics, model.ProjectMetric{
			PluginName:   model.DoraPlugin,
			PluginOption: "",
			Enable:       dora,
		})
	}
	return out, nil
}
