package model

// DoraPlugin is the metric plugin toggled from project settings.
const DoraPlugin = "dora"

// ProjectMetric enables a metric plugin for a project.
type ProjectMetric struct {
	PluginName   string `json:"pluginName"`
	PluginOption string `json:"pluginOption"`
	Enable       bool   `json:"enable"`
}

// Project groups a blueprint with its metric settings.
type Project struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Metrics     []ProjectMetric `json:"metrics"`
	Blueprint   *Blueprint      `json:"blueprint,omitempty"`
}

// MetricEnabled reports whether the named metric plugin is enabled.
func (p Project) MetricEnabled(plugin string) bool {
	for _, m := range p.Metrics {
		if m.PluginName == plugin {
			return m.Enable
		}
	}
	return false
}
