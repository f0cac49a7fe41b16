package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-beacon/internal/domain"
)

// ViewConfig describes one dashboard view.
type ViewConfig struct {
	Slug          string  `yaml:"slug"`
	Display       string  `yaml:"display"`
	GroupIDs      []int64 `yaml:"group_ids"`
	ExcludeGroups bool    `yaml:"exclude_groups"`
}

type viewsFile struct {
	Views []ViewConfig `yaml:"views"`
}

func defaultViews(professionalServicesGroup int64) []ViewConfig {
	return []ViewConfig{
		{Slug: "helpdesk", Display: "Helpdesk", GroupIDs: []int64{professionalServicesGroup}, ExcludeGroups: true},
		{Slug: "professional-services", Display: "Professional Services", GroupIDs: []int64{professionalServicesGroup}},
	}
}

// LoadViewsFile reads view definitions from YAML:
//
//	views:
//	  - slug: helpdesk
//	    display: Helpdesk
//	    group_ids: [19000234009]
//	    exclude_groups: true
func LoadViewsFile(path string) ([]ViewConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read views file: %w", err)
	}
	var f viewsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse views file %s: %w", path, err)
	}
	return f.Views, nil
}

// Validate checks that views are present, uniquely named and that the
// default view exists.
func (v ViewsConfig) Validate() error {
	if len(v.Items) == 0 {
		return fmt.Errorf("no views configured")
	}
	seen := make(map[string]bool, len(v.Items))
	for _, item := range v.Items {
		if item.Slug == "" {
			return fmt.Errorf("view without slug")
		}
		if seen[item.Slug] {
			return fmt.Errorf("duplicate view %q", item.Slug)
		}
		seen[item.Slug] = true
	}
	if !seen[v.Default] {
		return fmt.Errorf("default view %q is not configured", v.Default)
	}
	return nil
}

// Domain converts the configured views.
func (v ViewsConfig) Domain() []domain.View {
	out := make([]domain.View, 0, len(v.Items))
	for _, item := range v.Items {
		display := item.Display
		if display == "" {
			display = item.Slug
		}
		out = append(out, domain.View{
			Slug:          item.Slug,
			Display:       display,
			GroupIDs:      append([]int64(nil), item.GroupIDs...),
			ExcludeGroups: item.ExcludeGroups,
		})
	}
	return out
}
